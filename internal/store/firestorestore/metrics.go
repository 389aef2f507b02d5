package firestorestore

import (
	"time"

	"github.com/tanhakabir/spotlight-geoindex/internal/core/observability"
)

func observe(op string, err error, start time.Time) {
	observability.ObserveStoreOp(op, "firestore", err, time.Since(start).Seconds())
}
