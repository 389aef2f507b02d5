package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	obs "github.com/tanhakabir/spotlight-geoindex/internal/core/observability"
)

type messageProcessor func(context.Context, *sarama.ConsumerMessage) error

// groupHandler feeds one claim at a time through process, in offset order.
type groupHandler struct {
	process messageProcessor
	now     func() time.Time
}

func newGroupHandler(process messageProcessor) *groupHandler {
	return &groupHandler{process: process, now: time.Now}
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks a message only after it was processed; a failure ends
// the claim so the group redelivers from the last mark.
func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("claim context done: %w", ctx.Err())
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handle(ctx, msg); err != nil {
				return fmt.Errorf("item event %s/%d@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
			}
			sess.MarkMessage(msg, "")
		}
	}
}

func (h *groupHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := h.now()
	err := h.process(ctx, msg)
	obs.ObserveIngestMessage(msg.Partition, err, h.now().Sub(start).Seconds())
	return err
}
