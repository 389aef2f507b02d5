package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ln := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if ln == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(ln), &m); err != nil {
			t.Fatalf("bad json line %q: %v", ln, err)
		}
		out = append(out, m)
	}
	return out
}

func TestBuild_StaticFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "warn", Backend: "memory", Component: "geoblockd"}, &buf)

	zl.Info().Msg("dropped")
	zl.Warn().Msg("kept")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("lines=%d want 1: %s", len(lines), buf.String())
	}
	got := lines[0]
	if got["msg"] != "kept" || got["level"] != "warn" {
		t.Fatalf("unexpected line: %v", got)
	}
	if got["backend"] != "memory" || got["component"] != "geoblockd" {
		t.Fatalf("static fields missing: %v", got)
	}
	if _, ok := got["timestamp"]; !ok {
		t.Fatalf("timestamp missing: %v", got)
	}
}

func TestFromContext_AppliesQueryFields(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "debug"}, &buf)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithQuery(ctx, "037_-123")
	ctx = WithPhase(ctx, "fetching_items_per_fine_key")
	ctx = WithComponent(ctx, "")

	FromContext(ctx, &zl).Debug().Msg("hello")

	got := decodeLines(t, &buf)[0]
	if got["request_id"] != "req-1" || got["coarse_key"] != "037_-123" || got["phase"] != "fetching_items_per_fine_key" {
		t.Fatalf("context fields missing: %v", got)
	}
	if _, ok := got["component"]; ok {
		t.Fatalf("empty component must not be attached: %v", got)
	}
}

func TestWithRequestID_GeneratesWhenEmpty(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if id := RequestID(ctx); len(id) != 16 {
		t.Fatalf("generated id=%q want 16 hex chars", id)
	}
}

func TestNewSlog_BridgesAttrsGroupsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "info"}, &buf)
	sl := NewSlog(&zl).With("store", "redis").WithGroup("fetch")

	sl.Debug("hidden")
	sl.Error("lookup failed", "path", "geoBlock/0370000_-1230000", "err", errors.New("boom"), "n", 9)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("lines=%d want 1: %s", len(lines), buf.String())
	}
	got := lines[0]
	if got["level"] != "error" || got["msg"] != "lookup failed" {
		t.Fatalf("unexpected line: %v", got)
	}
	if got["store"] != "redis" {
		t.Fatalf("With attr missing: %v", got)
	}
	if got["fetch.path"] != "geoBlock/0370000_-1230000" || got["fetch.err"] != "boom" || got["fetch.n"] != float64(9) {
		t.Fatalf("grouped attrs wrong: %v", got)
	}
}
