package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsFlowThrough(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "settlement", Output: &buf})

	ctx := logg.WithOrderID(context.Background(), "ord-123")
	ctx = logg.WithStage(ctx, "in_escrow")
	logg.Info(ctx, "escrow captured")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not json: %v", err)
	}
	if entry["order_id"] != "ord-123" {
		t.Fatalf("missing order_id field: %v", entry)
	}
	if entry["stage"] != "in_escrow" {
		t.Fatalf("missing stage field: %v", entry)
	}
	if entry["service"] != "settlement" {
		t.Fatalf("missing service field: %v", entry)
	}
}

func TestErrorIncludesErrAndStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "settlement", Output: &buf})

	logg.Error(context.Background(), "reconcile failed", errors.New("boom"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not json: %v", err)
	}
	if entry["error"] != "boom" {
		t.Fatalf("expected error field, got %v", entry)
	}
	if entry["stack"] == nil {
		t.Fatal("expected stack field on error logs")
	}
}

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("debug"); got != zerolog.DebugLevel {
		t.Fatalf("unexpected level %v", got)
	}
	if got := ParseLevel(""); got != zerolog.InfoLevel {
		t.Fatalf("empty input should default to info, got %v", got)
	}
	if got := ParseLevel("nonsense"); got != zerolog.InfoLevel {
		t.Fatalf("bad input should default to info, got %v", got)
	}
}
