package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestDecodeCreated(t *testing.T) {
	body, err := json.Marshal(Created{BookingID: "b1", Owner: "ana@example.com", Resource: "Lab 1", Date: "2025-03-14", Start: "09:00", End: "10:00"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode[Created](body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BookingID != "b1" || got.Resource != "Lab 1" || got.ExpectedArrival != "" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if !strings.Contains(string(body), `"room":"Lab 1"`) {
		t.Fatalf("payload should use wire names: %s", body)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode[StatusChanged]([]byte("{not json")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := LogPublisher{Log: slog.New(slog.NewTextHandler(&buf, nil))}
	if err := p.Publish(context.Background(), KeyArrived, Arrived{BookingID: "b1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(buf.String(), KeyArrived) {
		t.Fatalf("expected key in log output, got %q", buf.String())
	}
	if err := (LogPublisher{}).Publish(context.Background(), KeyCreated, nil); err != nil {
		t.Fatalf("nil logger should be a no-op: %v", err)
	}
}
