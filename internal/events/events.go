// Package events carries booking lifecycle events from the service to
// interested consumers over an AMQP topic exchange.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Routing keys.
const (
	KeyCreated       = "reservation.created"
	KeyStatusChanged = "reservation.status_changed"
	KeyArrived       = "reservation.arrived"
)

// Created is published once a booking has been admitted.
type Created struct {
	BookingID       string `json:"booking_id"`
	Owner           string `json:"user"`
	Resource        string `json:"room"`
	Date            string `json:"date"`
	Start           string `json:"start_time"`
	End             string `json:"end_time"`
	ExpectedArrival string `json:"expected_arrival_time,omitempty"`
}

// StatusChanged is published after an admin approves or rejects a booking.
type StatusChanged struct {
	BookingID string `json:"booking_id"`
	Owner     string `json:"user"`
	Resource  string `json:"room"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	ChangedBy string `json:"changed_by"`
}

// Arrived is published the first time a booking is marked as arrived.
type Arrived struct {
	BookingID string    `json:"booking_id"`
	Owner     string    `json:"user"`
	Resource  string    `json:"room"`
	Date      string    `json:"date"`
	ArrivedAt time.Time `json:"arrived_at"`
	MarkedBy  string    `json:"marked_by"`
}

// Publisher delivers an event payload under a routing key.
type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
}

// Decode unmarshals an event body.
func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

// LogPublisher writes events to a logger instead of a broker. It is used when
// no AMQP URL is configured.
type LogPublisher struct {
	Log *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, key string, v any) error {
	if p.Log != nil {
		p.Log.InfoContext(ctx, "event", "key", key, "payload", v)
	}
	return nil
}
