// Package notify turns booking events into human-facing notifications.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Shivanand-hulikatti/room-booking/internal/events"
)

// Notifier sends one notification to the person behind recipient.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, message string) error
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, recipient, subject, message string) error {
	n.Log.InfoContext(ctx, "notification", "to", recipient, "subject", subject, "message", message)
	return nil
}

// Worker consumes event deliveries and notifies booking holders.
type Worker struct {
	notifier Notifier
	log      *slog.Logger
}

func NewWorker(n Notifier, log *slog.Logger) *Worker {
	return &Worker{notifier: n, log: log}
}

// Run handles deliveries until ctx is done or the channel closes. Failed
// deliveries are requeued once; a redelivered failure is dropped.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			if err := w.Handle(ctx, d.RoutingKey, d.Body); err != nil {
				w.log.Warn("handle event", "key", d.RoutingKey, "redelivered", d.Redelivered, "err", err)
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle dispatches a single event body by routing key. Unknown keys are
// skipped without error.
func (w *Worker) Handle(ctx context.Context, key string, body []byte) error {
	switch key {
	case events.KeyCreated:
		ev, err := events.Decode[events.Created](body)
		if err != nil {
			return err
		}
		return w.notifier.Notify(ctx, ev.Owner, "Booking received",
			fmt.Sprintf("%s on %s %s-%s is pending approval (booking %s).", ev.Resource, ev.Date, ev.Start, ev.End, ev.BookingID))

	case events.KeyStatusChanged:
		ev, err := events.Decode[events.StatusChanged](body)
		if err != nil {
			return err
		}
		return w.notifier.Notify(ctx, ev.Owner, "Booking "+ev.Status,
			fmt.Sprintf("Your booking of %s on %s is now %s.", ev.Resource, ev.Date, ev.Status))

	case events.KeyArrived:
		ev, err := events.Decode[events.Arrived](body)
		if err != nil {
			return err
		}
		return w.notifier.Notify(ctx, ev.Owner, "Arrival recorded",
			fmt.Sprintf("Arrival at %s recorded at %s.", ev.Resource, ev.ArrivedAt.Format("2006-01-02 15:04")))

	default:
		w.log.Debug("skip unknown event", "key", key)
	}
	return nil
}
