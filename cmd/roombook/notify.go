package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/room-booking/internal/events"
	"github.com/Shivanand-hulikatti/room-booking/internal/notify"
)

func notifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Consume booking events and notify booking holders",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			if a.cfg.AMQP.URL == "" {
				return fmt.Errorf("amqp.url is required (set ROOMBOOK_AMQP_URL)")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			keys := []string{events.KeyCreated, events.KeyStatusChanged, events.KeyArrived}
			var consumer *events.Consumer
			for {
				consumer, err = events.NewConsumer(a.cfg.AMQP.URL, a.cfg.AMQP.Exchange, a.cfg.AMQP.Queue, keys, a.cfg.AMQP.Prefetch)
				if err == nil {
					break
				}
				a.log.Warn("amqp connect failed; retrying", "err", err)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(2 * time.Second):
				}
			}
			defer consumer.Close()

			deliveries, err := consumer.Deliveries(ctx, "roombook-notify")
			if err != nil {
				return err
			}
			a.log.Info("notify worker started", "queue", a.cfg.AMQP.Queue, "exchange", a.cfg.AMQP.Exchange)
			return notify.NewWorker(notify.LogNotifier{Log: a.log}, a.log).Run(ctx, deliveries)
		},
	}
}
