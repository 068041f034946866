// Command roombook runs the room booking API and its operator tooling.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Shivanand-hulikatti/room-booking/internal/config"
	"github.com/Shivanand-hulikatti/room-booking/internal/database"
	"github.com/Shivanand-hulikatti/room-booking/internal/events"
	"github.com/Shivanand-hulikatti/room-booking/internal/logging"
	"github.com/Shivanand-hulikatti/room-booking/internal/model"
	"github.com/Shivanand-hulikatti/room-booking/internal/repository"
	"github.com/Shivanand-hulikatti/room-booking/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "roombook",
	Short: "Room booking service",
	Long: `roombook admits room bookings without double-booking a room, tracks
approval and arrival, and raises safety alerts for holders who never arrive.

Settings come from flags, ROOMBOOK_* environment variables, a .env file and an
optional YAML file passed with --config.`,
	SilenceUsage: true,
}

func main() {
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addPersistentFlags() {
	f := rootCmd.PersistentFlags()
	f.String("config", "", "YAML config file")
	f.String("store", "", "store driver: postgres, sqlite or memory")
	f.String("as", "", "act as this user email (CLI commands)")
	f.Bool("admin", false, "act with admin capability (CLI commands)")
	_ = viper.BindPFlag("store.driver", f.Lookup("store"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(bookCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(arriveCmd())
	rootCmd.AddCommand(availableCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(notifyCmd())
	rootCmd.AddCommand(configCmd())
}

// app bundles what every command needs once configuration is loaded.
type app struct {
	cfg config.Config
	log *slog.Logger
}

func loadApp(cmd *cobra.Command) (*app, error) {
	file, _ := cmd.Flags().GetString("config")
	if err := config.Setup(viper.GetViper(), file); err != nil {
		return nil, err
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log}, nil
}

// openStore connects the configured backend. SQLite is always migrated on
// open; PostgreSQL only when migrate is set.
func (a *app) openStore(ctx context.Context, migrate bool) (repository.Store, func(), error) {
	switch a.cfg.Store.Driver {
	case config.DriverMemory:
		a.log.Warn("using in-memory store; bookings are lost on exit")
		return repository.NewMemoryStore(), func() {}, nil

	case config.DriverSQLite:
		db, err := database.OpenSQLite(a.cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := database.MigrateSQLite(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repository.NewSQLiteStore(db), func() { db.Close() }, nil

	default:
		pool, err := database.NewPool(ctx, a.cfg.DB, a.log)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err := database.MigratePostgres(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		a.log.Info("connected to postgres", "host", a.cfg.DB.Host, "db", a.cfg.DB.DBName)
		return repository.NewPostgresStore(pool, repository.PostgresOptions{
			LockTimeout: a.cfg.Admission.LockTimeout,
			MaxRetries:  a.cfg.Admission.MaxRetries,
		}), pool.Close, nil
	}
}

// publisher returns the AMQP publisher when a broker is configured, otherwise
// one that logs events.
func (a *app) publisher() (events.Publisher, func()) {
	if a.cfg.AMQP.URL == "" {
		return events.LogPublisher{Log: a.log}, func() {}
	}
	p, err := events.NewAMQPPublisher(a.cfg.AMQP.URL, a.cfg.AMQP.Exchange)
	if err != nil {
		a.log.Warn("amqp unavailable; events will only be logged", "err", err)
		return events.LogPublisher{Log: a.log}, func() {}
	}
	return p, func() { _ = p.Close() }
}

func (a *app) service(store repository.Store, pub events.Publisher) (*service.BookingService, error) {
	loc, err := a.cfg.Alerts.Location()
	if err != nil {
		return nil, err
	}
	return service.NewBookingService(store, pub, service.Options{
		LockTimeout:  a.cfg.Admission.LockTimeout,
		ArrivalGrace: a.cfg.Alerts.ArrivalGrace,
		Location:     loc,
		Logger:       a.log,
	}), nil
}

// withService opens the store and runs fn with a ready BookingService.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.BookingService) error) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, closeStore, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}
	defer closeStore()
	pub, closePub := a.publisher()
	defer closePub()
	svc, err := a.service(store, pub)
	if err != nil {
		return err
	}
	return fn(ctx, svc)
}

func actor(cmd *cobra.Command) model.Principal {
	email, _ := cmd.Flags().GetString("as")
	admin, _ := cmd.Flags().GetBool("admin")
	return model.Principal{Email: strings.ToLower(strings.TrimSpace(email)), IsAdmin: admin}
}
