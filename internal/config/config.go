// Package config loads runtime settings from flags, environment, an optional
// .env file and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/room-booking/internal/database"
)

// EnvPrefix prefixes every environment variable name, e.g. ROOMBOOK_STORE_DRIVER.
const EnvPrefix = "ROOMBOOK"

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	DB        database.Config `mapstructure:"db" yaml:"db"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Admission AdmissionConfig `mapstructure:"admission" yaml:"admission"`
	Alerts    AlertsConfig    `mapstructure:"alerts" yaml:"alerts"`
	AMQP      AMQPConfig      `mapstructure:"amqp" yaml:"amqp"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	Port            string        `mapstructure:"port" yaml:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ListenAddr returns Addr, or ":Port" when Addr is unset.
func (h HTTPConfig) ListenAddr() string {
	if h.Addr != "" {
		return h.Addr
	}
	return ":" + h.Port
}

type StoreConfig struct {
	Driver     string `mapstructure:"driver" yaml:"driver"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

type AuthConfig struct {
	JWTSecret   string   `mapstructure:"jwt_secret" yaml:"-"`
	AdminEmails []string `mapstructure:"admin_emails" yaml:"admin_emails"`
}

type AdmissionConfig struct {
	LockTimeout time.Duration `mapstructure:"lock_timeout" yaml:"lock_timeout"`
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
}

type AlertsConfig struct {
	ArrivalGrace time.Duration `mapstructure:"arrival_grace" yaml:"arrival_grace"`
	Timezone     string        `mapstructure:"timezone" yaml:"timezone"`
}

// Location resolves Timezone, defaulting to the process local zone.
func (a AlertsConfig) Location() (*time.Location, error) {
	if a.Timezone == "" || a.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(a.Timezone)
}

type AMQPConfig struct {
	URL      string `mapstructure:"url" yaml:"-"`
	Exchange string `mapstructure:"exchange" yaml:"exchange"`
	Queue    string `mapstructure:"queue" yaml:"queue"`
	Prefetch int    `mapstructure:"prefetch" yaml:"prefetch"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

var defaults = map[string]any{
	"http.addr":              "",
	"http.port":              "8080",
	"http.shutdown_timeout":  "10s",
	"store.driver":           DriverPostgres,
	"store.sqlite_path":      "data/roombook.db",
	"db.url":                 "",
	"db.host":                "localhost",
	"db.port":                "5432",
	"db.user":                "postgres",
	"db.password":            "postgres",
	"db.name":                "room_booking",
	"db.sslmode":             "disable",
	"db.max_conns":           20,
	"db.min_conns":           2,
	"auth.jwt_secret":        "",
	"auth.admin_emails":      []string{},
	"admission.lock_timeout": "5s",
	"admission.max_retries":  3,
	"alerts.arrival_grace":   "15m",
	"alerts.timezone":        "Local",
	"amqp.url":               "",
	"amqp.exchange":          "roombook.events",
	"amqp.queue":             "roombook.notify",
	"amqp.prefetch":          16,
	"log.level":              "info",
	"log.format":             "text",
}

// Unprefixed names kept for existing deployments.
var legacyEnv = map[string]string{
	"http.port":   "PORT",
	"db.url":      "DATABASE_URL",
	"db.host":     "DB_HOST",
	"db.port":     "DB_PORT",
	"db.user":     "DB_USER",
	"db.password": "DB_PASSWORD",
	"db.name":     "DB_NAME",
	"db.sslmode":  "DB_SSLMODE",
}

// Setup prepares v: defaults, environment binding and, when file is set, the
// YAML config file. A .env file in the working directory is loaded first if
// present; variables already set in the environment win.
func Setup(v *viper.Viper, file string) error {
	_ = godotenv.Load()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.AdminEmails()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// AdminEmails normalizes the admin list in place and returns it.
func (c *Config) AdminEmails() []string {
	var out []string
	for _, e := range c.Auth.AdminEmails {
		for _, part := range strings.Split(e, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	c.Auth.AdminEmails = out
	return out
}

// Validate checks settings every command depends on.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver must be one of postgres, sqlite, memory; got %q", c.Store.Driver))
	}
	if c.Store.Driver == DriverSQLite && c.Store.SQLitePath == "" {
		errs = append(errs, errors.New("store.sqlite_path is required for the sqlite driver"))
	}
	if c.Admission.LockTimeout <= 0 {
		errs = append(errs, errors.New("admission.lock_timeout must be positive"))
	}
	if c.Admission.MaxRetries < 0 {
		errs = append(errs, errors.New("admission.max_retries must not be negative"))
	}
	if c.Alerts.ArrivalGrace < 0 {
		errs = append(errs, errors.New("alerts.arrival_grace must not be negative"))
	}
	if _, err := c.Alerts.Location(); err != nil {
		errs = append(errs, fmt.Errorf("alerts.timezone: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json; got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ValidateServe adds the checks that only matter for a running server.
func (c Config) ValidateServe() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret is required to serve (set ROOMBOOK_AUTH_JWT_SECRET)")
	}
	return nil
}

// YAML renders the effective configuration with secrets omitted.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
