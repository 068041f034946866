package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func load(t *testing.T, file string) (Config, error) {
	t.Helper()
	v := viper.New()
	if err := Setup(v, file); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return Load(v)
}

func TestDefaults(t *testing.T) {
	c, err := load(t, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.HTTP.ListenAddr() != ":8080" {
		t.Fatalf("listen addr = %q", c.HTTP.ListenAddr())
	}
	if c.Store.Driver != DriverPostgres {
		t.Fatalf("driver = %q", c.Store.Driver)
	}
	if c.Admission.LockTimeout != 5*time.Second || c.Alerts.ArrivalGrace != 15*time.Minute {
		t.Fatalf("unexpected durations %+v %+v", c.Admission, c.Alerts)
	}
	if c.DB.MaxConns != 20 {
		t.Fatalf("max conns = %d", c.DB.MaxConns)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ROOMBOOK_STORE_DRIVER", "SQLite")
	t.Setenv("ROOMBOOK_ADMISSION_LOCK_TIMEOUT", "750ms")
	t.Setenv("ROOMBOOK_AUTH_ADMIN_EMAILS", "Boss@Example.com, ops@example.com")
	t.Setenv("PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")

	c, err := load(t, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Store.Driver != DriverSQLite {
		t.Fatalf("driver = %q", c.Store.Driver)
	}
	if c.Admission.LockTimeout != 750*time.Millisecond {
		t.Fatalf("lock timeout = %v", c.Admission.LockTimeout)
	}
	if got := strings.Join(c.Auth.AdminEmails, ","); got != "boss@example.com,ops@example.com" {
		t.Fatalf("admin emails = %q", got)
	}
	if c.HTTP.ListenAddr() != ":9090" {
		t.Fatalf("listen addr = %q", c.HTTP.ListenAddr())
	}
	if c.DB.Host != "db.internal" {
		t.Fatalf("db host = %q", c.DB.Host)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roombook.yaml")
	data := "store:\n  driver: memory\nalerts:\n  arrival_grace: 30m\nlog:\n  format: json\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := load(t, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Store.Driver != DriverMemory || c.Alerts.ArrivalGrace != 30*time.Minute || c.Log.Format != "json" {
		t.Fatalf("file settings not applied: %+v", c)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad driver", map[string]string{"ROOMBOOK_STORE_DRIVER": "mongo"}, "store.driver"},
		{"zero lock timeout", map[string]string{"ROOMBOOK_ADMISSION_LOCK_TIMEOUT": "0s"}, "admission.lock_timeout"},
		{"bad log format", map[string]string{"ROOMBOOK_LOG_FORMAT": "xml"}, "log.format"},
		{"bad timezone", map[string]string{"ROOMBOOK_ALERTS_TIMEZONE": "Mars/Olympus"}, "alerts.timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(t, "")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestYAMLOmitsSecrets(t *testing.T) {
	t.Setenv("ROOMBOOK_AUTH_JWT_SECRET", "super-secret")
	t.Setenv("DB_PASSWORD", "hunter2")
	c, err := load(t, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.ValidateServe(); err != nil {
		t.Fatalf("validate serve: %v", err)
	}
	out, err := c.YAML()
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if strings.Contains(s, "super-secret") || strings.Contains(s, "hunter2") {
		t.Fatalf("secrets leaked into yaml:\n%s", s)
	}
	if !strings.Contains(s, "lock_timeout: 5s") {
		t.Fatalf("expected readable durations:\n%s", s)
	}
}
