package database_test

import (
	"strings"
	"testing"

	"github.com/fieldline/curator/pkg/database"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := database.Config{Name: "curator", User: "curator"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Host != "localhost" {
		t.Errorf("host: got %s, want localhost", cfg.Host)
	}
	if cfg.Port != 5432 {
		t.Errorf("port: got %d, want 5432", cfg.Port)
	}
	if cfg.SSLMode != "disable" {
		t.Errorf("ssl_mode: got %s, want disable", cfg.SSLMode)
	}
	if cfg.MaxOpenConns != 25 {
		t.Errorf("max_open_conns: got %d, want 25", cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime != "15m" {
		t.Errorf("conn_max_lifetime: got %s, want 15m", cfg.ConnMaxLifetime)
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "dbhost")
	t.Setenv("TEST_DB_PORT", "15432")
	t.Setenv("TEST_DB_PASSWORD", "secret")

	env := &database.Env{
		Host:     "TEST_DB_HOST",
		Port:     "TEST_DB_PORT",
		Password: "TEST_DB_PASSWORD",
	}

	cfg := database.Config{Name: "curator", User: "curator"}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Host != "dbhost" {
		t.Errorf("host: got %s, want dbhost", cfg.Host)
	}
	if cfg.Port != 15432 {
		t.Errorf("port: got %d, want 15432", cfg.Port)
	}
	if cfg.Password != "secret" {
		t.Errorf("password: got %s, want secret", cfg.Password)
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     database.Config
		wantErr string
	}{
		{"missing name", database.Config{User: "curator"}, "name required"},
		{"missing user", database.Config{Name: "curator"}, "user required"},
		{
			"bad lifetime",
			database.Config{Name: "curator", User: "curator", ConnMaxLifetime: "forever"},
			"conn_max_lifetime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDsn(t *testing.T) {
	cfg := database.Config{
		Host:     "localhost",
		Port:     5432,
		Name:     "curator",
		User:     "curator",
		Password: "secret",
		SSLMode:  "disable",
	}

	dsn := cfg.Dsn()
	for _, part := range []string{"host=localhost", "port=5432", "dbname=curator", "user=curator", "password=secret", "sslmode=disable"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("dsn %q missing %q", dsn, part)
		}
	}
}

func TestMerge(t *testing.T) {
	base := database.Config{Host: "localhost", Port: 5432, Name: "curator", User: "curator"}
	overlay := database.Config{Host: "prodhost", Password: "prodpass"}
	base.Merge(&overlay)

	if base.Host != "prodhost" {
		t.Errorf("host: got %s, want prodhost", base.Host)
	}
	if base.Password != "prodpass" {
		t.Errorf("password: got %s, want prodpass", base.Password)
	}
	if base.Port != 5432 {
		t.Errorf("port should be unchanged, got %d", base.Port)
	}
	if base.Name != "curator" {
		t.Errorf("name should be unchanged, got %s", base.Name)
	}
}
