package storage_test

import (
	"strings"
	"testing"

	"github.com/fieldline/curator/pkg/storage"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := storage.Config{ConnectionString: "test-connection"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.ContainerName != "curator" {
		t.Errorf("container_name: got %s, want curator", cfg.ContainerName)
	}
	if cfg.MaxListSize != 50 {
		t.Errorf("max_list_size: got %d, want 50", cfg.MaxListSize)
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_CONTAINER", "artifacts")
	t.Setenv("TEST_CONN", "override-connection")
	t.Setenv("TEST_MAX_LIST", "200")

	env := &storage.Env{
		ContainerName:    "TEST_CONTAINER",
		ConnectionString: "TEST_CONN",
		MaxListSize:      "TEST_MAX_LIST",
	}

	cfg := storage.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.ContainerName != "artifacts" {
		t.Errorf("container_name: got %s, want artifacts", cfg.ContainerName)
	}
	if cfg.ConnectionString != "override-connection" {
		t.Errorf("connection_string: got %s, want override-connection", cfg.ConnectionString)
	}
	if cfg.MaxListSize != 200 {
		t.Errorf("max_list_size: got %d, want 200", cfg.MaxListSize)
	}
}

func TestFinalizeValidation(t *testing.T) {
	cfg := storage.Config{ContainerName: "artifacts"}
	err := cfg.Finalize(nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "connection_string required") {
		t.Errorf("error %q does not mention connection_string", err.Error())
	}
}

func TestFinalizeCapsMaxListSize(t *testing.T) {
	cfg := storage.Config{ConnectionString: "conn", MaxListSize: 100000}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if cfg.MaxListSize != storage.MaxListCap {
		t.Errorf("max_list_size: got %d, want cap %d", cfg.MaxListSize, storage.MaxListCap)
	}
}

func TestMerge(t *testing.T) {
	base := storage.Config{
		ContainerName:    "curator",
		ConnectionString: "base-conn",
		MaxListSize:      50,
	}

	overlay := storage.Config{ConnectionString: "overlay-conn"}
	base.Merge(&overlay)

	if base.ContainerName != "curator" {
		t.Errorf("container_name should remain curator, got %s", base.ContainerName)
	}
	if base.ConnectionString != "overlay-conn" {
		t.Errorf("connection_string: got %s, want overlay-conn", base.ConnectionString)
	}
	if base.MaxListSize != 50 {
		t.Errorf("max_list_size should remain 50, got %d", base.MaxListSize)
	}
}

func TestParseMaxResults(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int32
		wantErr bool
	}{
		{"empty uses fallback", "", 50, false},
		{"explicit value", "25", 25, false},
		{"capped at limit", "100000", storage.MaxListCap, false},
		{"zero rejected", "0", 0, true},
		{"negative rejected", "-5", 0, true},
		{"non-numeric rejected", "lots", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.ParseMaxResults(tt.value, 50)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMaxResults(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseMaxResults(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}
