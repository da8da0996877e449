package training

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline/curator/internal/records"
)

func TestModelName(t *testing.T) {
	tests := []struct {
		documentType string
		want         string
	}{
		{"invoice", "invoice-extractor"},
		{"purchase_order", "purchase_order-extractor"},
	}

	for _, tt := range tests {
		if got := ModelName(tt.documentType); got != tt.want {
			t.Errorf("ModelName(%q) = %q, want %q", tt.documentType, got, tt.want)
		}
	}
}

func TestJobStatusActive(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{StatusPending, true},
		{StatusRunning, true},
		{StatusCompleted, false},
		{StatusFailed, false},
	}

	for _, tt := range tests {
		if got := tt.status.Active(); got != tt.want {
			t.Errorf("Active(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestGateSingleHolder(t *testing.T) {
	g := newGate()

	if !g.acquire("invoice-extractor") {
		t.Fatal("first acquire should succeed")
	}
	if g.acquire("invoice-extractor") {
		t.Error("second acquire for the same model should fail")
	}
	if !g.acquire("receipt-extractor") {
		t.Error("acquire for a different model should succeed")
	}

	g.release("invoice-extractor")
	if !g.acquire("invoice-extractor") {
		t.Error("acquire after release should succeed")
	}
}

func TestGateConcurrentAcquire(t *testing.T) {
	g := newGate()

	const attempts = 64
	var wins atomic.Int32
	var wg sync.WaitGroup

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.acquire("invoice-extractor") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("concurrent acquires won %d times, want exactly 1", got)
	}
}

func trainJob() *Job {
	return &Job{
		ID:            uuid.New(),
		ModelName:     "invoice-extractor",
		Trigger:       TriggerManual,
		DocumentTypes: []string{"invoice"},
		Status:        StatusRunning,
	}
}

func TestRemoteTrainerTrain(t *testing.T) {
	var gotAuth string
	var gotReq trainRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/train" {
			t.Errorf("path = %q, want /train", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(trainResponse{ArtifactPath: "models/invoice-extractor/v3/model.bin"})
	}))
	defer srv.Close()

	trainer := NewRemoteTrainer(srv.URL, "token-123", 5*time.Second)
	dataset := []records.Record{{ID: uuid.New(), DocumentType: "invoice"}}

	path, err := trainer.Train(context.Background(), trainJob(), dataset)
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}

	if path != "models/invoice-extractor/v3/model.bin" {
		t.Errorf("artifact path = %q", path)
	}
	if gotAuth != "Bearer token-123" {
		t.Errorf("authorization = %q, want bearer token", gotAuth)
	}
	if gotReq.ModelName != "invoice-extractor" {
		t.Errorf("model name = %q", gotReq.ModelName)
	}
	if len(gotReq.Samples) != 1 {
		t.Errorf("samples = %d, want 1", len(gotReq.Samples))
	}
}

func TestRemoteTrainerServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gpu pool exhausted", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	trainer := NewRemoteTrainer(srv.URL, "", 5*time.Second)

	_, err := trainer.Train(context.Background(), trainJob(), nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error %q does not carry the status code", err.Error())
	}
	if !strings.Contains(err.Error(), "gpu pool exhausted") {
		t.Errorf("error %q does not carry the response body", err.Error())
	}
}

func TestRemoteTrainerEmptyArtifactPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(trainResponse{})
	}))
	defer srv.Close()

	trainer := NewRemoteTrainer(srv.URL, "", 5*time.Second)

	_, err := trainer.Train(context.Background(), trainJob(), nil)
	if err == nil {
		t.Fatal("expected error for empty artifact path")
	}
	if !strings.Contains(err.Error(), "artifact path") {
		t.Errorf("error %q does not mention artifact path", err.Error())
	}
}

func TestRemoteTrainerContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	trainer := NewRemoteTrainer(srv.URL, "", time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := trainer.Train(ctx, trainJob(), nil); err == nil {
		t.Fatal("expected error when context is cancelled")
	}
}
