package training

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fieldline/curator/internal/records"
)

// Trainer runs one model training pass over a dataset and returns the
// storage path of the produced artifact.
type Trainer interface {
	Train(ctx context.Context, job *Job, dataset []records.Record) (string, error)
}

// trainRequest is the payload sent to the training service.
type trainRequest struct {
	ModelName     string           `json:"model_name"`
	DocumentTypes []string         `json:"document_types"`
	Samples       []records.Record `json:"samples"`
}

// trainResponse is the result returned by the training service.
type trainResponse struct {
	ArtifactPath string `json:"artifact_path"`
}

// RemoteTrainer trains models through an external HTTP training service.
// The service uploads the artifact and its metadata to blob storage and
// responds with the artifact path.
type RemoteTrainer struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewRemoteTrainer creates a RemoteTrainer for the given service endpoint.
// The client timeout bounds each training call independently of the
// caller's context.
func NewRemoteTrainer(endpoint, token string, timeout time.Duration) *RemoteTrainer {
	return &RemoteTrainer{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
	}
}

func (t *RemoteTrainer) Train(ctx context.Context, job *Job, dataset []records.Record) (string, error) {
	payload, err := json.Marshal(trainRequest{
		ModelName:     job.ModelName,
		DocumentTypes: job.DocumentTypes,
		Samples:       dataset,
	})
	if err != nil {
		return "", fmt.Errorf("marshal train request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		t.endpoint+"/train",
		bytes.NewReader(payload),
	)
	if err != nil {
		return "", fmt.Errorf("build train request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call training service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("training service returned %d: %s", resp.StatusCode, body)
	}

	var result trainResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode train response: %w", err)
	}

	if result.ArtifactPath == "" {
		return "", fmt.Errorf("training service returned empty artifact path")
	}

	return result.ArtifactPath, nil
}
