// Package models implements the active model registry for Curator.
// The registry tracks which trained extraction model serves inference.
// Activation is an atomic swap: a candidate artifact is loaded and
// verified first, and the previous pointer survives any failure so the
// registry never references an unloadable model.
package models

import "time"

// Metadata describes one trained model artifact, stored as metadata.json
// alongside the artifact in blob storage.
type Metadata struct {
	ModelName     string    `json:"model_name"`
	ArtifactPath  string    `json:"artifact_path,omitempty"`
	Version       string    `json:"version,omitempty"`
	DocumentTypes []string  `json:"document_types,omitempty"`
	SampleCount   int       `json:"sample_count,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Pointer identifies the currently active model.
type Pointer struct {
	ModelName    string    `json:"model_name"`
	ArtifactPath string    `json:"artifact_path"`
	Metadata     Metadata  `json:"metadata"`
	ActivatedAt  time.Time `json:"activated_at"`
}

// ActivateCommand carries the data needed to activate a model.
type ActivateCommand struct {
	ModelName    string `json:"model_name"`
	ArtifactPath string `json:"artifact_path"`
}
