package models

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/fieldline/curator/pkg/storage"
)

// Loader verifies a model artifact and produces its metadata. Activation
// only proceeds when the loader succeeds.
type Loader interface {
	Load(ctx context.Context, modelName, artifactPath string) (*Metadata, error)
}

// blobLoader loads models from blob storage: the artifact must exist and
// its sibling metadata.json must parse.
type blobLoader struct {
	storage storage.System
}

// NewBlobLoader creates a Loader backed by blob storage.
func NewBlobLoader(store storage.System) Loader {
	return &blobLoader{storage: store}
}

func (l *blobLoader) Load(ctx context.Context, modelName, artifactPath string) (*Metadata, error) {
	exists, err := l.storage.Exists(ctx, artifactPath)
	if err != nil {
		return nil, fmt.Errorf("check artifact %s: %w", artifactPath, err)
	}
	if !exists {
		return nil, fmt.Errorf("artifact %s: %w", artifactPath, storage.ErrNotFound)
	}

	metadataKey := path.Join(path.Dir(artifactPath), "metadata.json")
	result, err := l.storage.Download(ctx, metadataKey)
	if err != nil {
		return nil, fmt.Errorf("download metadata %s: %w", metadataKey, err)
	}
	defer result.Body.Close()

	var metadata Metadata
	if err := json.NewDecoder(result.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", metadataKey, err)
	}

	if metadata.ModelName == "" {
		metadata.ModelName = modelName
	}

	return &metadata, nil
}
