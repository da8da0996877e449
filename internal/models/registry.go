package models

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/fieldline/curator/pkg/lifecycle"
	"github.com/fieldline/curator/pkg/storage"
)

// pointerKey is the blob holding the persisted active pointer.
const pointerKey = "models/active.json"

// artifactPrefix is the blob namespace for trained model artifacts.
const artifactPrefix = "models/"

type registry struct {
	storage storage.System
	loader  Loader
	logger  *slog.Logger

	// activateMu serializes writers; mu guards pointer access.
	activateMu sync.Mutex
	mu         sync.RWMutex
	active     *Pointer
}

// New creates a model registry implementing the System interface.
func New(store storage.System, loader Loader, logger *slog.Logger) System {
	return &registry{
		storage: store,
		loader:  loader,
		logger:  logger.With("system", "models"),
	}
}

func (r *registry) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *registry) Start(lc *lifecycle.Coordinator) error {
	r.logger.Info("starting model registry")

	lc.OnStartup(func() {
		ctx := lc.Context()

		if restored, err := r.restore(ctx); err == nil {
			r.logger.Info(
				"active model restored",
				"model", restored.ModelName,
				"artifact", restored.ArtifactPath,
			)
			return
		} else if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Error("restore active model failed", "error", err)
			return
		}

		if _, err := r.AutoActivateLatest(ctx); err != nil {
			if errors.Is(err, ErrNoModels) {
				r.logger.Info("no model artifacts found, inference will use pattern fallback")
				return
			}
			r.logger.Error("auto-activate latest model failed", "error", err)
		}
	})

	return nil
}

// restore reloads the persisted pointer, re-verifying its artifact.
func (r *registry) restore(ctx context.Context) (*Pointer, error) {
	result, err := r.storage.Download(ctx, pointerKey)
	if err != nil {
		return nil, err
	}
	defer result.Body.Close()

	var pointer Pointer
	if err := json.NewDecoder(result.Body).Decode(&pointer); err != nil {
		return nil, fmt.Errorf("decode active pointer: %w", err)
	}

	if _, err := r.loader.Load(ctx, pointer.ModelName, pointer.ArtifactPath); err != nil {
		return nil, fmt.Errorf("verify restored model: %w", err)
	}

	r.mu.Lock()
	r.active = &pointer
	r.mu.Unlock()

	return &pointer, nil
}

func (r *registry) Active() (Pointer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.active == nil {
		return Pointer{}, ErrNoActive
	}
	return *r.active, nil
}

func (r *registry) ActivateModel(ctx context.Context, cmd ActivateCommand) (*Pointer, error) {
	r.activateMu.Lock()
	defer r.activateMu.Unlock()

	metadata, err := r.loader.Load(ctx, cmd.ModelName, cmd.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", cmd.ModelName, err)
	}

	pointer := &Pointer{
		ModelName:    cmd.ModelName,
		ArtifactPath: cmd.ArtifactPath,
		Metadata:     *metadata,
		ActivatedAt:  time.Now().UTC(),
	}

	r.mu.Lock()
	previous := r.active
	r.active = pointer
	r.mu.Unlock()

	if err := r.persist(ctx, pointer); err != nil {
		r.mu.Lock()
		r.active = previous
		r.mu.Unlock()
		return nil, fmt.Errorf("persist active pointer: %w", err)
	}

	r.logger.Info(
		"model activated",
		"model", pointer.ModelName,
		"artifact", pointer.ArtifactPath,
	)
	return pointer, nil
}

func (r *registry) persist(ctx context.Context, pointer *Pointer) error {
	raw, err := json.Marshal(pointer)
	if err != nil {
		return err
	}
	return r.storage.Upload(ctx, pointerKey, bytes.NewReader(raw), "application/json")
}

func (r *registry) AutoActivateLatest(ctx context.Context) (*Pointer, error) {
	blobs, err := r.storage.List(ctx, artifactPrefix, storage.MaxListCap)
	if err != nil {
		return nil, fmt.Errorf("list model artifacts: %w", err)
	}

	var latest *Metadata
	for _, b := range blobs {
		if path.Base(b.Key) != "metadata.json" || b.Key == pointerKey {
			continue
		}

		metadata, err := r.readMetadata(ctx, b.Key)
		if err != nil {
			r.logger.Warn("skipping unreadable model metadata", "key", b.Key, "error", err)
			continue
		}

		if metadata.ArtifactPath == "" {
			metadata.ArtifactPath = path.Join(path.Dir(b.Key), "model.bin")
		}

		if latest == nil || metadata.Timestamp.After(latest.Timestamp) {
			latest = metadata
		}
	}

	if latest == nil {
		return nil, ErrNoModels
	}

	return r.ActivateModel(ctx, ActivateCommand{
		ModelName:    latest.ModelName,
		ArtifactPath: latest.ArtifactPath,
	})
}

func (r *registry) readMetadata(ctx context.Context, key string) (*Metadata, error) {
	result, err := r.storage.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer result.Body.Close()

	var metadata Metadata
	if err := json.NewDecoder(result.Body).Decode(&metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

func (r *registry) ClearActive(ctx context.Context) error {
	r.activateMu.Lock()
	defer r.activateMu.Unlock()

	if err := r.storage.Delete(ctx, pointerKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete active pointer: %w", err)
	}

	r.mu.Lock()
	r.active = nil
	r.mu.Unlock()

	r.logger.Info("active model cleared")
	return nil
}
