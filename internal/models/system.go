package models

import (
	"context"

	"github.com/fieldline/curator/pkg/lifecycle"
)

// System defines the public contract for the active model registry.
type System interface {
	Handler() *Handler

	// Start registers a startup hook that restores the persisted pointer,
	// falling back to the newest stored artifact when no pointer exists.
	Start(lc *lifecycle.Coordinator) error
	// ActivateModel loads and verifies an artifact, then atomically swaps
	// the active pointer. A failed load or a failed pointer persist leaves
	// the previous pointer in place.
	ActivateModel(ctx context.Context, cmd ActivateCommand) (*Pointer, error)
	// Active returns a snapshot of the current pointer, or ErrNoActive.
	Active() (Pointer, error)
	// AutoActivateLatest activates the stored artifact with the newest
	// metadata timestamp. Returns ErrNoModels when none exist.
	AutoActivateLatest(ctx context.Context) (*Pointer, error)
	// ClearActive removes the pointer; inference falls back to
	// pattern-based extraction until a model is activated again.
	ClearActive(ctx context.Context) error
}
