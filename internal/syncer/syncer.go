package syncer

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/wavelet-player/wavelet/internal/catalog"
	"github.com/wavelet-player/wavelet/internal/remote"
	"github.com/wavelet-player/wavelet/internal/shared"
)

// Result summarizes one class sync.
type Result struct {
	Class      catalog.EntityClass
	Records    int                // changed plus removed records applied
	Checkpoint catalog.Checkpoint // checkpoint after the sync
	Full       bool               // true when the checkpoint was ignored
}

// Engine reconciles the catalog store with the remote service.
type Engine struct {
	store  *catalog.Store
	client remote.Client
	logger *log.Logger

	mu       sync.Mutex
	inFlight map[catalog.EntityClass]*sync.Mutex
}

// NewEngine creates a sync engine over the given store and remote client.
func NewEngine(store *catalog.Store, client remote.Client, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		store:    store,
		client:   client,
		logger:   logger,
		inFlight: make(map[catalog.EntityClass]*sync.Mutex),
	}
}

// classLock returns the serialization lock for one entity class.
func (e *Engine) classLock(class catalog.EntityClass) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.inFlight[class]
	if !ok {
		lock = &sync.Mutex{}
		e.inFlight[class] = lock
	}
	return lock
}

// SyncIncremental syncs one entity class from its stored checkpoint. Calls for
// the same class are serialized; the second caller waits for the first.
func (e *Engine) SyncIncremental(ctx context.Context, class catalog.EntityClass) (*Result, error) {
	return e.syncClass(ctx, class, false)
}

// SyncFull syncs one entity class ignoring its checkpoint, requesting the whole
// class. Used on first run and to recover from a corrupt store.
func (e *Engine) SyncFull(ctx context.Context, class catalog.EntityClass) (*Result, error) {
	return e.syncClass(ctx, class, true)
}

// SyncAll incrementally syncs every entity class in dependency order, stopping
// at the first failure.
func (e *Engine) SyncAll(ctx context.Context) ([]Result, error) {
	return e.syncAll(ctx, false)
}

// Rebuild clears the store and performs a full sync of every class. This is the
// recovery path for [shared.ErrCorruptStore].
func (e *Engine) Rebuild(ctx context.Context) ([]Result, error) {
	if err := e.store.Reset(); err != nil {
		return nil, fmt.Errorf("failed to reset store: %w", err)
	}
	e.logger.Warn("catalog store reset, rebuilding from full sync")
	return e.syncAll(ctx, true)
}

func (e *Engine) syncAll(ctx context.Context, full bool) ([]Result, error) {
	var results []Result
	for _, class := range catalog.Classes() {
		result, err := e.syncClass(ctx, class, full)
		if err != nil {
			return results, err
		}
		results = append(results, *result)
	}
	return results, nil
}

// syncClass runs the checkpoint -> fetch -> apply -> advance sequence for one
// class. The checkpoint advance happens strictly after Apply commits.
func (e *Engine) syncClass(ctx context.Context, class catalog.EntityClass, full bool) (*Result, error) {
	lock := e.classLock(class)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var since catalog.Checkpoint
	if !full {
		var err error
		since, err = e.store.Checkpoint(class)
		if err != nil {
			return nil, err
		}
	}

	delta, err := e.client.FetchDelta(ctx, class, since)
	if err != nil {
		return nil, fmt.Errorf("fetch delta for %s: %w", class, err)
	}
	if delta.Class != class {
		return nil, fmt.Errorf("%w: delta class %q does not match requested %q", shared.ErrNetwork, delta.Class, class)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !delta.Empty() {
		if err := e.store.Apply(*delta); err != nil {
			return nil, fmt.Errorf("apply delta for %s: %w", class, err)
		}
	}

	if err := e.store.AdvanceCheckpoint(class, delta.Checkpoint); err != nil {
		return nil, fmt.Errorf("advance checkpoint for %s: %w", class, err)
	}

	e.logger.Info("synced entity class",
		"class", class, "records", delta.Size(), "full", full, "checkpoint", delta.Checkpoint)

	return &Result{
		Class:      class,
		Records:    delta.Size(),
		Checkpoint: delta.Checkpoint,
		Full:       full,
	}, nil
}
