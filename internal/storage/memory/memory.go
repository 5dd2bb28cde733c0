package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/faultline/faultline/internal/log"
	"github.com/faultline/faultline/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	envelopes       map[string]model.Envelope
	appState        *model.AppState
	prevAppState    *model.AppState
	breadcrumbs     []model.Breadcrumb
	prevBreadcrumbs []model.Breadcrumb
	mu              sync.RWMutex
	logger          log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		envelopes: make(map[string]model.Envelope),
		logger:    cfg.Logger,
	}, nil
}

// StoreEnvelope stores an envelope in the repository.
func (r *Repository) StoreEnvelope(ctx context.Context, e model.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.envelopes[e.ID]; ok {
		return fmt.Errorf("envelope with id %s: %w", e.ID, model.ErrAlreadyExists)
	}

	r.envelopes[e.ID] = e
	r.logger.Debugf("Stored envelope in repository: %s", e.ID)

	return nil
}

// GetEnvelope retrieves an envelope by ID.
func (r *Repository) GetEnvelope(ctx context.Context, id string) (*model.Envelope, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.envelopes[id]
	if !ok {
		return nil, fmt.Errorf("envelope %s: %w", id, model.ErrNotFound)
	}

	// Return a copy.
	envelopeCopy := e
	return &envelopeCopy, nil
}

// ListEnvelopes returns all stored envelopes ordered by creation time.
func (r *Repository) ListEnvelopes(ctx context.Context) ([]model.Envelope, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	es := make([]model.Envelope, 0, len(r.envelopes))
	for _, e := range r.envelopes {
		es = append(es, e)
	}
	sort.Slice(es, func(i, j int) bool {
		if es[i].CreatedAt.Equal(es[j].CreatedAt) {
			return es[i].ID < es[j].ID
		}
		return es[i].CreatedAt.Before(es[j].CreatedAt)
	})

	return es, nil
}

// DeleteEnvelope removes an envelope by ID.
func (r *Repository) DeleteEnvelope(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.envelopes[id]; !ok {
		return fmt.Errorf("envelope %s: %w", id, model.ErrNotFound)
	}

	delete(r.envelopes, id)
	return nil
}

// SaveAppState writes the current launch state slot.
func (r *Repository) SaveAppState(ctx context.Context, s model.AppState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stateCopy := s
	r.appState = &stateCopy
	return nil
}

// PreviousAppState returns the previous launch state slot.
func (r *Repository) PreviousAppState(ctx context.Context) (*model.AppState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.prevAppState == nil {
		return nil, fmt.Errorf("previous app state: %w", model.ErrNotFound)
	}

	stateCopy := *r.prevAppState
	return &stateCopy, nil
}

// MoveAppStateToPreviousAppState rotates the current app state slot into the
// previous one, emptying the current slot.
func (r *Repository) MoveAppStateToPreviousAppState(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prevAppState = r.appState
	r.appState = nil
	return nil
}

// AppendBreadcrumb appends a breadcrumb to the current launch slot.
func (r *Repository) AppendBreadcrumb(ctx context.Context, b model.Breadcrumb) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.breadcrumbs = append(r.breadcrumbs, b)
	return nil
}

// PreviousBreadcrumbs returns the breadcrumbs of the previous launch.
func (r *Repository) PreviousBreadcrumbs(ctx context.Context) ([]model.Breadcrumb, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bs := make([]model.Breadcrumb, len(r.prevBreadcrumbs))
	copy(bs, r.prevBreadcrumbs)
	return bs, nil
}

// MoveBreadcrumbsToPreviousBreadcrumbs rotates current breadcrumbs into the
// previous slot, emptying the current one.
func (r *Repository) MoveBreadcrumbsToPreviousBreadcrumbs(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prevBreadcrumbs = r.breadcrumbs
	r.breadcrumbs = nil
	return nil
}

// Close releases the repository. It is a no-op for the memory implementation.
func (r *Repository) Close() error { return nil }
