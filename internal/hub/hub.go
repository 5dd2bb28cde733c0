// Package hub pairs a client with a scope. All capture calls are routed
// through the hub currently installed in the global state cell.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/faultline/faultline/internal/client"
	"github.com/faultline/faultline/internal/log"
	"github.com/faultline/faultline/internal/model"
	"github.com/faultline/faultline/internal/scope"
)

// Hub is the live pairing of a client and a scope. A hub without a bound
// client degrades every capture to a no-op returning an empty event ID, so
// facade calls before Start never fail. It is safe for concurrent use.
type Hub struct {
	mu           sync.RWMutex
	client       *client.Client
	scope        *scope.Scope
	session      *model.Session
	integrations map[string]struct{}
	logger       log.Logger
}

// New creates a hub. A nil client is valid and produces a no-op hub.
func New(c *client.Client, sc *scope.Scope, logger log.Logger) *Hub {
	if sc == nil {
		sc = scope.New(0)
	}
	if logger == nil {
		logger = log.Noop
	}

	return &Hub{
		client:       c,
		scope:        sc,
		integrations: map[string]struct{}{},
		logger:       logger.WithValues(log.Kv{"svc": "hub.Hub"}),
	}
}

// Client returns the currently bound client, nil when none is bound.
func (h *Hub) Client() *client.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.client
}

// BindClient replaces the bound client. Binding nil detaches the hub from
// any capture routing.
func (h *Hub) BindClient(c *client.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.client = c
}

// Scope returns the hub's live scope.
func (h *Hub) Scope() *scope.Scope {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.scope
}

// ConfigureScope applies fn to the live scope.
func (h *Hub) ConfigureScope(fn func(*scope.Scope)) {
	fn(h.Scope())
}

// CaptureEvent captures an event enriched with the current scope.
func (h *Hub) CaptureEvent(ctx context.Context, ev model.Event) model.EventID {
	return h.capture(ctx, ev, h.Scope())
}

// CaptureEventWithScope captures an event enriched with a private copy of
// the current scope to which fn has been applied. The live scope is never
// mutated.
func (h *Hub) CaptureEventWithScope(ctx context.Context, ev model.Event, fn func(*scope.Scope)) model.EventID {
	sc := h.Scope().Clone()
	if fn != nil {
		fn(sc)
	}
	return h.capture(ctx, ev, sc)
}

// CaptureMessage captures a plain message.
func (h *Hub) CaptureMessage(ctx context.Context, message string) model.EventID {
	return h.CaptureEvent(ctx, model.NewMessageEvent(message))
}

// CaptureError captures a Go error.
func (h *Hub) CaptureError(ctx context.Context, err error) model.EventID {
	if err == nil {
		return model.EmptyEventID
	}
	return h.CaptureEvent(ctx, model.NewErrorEvent(err))
}

// CaptureException captures an explicit exception value.
func (h *Hub) CaptureException(ctx context.Context, exc model.Exception) model.EventID {
	return h.CaptureEvent(ctx, model.Event{
		Level:      model.LevelError,
		Exceptions: []model.Exception{exc},
	})
}

// AddBreadcrumb records a breadcrumb on the live scope and persists it to
// the current launch slot, so the trail survives a crash.
func (h *Hub) AddBreadcrumb(b model.Breadcrumb) {
	if b.Timestamp.IsZero() {
		b.Timestamp = time.Now().UTC()
	}

	h.Scope().AddBreadcrumb(b)

	if c := h.Client(); c != nil {
		c.RecordBreadcrumb(b)
	}
}

// StartSession begins a new session, replacing any running one.
func (h *Hub) StartSession(ctx context.Context) {
	c := h.Client()
	if c == nil {
		return
	}

	s := model.NewSession(c.Options().Release, c.Options().Environment)

	h.mu.Lock()
	h.session = &s
	h.mu.Unlock()

	h.logger.Debugf("Session started: %s", s.ID)
}

// EndSession finishes the running session and hands it to the client. It is
// a no-op when no session is running.
func (h *Hub) EndSession(ctx context.Context) {
	h.mu.Lock()
	s := h.session
	h.session = nil
	h.mu.Unlock()

	c := h.Client()
	if s == nil || c == nil {
		return
	}

	s.End()
	if err := c.CaptureSession(ctx, *s); err != nil {
		h.logger.Warningf("Could not capture session %s: %s", s.ID, err)
		return
	}

	h.logger.Debugf("Session ended: %s", s.ID)
}

// Flush forwards a bounded wait to the bound client. Returns true when there
// is nothing to wait for.
func (h *Hub) Flush(timeout time.Duration) bool {
	c := h.Client()
	if c == nil {
		return true
	}
	return c.Flush(timeout)
}

// Close ends the running session and closes the bound client, flushing its
// pending envelopes. The client stays bound; callers detach it explicitly
// with BindClient(nil).
func (h *Hub) Close(ctx context.Context) {
	h.EndSession(ctx)

	c := h.Client()
	if c == nil {
		return
	}

	if err := c.Close(); err != nil {
		h.logger.Warningf("Could not close client: %s", err)
	}
}

// AddInstalledIntegration records an installed integration identifier.
func (h *Hub) AddInstalledIntegration(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.integrations[name] = struct{}{}
}

// IsIntegrationInstalled checks whether an integration identifier has been
// installed on this hub.
func (h *Hub) IsIntegrationInstalled(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.integrations[name]
	return ok
}

// RemoveAllIntegrationNames clears the installed integration identifiers.
func (h *Hub) RemoveAllIntegrationNames() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.integrations = map[string]struct{}{}
}

func (h *Hub) capture(ctx context.Context, ev model.Event, sc *scope.Scope) model.EventID {
	c := h.Client()
	if c == nil {
		return model.EmptyEventID
	}

	id := c.CaptureEvent(ctx, ev, sc)

	if id != model.EmptyEventID && (ev.Level == model.LevelError || ev.Level == model.LevelFatal) {
		h.mu.Lock()
		if h.session != nil {
			h.session.ErrorCount++
			h.session.Status = model.SessionStatusErrored
		}
		h.mu.Unlock()
	}

	return id
}
