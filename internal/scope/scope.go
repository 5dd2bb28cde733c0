// Package scope holds the mutable contextual data (tags, breadcrumbs, user)
// attached to subsequent captures.
package scope

import (
	"sync"
	"time"

	"github.com/faultline/faultline/internal/model"
)

// Scope is the contextual state attached to captured events. It is safe for
// concurrent use.
type Scope struct {
	mu             sync.RWMutex
	level          model.Level
	tags           map[string]string
	extra          map[string]interface{}
	user           model.User
	breadcrumbs    []model.Breadcrumb
	maxBreadcrumbs int
}

// New creates an empty scope with the given breadcrumb cap.
func New(maxBreadcrumbs int) *Scope {
	if maxBreadcrumbs <= 0 {
		maxBreadcrumbs = 100
	}

	return &Scope{
		tags:           map[string]string{},
		extra:          map[string]interface{}{},
		maxBreadcrumbs: maxBreadcrumbs,
	}
}

// SetLevel sets the default level applied to events missing one.
func (s *Scope) SetLevel(level model.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
}

// SetTag sets a tag on the scope.
func (s *Scope) SetTag(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[key] = value
}

// RemoveTag removes a tag from the scope.
func (s *Scope) RemoveTag(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tags, key)
}

// SetExtra sets an extra context value on the scope.
func (s *Scope) SetExtra(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra[key] = value
}

// SetUser sets the user on the scope.
func (s *Scope) SetUser(user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// AddBreadcrumb appends a breadcrumb, dropping the oldest ones beyond the cap.
func (s *Scope) AddBreadcrumb(b model.Breadcrumb) {
	if b.Timestamp.IsZero() {
		b.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.breadcrumbs = append(s.breadcrumbs, b)
	if len(s.breadcrumbs) > s.maxBreadcrumbs {
		s.breadcrumbs = s.breadcrumbs[len(s.breadcrumbs)-s.maxBreadcrumbs:]
	}
}

// ClearBreadcrumbs drops the breadcrumb trail.
func (s *Scope) ClearBreadcrumbs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.breadcrumbs = nil
}

// Breadcrumbs returns a copy of the current breadcrumb trail.
func (s *Scope) Breadcrumbs() []model.Breadcrumb {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bs := make([]model.Breadcrumb, len(s.breadcrumbs))
	copy(bs, s.breadcrumbs)
	return bs
}

// Clone returns a deep copy of the scope. Mutating the clone never affects
// the original.
func (s *Scope) Clone() *Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := New(s.maxBreadcrumbs)
	c.level = s.level
	c.user = s.user
	for k, v := range s.tags {
		c.tags[k] = v
	}
	for k, v := range s.extra {
		c.extra[k] = v
	}
	c.breadcrumbs = make([]model.Breadcrumb, len(s.breadcrumbs))
	copy(c.breadcrumbs, s.breadcrumbs)

	return c
}

// ApplyToEvent enriches an event with the scope contents. Event fields
// already set take precedence over scope ones.
func (s *Scope) ApplyToEvent(ev model.Event) model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ev.Level == "" {
		ev.Level = s.level
	}

	if ev.User == (model.User{}) {
		ev.User = s.user
	}

	if len(s.tags) > 0 {
		if ev.Tags == nil {
			ev.Tags = map[string]string{}
		}
		for k, v := range s.tags {
			if _, ok := ev.Tags[k]; !ok {
				ev.Tags[k] = v
			}
		}
	}

	if len(s.extra) > 0 {
		if ev.Extra == nil {
			ev.Extra = map[string]interface{}{}
		}
		for k, v := range s.extra {
			if _, ok := ev.Extra[k]; !ok {
				ev.Extra[k] = v
			}
		}
	}

	if len(ev.Breadcrumbs) == 0 && len(s.breadcrumbs) > 0 {
		ev.Breadcrumbs = make([]model.Breadcrumb, len(s.breadcrumbs))
		copy(ev.Breadcrumbs, s.breadcrumbs)
	}

	return ev
}
