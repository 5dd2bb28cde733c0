// Package global owns the SDK's single piece of global state: the current
// hub, start counters and the cached app-start measurement. Every mutation
// goes through the accessor methods so all mutation sites are auditable.
package global

import (
	"sync"
	"time"

	"github.com/faultline/faultline/internal/hub"
	"github.com/faultline/faultline/internal/log"
	"github.com/faultline/faultline/internal/model"
	"github.com/faultline/faultline/internal/scope"
)

// State is the lock-guarded global state cell. The hub reference and the
// app-start measurement are guarded by independent locks so measurement
// writes from the deferred init phase never contend with hub swaps.
type State struct {
	mu                   sync.Mutex
	currentHub           *hub.Hub
	startInvocations     uint64
	startTimestamp       *time.Time
	crashedLastRun       bool
	crashedLastRunCalled bool

	measMu      sync.Mutex
	measurement *model.AppStartMeasurement

	logger log.Logger
}

// NewState creates an empty state cell.
func NewState(logger log.Logger) *State {
	if logger == nil {
		logger = log.Noop
	}

	return &State{logger: logger.WithValues(log.Kv{"svc": "global.State"})}
}

// CurrentHub returns the current hub, lazily constructing a default
// client-less hub on first access. Concurrent first callers all observe the
// same lazily created hub.
func (s *State) CurrentHub() *hub.Hub {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentHub == nil {
		s.logger.Debugf("No hub installed, creating default no-client hub")
		s.currentHub = hub.New(nil, scope.New(0), s.logger)
	}

	return s.currentHub
}

// InstalledHub returns the current hub without lazy construction, nil when
// none has been installed.
func (s *State) InstalledHub() *hub.Hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentHub
}

// SetCurrentHub atomically replaces the current hub reference. Passing nil
// clears it.
func (s *State) SetCurrentHub(h *hub.Hub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentHub = h
}

// IsEnabled returns true iff a current hub exists with a bound client.
func (s *State) IsEnabled() bool {
	s.mu.Lock()
	h := s.currentHub
	s.mu.Unlock()

	return h != nil && h.Client() != nil
}

// RecordStart increments the start invocation counter and records the start
// timestamp. It returns the new invocation count.
func (s *State) RecordStart(ts time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startInvocations++
	s.startTimestamp = &ts

	return s.startInvocations
}

// ClearStartTimestamp drops the recorded start timestamp.
func (s *State) ClearStartTimestamp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTimestamp = nil
}

// StartInvocations returns how many times start has been invoked in this
// process.
func (s *State) StartInvocations() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startInvocations
}

// StartTimestamp returns the instant of the latest start, nil after close or
// before the first start.
func (s *State) StartTimestamp() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.startTimestamp == nil {
		return nil
	}
	ts := *s.startTimestamp
	return &ts
}

// SetCrashedLastRun latches the crashed-last-run verdict. Later writes are
// ignored so the answer is stable for the process lifetime.
func (s *State) SetCrashedLastRun(crashed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.crashedLastRunCalled {
		return
	}

	s.crashedLastRun = crashed
	s.crashedLastRunCalled = true
}

// CrashedLastRun returns the latched verdict and whether it has been set.
func (s *State) CrashedLastRun() (crashed bool, called bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crashedLastRun, s.crashedLastRunCalled
}

// SetAppStartMeasurement caches the app-start measurement. Nil clears it.
func (s *State) SetAppStartMeasurement(m *model.AppStartMeasurement) {
	s.measMu.Lock()
	defer s.measMu.Unlock()

	if m == nil {
		s.measurement = nil
		return
	}

	measurementCopy := *m
	s.measurement = &measurementCopy
}

// AppStartMeasurement returns a copy of the cached measurement, nil when the
// deferred init phase hasn't produced one yet.
func (s *State) AppStartMeasurement() *model.AppStartMeasurement {
	s.measMu.Lock()
	defer s.measMu.Unlock()

	if s.measurement == nil {
		return nil
	}

	measurementCopy := *s.measurement
	return &measurementCopy
}
