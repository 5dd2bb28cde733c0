package platform

import "sync"

// CrashReporter answers whether the previous launch ended in a crash. The
// verdict is set by the crash-report integration after inspecting the
// previous launch record.
type CrashReporter struct {
	mu       sync.RWMutex
	crashed  bool
	resolved bool
}

// NewCrashReporter creates a reporter with no verdict yet.
func NewCrashReporter() *CrashReporter {
	return &CrashReporter{}
}

// SetCrashedLastLaunch records the crash verdict for the previous launch.
func (r *CrashReporter) SetCrashedLastLaunch(crashed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.crashed = crashed
	r.resolved = true
}

// CrashedLastLaunch returns the verdict and whether it has been resolved.
func (r *CrashReporter) CrashedLastLaunch() (crashed bool, resolved bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.crashed, r.resolved
}
