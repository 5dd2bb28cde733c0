// Package platform holds the process-wide platform dependency singletons the
// deferred init phase starts and Close resets as a group.
package platform

import (
	"sync"

	"github.com/faultline/faultline/internal/log"
)

// Scheduler is the narrow capability the lifecycle controller needs to defer
// platform-bound startup work onto the host's serial execution context.
type Scheduler interface {
	// Schedule queues a task for asynchronous serial execution. It never
	// blocks the caller.
	Schedule(task func())
}

// Deps is the platform dependency singleton group.
type Deps struct {
	Scheduler     Scheduler
	ImageCache    *BinaryImageCache
	DeviceState   *DeviceStateObserver
	CrashReporter *CrashReporter
	Clock         *Clock
}

// NewDeps creates a fresh dependency group.
func NewDeps(logger log.Logger) *Deps {
	if logger == nil {
		logger = log.Noop
	}

	return &Deps{
		Scheduler:     NewRunLoop(),
		ImageCache:    NewBinaryImageCache(logger),
		DeviceState:   NewDeviceStateObserver(logger),
		CrashReporter: NewCrashReporter(),
		Clock:         NewClock(),
	}
}

var (
	sharedMu   sync.Mutex
	sharedDeps *Deps
)

// Shared returns the process-wide dependency group, building it lazily.
func Shared() *Deps {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedDeps == nil {
		sharedDeps = NewDeps(log.Noop)
	}

	return sharedDeps
}

// Reset discards the process-wide dependency group so a following start
// rebuilds it from scratch. Running singletons are stopped first.
func Reset() {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedDeps == nil {
		return
	}

	sharedDeps.DeviceState.Stop()
	sharedDeps.ImageCache.Stop()
	if rl, ok := sharedDeps.Scheduler.(*RunLoop); ok {
		rl.Stop()
	}
	sharedDeps = nil
}
