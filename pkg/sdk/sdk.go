package sdk

import (
	"context"
	"sync"
	"time"

	"github.com/faultline/faultline/internal/global"
	"github.com/faultline/faultline/internal/hub"
	"github.com/faultline/faultline/internal/lifecycle"
	"github.com/faultline/faultline/internal/log"
)

// Version is the SDK version stamped on launch records.
const Version = "0.1.0"

var (
	controllerMu sync.Mutex
	controller   *lifecycle.Controller
)

// defaultController lazily builds the process-wide lifecycle controller.
// Concurrent first callers all observe the same instance.
func defaultController() *lifecycle.Controller {
	controllerMu.Lock()
	defer controllerMu.Unlock()

	if controller == nil {
		c, err := lifecycle.NewController(lifecycle.ControllerConfig{
			State:      global.NewState(log.Noop),
			SDKVersion: Version,
		})
		if err != nil {
			// Unreachable: the default config is always valid.
			panic(err)
		}
		controller = c
	}

	return controller
}

// currentHub resolves the current hub fresh on every call, lazily creating
// the default no-client hub so pre-start calls no-op instead of failing.
func currentHub() *hub.Hub {
	return defaultController().State().CurrentHub()
}

// Start brings the monitoring SDK up with the given options. Calling Start
// while already started replaces the current hub and reinstalls integrations
// for a new epoch. Start never fails; anomalies are diagnostics only.
func Start(opts Options) {
	defaultController().Start(context.Background(), &opts)
}

// Close tears the SDK down: integrations are uninstalled, platform observers
// stopped, the current client flushed and released. Safe to call when never
// started.
func Close() {
	defaultController().Close(context.Background())
}

// CurrentHub returns the hub all captures are currently routed through.
func CurrentHub() *Hub {
	return currentHub()
}

// IsEnabled returns true iff the SDK has a current hub with a bound client.
func IsEnabled() bool {
	return defaultController().State().IsEnabled()
}

// CaptureEvent captures an event enriched with the current scope. It returns
// an empty EventID before the first Start or after Close.
func CaptureEvent(ev Event) EventID {
	return currentHub().CaptureEvent(context.Background(), ev)
}

// CaptureEventWithScope captures an event enriched with a private copy of
// the current scope to which fn has been applied; the live scope is never
// mutated by the capture.
func CaptureEventWithScope(ev Event, fn func(*Scope)) EventID {
	return currentHub().CaptureEventWithScope(context.Background(), ev, fn)
}

// CaptureError captures a Go error as an error-level event.
func CaptureError(err error) EventID {
	return currentHub().CaptureError(context.Background(), err)
}

// CaptureException captures an explicit exception value.
func CaptureException(exc Exception) EventID {
	return currentHub().CaptureException(context.Background(), exc)
}

// CaptureMessage captures a plain message as an info-level event.
func CaptureMessage(message string) EventID {
	return currentHub().CaptureMessage(context.Background(), message)
}

// AddBreadcrumb records a breadcrumb on the current scope.
func AddBreadcrumb(b Breadcrumb) {
	currentHub().AddBreadcrumb(b)
}

// ConfigureScope applies fn to the live current scope.
func ConfigureScope(fn func(*Scope)) {
	currentHub().ConfigureScope(fn)
}

// StartSession begins a new session on the current hub.
func StartSession() {
	currentHub().StartSession(context.Background())
}

// EndSession finishes the running session on the current hub.
func EndSession() {
	currentHub().EndSession(context.Background())
}

// Flush forwards a bounded wait for pending envelope writes to the current
// hub. Returns false when the timeout expired first.
func Flush(timeout time.Duration) bool {
	return currentHub().Flush(timeout)
}

// CrashedLastRun returns whether the previous launch of the host application
// ended in a crash. The first resolved verdict is latched for the process
// lifetime.
func CrashedLastRun() bool {
	return defaultController().CrashedLastRun()
}

// StartInvocations returns how many times Start has been invoked in this
// process, across restarts.
func StartInvocations() uint64 {
	return defaultController().State().StartInvocations()
}

// StartTimestamp returns the instant of the latest Start, nil before the
// first Start or after Close.
func StartTimestamp() *time.Time {
	return defaultController().State().StartTimestamp()
}

// SetAppStartMeasurement caches the app-launch timing measurement.
func SetAppStartMeasurement(m *AppStartMeasurement) {
	defaultController().State().SetAppStartMeasurement(m)
}

// CurrentAppStartMeasurement returns the cached app-launch timing
// measurement, nil until the deferred platform phase has produced one.
func CurrentAppStartMeasurement() *AppStartMeasurement {
	return defaultController().State().AppStartMeasurement()
}
