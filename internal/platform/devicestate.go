package platform

import (
	"os"
	"runtime"
	"sync"

	"github.com/faultline/faultline/internal/log"
)

// DeviceState is a snapshot of the host environment attached to captures.
type DeviceState struct {
	Hostname  string
	OS        string
	Arch      string
	NumCPU    int
	GoVersion string
	PID       int
}

// DeviceStateObserver observes the host device state. It is activated by the
// deferred init phase and stopped on Close.
type DeviceStateObserver struct {
	logger log.Logger

	mu     sync.RWMutex
	active bool
	state  DeviceState
}

// NewDeviceStateObserver creates an inactive observer.
func NewDeviceStateObserver(logger log.Logger) *DeviceStateObserver {
	if logger == nil {
		logger = log.Noop
	}
	return &DeviceStateObserver{
		logger: logger.WithValues(log.Kv{"svc": "platform.DeviceStateObserver"}),
	}
}

// Start takes the initial snapshot and activates the observer. Idempotent.
func (o *DeviceStateObserver) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active {
		return
	}
	o.active = true

	hostname, _ := os.Hostname()
	o.state = DeviceState{
		Hostname:  hostname,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
		GoVersion: runtime.Version(),
		PID:       os.Getpid(),
	}
	o.logger.Debugf("Device state snapshot taken (host %q)", hostname)
}

// Stop deactivates the observer. Idempotent.
func (o *DeviceStateObserver) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.active = false
	o.state = DeviceState{}
}

// Active reports whether the observer has been started.
func (o *DeviceStateObserver) Active() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.active
}

// State returns the last observed device state.
func (o *DeviceStateObserver) State() DeviceState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}
