// Package integration resolves configured integration identifiers to plugin
// instances and drives their install/uninstall protocol.
package integration

import (
	"fmt"
	"sync"

	"github.com/faultline/faultline/internal/hub"
	"github.com/faultline/faultline/internal/log"
	"github.com/faultline/faultline/internal/options"
	"github.com/faultline/faultline/internal/platform"
)

// Integration is an optional plugin installed at start time that extends the
// SDK behavior.
type Integration interface {
	// Name is the identifier the integration is configured by.
	Name() string
	// Install wires the integration. Returning false discards the instance
	// without registering it.
	Install(opts *options.Options) bool
	// Uninstall tears the integration down. Called on SDK close.
	Uninstall()
}

// Deps are the collaborators handed to integration factories at install time.
type Deps struct {
	Hub      *hub.Hub
	Platform *platform.Deps
	Logger   log.Logger
	// StartInvocations is the process-wide start counter at install time.
	// Greater than one means the install belongs to an in-process re-start,
	// not a fresh process launch.
	StartInvocations uint64
}

// Factory builds an integration instance for one lifecycle epoch.
type Factory func(deps Deps) Integration

// Registry maps integration identifiers to factories. It replaces dynamic
// type lookup: the configured list of plugin names resolves against factories
// registered at configuration time.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// NewDefaultRegistry creates a registry with the built-in integrations
// registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(sessionTrackingName, NewSessionTracking)
	r.Register(crashReportName, NewCrashReport)
	r.Register(breadcrumbsName, NewBreadcrumbs)
	return r
}

// Register adds a factory under an identifier, replacing any previous one.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Resolve returns the factory for an identifier.
func (r *Registry) Resolve(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// LoaderConfig is the configuration for the loader.
type LoaderConfig struct {
	Registry *Registry
	Logger   log.Logger
}

func (c *LoaderConfig) defaults() error {
	if c.Registry == nil {
		return fmt.Errorf("registry is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "integration.Loader"})

	return nil
}

// Loader installs configured integrations, enforcing at most one install per
// identifier per lifecycle epoch, and tracks instances for bulk teardown.
// Resolution and duplicate failures are diagnostics, never errors: a broken
// integration list must not abort the SDK start.
type Loader struct {
	registry *Registry
	logger   log.Logger

	mu        sync.Mutex
	installed []Integration
	names     map[string]struct{}
}

// NewLoader creates a new loader.
func NewLoader(cfg LoaderConfig) (*Loader, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Loader{
		registry: cfg.Registry,
		logger:   cfg.Logger,
		names:    map[string]struct{}{},
	}, nil
}

// BeginEpoch discards the previous epoch's registry without invoking
// uninstall hooks. Used on re-start, where the previous hub is replaced
// without forced teardown.
func (l *Loader) BeginEpoch() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.installed = nil
	l.names = map[string]struct{}{}
}

// Install resolves and installs the given integration identifiers in order.
// Unresolvable identifiers and duplicates within the epoch are skipped with
// a diagnostic.
func (l *Loader) Install(names []string, deps Deps, opts *options.Options) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, name := range names {
		factory, ok := l.registry.Resolve(name)
		if !ok {
			l.logger.Warningf("Unknown integration %q, skipping", name)
			continue
		}

		if _, dup := l.names[name]; dup {
			l.logger.Warningf("Integration %q already installed in this epoch, skipping", name)
			continue
		}

		inst := factory(deps)
		if !inst.Install(opts) {
			l.logger.Debugf("Integration %q declined install, discarding", name)
			continue
		}

		l.installed = append(l.installed, inst)
		l.names[name] = struct{}{}
		if deps.Hub != nil {
			deps.Hub.AddInstalledIntegration(name)
		}

		l.logger.Debugf("Installed integration %q", name)
	}
}

// InstalledNames returns the identifiers installed in the current epoch, in
// install order.
func (l *Loader) InstalledNames() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.installed))
	for _, inst := range l.installed {
		names = append(names, inst.Name())
	}
	return names
}

// RemoveAll uninstalls every registered instance and clears the registry.
// Idempotent when nothing is installed.
func (l *Loader) RemoveAll() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, inst := range l.installed {
		inst.Uninstall()
		l.logger.Debugf("Uninstalled integration %q", inst.Name())
	}

	l.installed = nil
	l.names = map[string]struct{}{}
}
