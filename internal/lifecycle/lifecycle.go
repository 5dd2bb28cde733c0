// Package lifecycle drives the ordered SDK startup and shutdown sequence:
// start, re-start over a live hub, and close. No error ever propagates out
// of Start or Close; a monitoring SDK must never be the reason the host
// application fails.
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/faultline/faultline/internal/client"
	"github.com/faultline/faultline/internal/global"
	"github.com/faultline/faultline/internal/hub"
	"github.com/faultline/faultline/internal/integration"
	"github.com/faultline/faultline/internal/log"
	"github.com/faultline/faultline/internal/model"
	"github.com/faultline/faultline/internal/options"
	"github.com/faultline/faultline/internal/platform"
	"github.com/faultline/faultline/internal/scope"
	"github.com/faultline/faultline/internal/storage"
	"github.com/faultline/faultline/internal/storage/memory"
	"github.com/faultline/faultline/internal/storage/sqlite"
)

// ControllerConfig is the configuration for the lifecycle controller.
type ControllerConfig struct {
	// State is the global state cell the controller manages.
	State *global.State
	// Registry resolves integration identifiers. Default: the built-ins.
	Registry *integration.Registry
	// Deps provides the platform dependency singleton group. Default:
	// platform.Shared.
	Deps func() *platform.Deps
	// ResetDeps resets the dependency group on close. Default: platform.Reset.
	ResetDeps func()
	// SDKVersion is stamped on launch records.
	SDKVersion string
	Logger     log.Logger
}

func (c *ControllerConfig) defaults() error {
	if c.State == nil {
		return fmt.Errorf("state cell is required")
	}

	if c.Registry == nil {
		c.Registry = integration.NewDefaultRegistry()
	}

	if c.Deps == nil {
		c.Deps = platform.Shared
	}

	if c.ResetDeps == nil {
		c.ResetDeps = platform.Reset
	}

	if c.SDKVersion == "" {
		c.SDKVersion = "dev"
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Controller orchestrates start, close and re-start. Start over a live hub
// is a first-class transition: the hub is replaced and integrations are
// reinstalled for the new epoch, without tearing the previous hub down.
type Controller struct {
	state      *global.State
	depsFn     func() *platform.Deps
	resetFn    func()
	sdkVersion string

	mu     sync.Mutex
	loader *integration.Loader
	repo   storage.Repository
	logger log.Logger
}

// NewController creates a new lifecycle controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	loader, err := integration.NewLoader(integration.LoaderConfig{
		Registry: cfg.Registry,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create integration loader: %w", err)
	}

	return &Controller{
		state:      cfg.State,
		depsFn:     cfg.Deps,
		resetFn:    cfg.ResetDeps,
		sdkVersion: cfg.SDKVersion,
		loader:     loader,
		logger:     cfg.Logger,
	}, nil
}

// State returns the global state cell the controller manages.
func (c *Controller) State() *global.State { return c.state }

// Start brings the SDK up: counter and timestamp, offline store, client,
// scope, hub swap, synchronous integration install, and the deferred
// platform phase scheduled fire-and-forget onto the serial run loop.
// Readiness of platform-bound subsystems is eventual: a synchronous dispatch
// here could deadlock against host startup code waiting on the same context.
func (c *Controller) Start(ctx context.Context, opts *options.Options) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if opts == nil {
		opts = &options.Options{}
	}
	if err := opts.Defaults(); err != nil {
		c.logger.Warningf("Invalid options (%s), degrading to in-memory store", err)
		opts.InMemory = true
		if err := opts.Defaults(); err != nil {
			c.logger.Errorf("Could not default options: %s", err)
			return
		}
	}

	logger := opts.Logger.WithValues(log.Kv{"svc": "lifecycle.Controller"})
	c.logger = logger

	deps := c.depsFn()
	startedAt := deps.Clock.Now()
	invocations := c.state.RecordStart(startedAt)

	// New epoch: the previous epoch's integration instances are discarded
	// without uninstall, the previous hub keeps running until replaced.
	c.loader.BeginEpoch()

	repo := c.newRepository(ctx, opts, logger)
	c.repo = repo

	cl, err := client.New(client.Config{
		Options:    opts,
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		// Unreachable with a non-nil repo, kept as a diagnostic guard.
		logger.Errorf("Could not create client: %s", err)
		return
	}

	// Rotate the previous launch's state so crash detection can read what
	// was true right before this start, then record this launch. Rotation
	// happens on the first start of the process only: an in-process re-start
	// would shift the live launch record into the previous slot and read it
	// back as an unclean shutdown.
	if invocations == 1 {
		if err := cl.RotatePreviousState(ctx); err != nil {
			logger.Warningf("Could not rotate previous launch state: %s", err)
		}
	}
	if err := cl.SaveAppState(ctx, model.AppState{
		SDKVersion:   c.sdkVersion,
		StartedAt:    startedAt,
		DebugEnabled: opts.Debug,
	}); err != nil {
		logger.Warningf("Could not save launch state: %s", err)
	}

	sc := scope.New(opts.MaxBreadcrumbs)
	if opts.InitialScope != nil {
		opts.InitialScope(sc)
	}

	h := hub.New(cl, sc, logger)
	c.state.SetCurrentHub(h)

	c.loader.Install(opts.Integrations, integration.Deps{
		Hub:              h,
		Platform:         deps,
		Logger:           logger,
		StartInvocations: invocations,
	}, opts)

	// Deferred platform phase. Fire-and-forget: the caller neither blocks
	// nor gets a completion signal.
	startType := model.AppStartTypeCold
	if invocations > 1 {
		startType = model.AppStartTypeWarm
	}
	deps.Scheduler.Schedule(func() {
		deps.ImageCache.Start()
		deps.DeviceState.Start()

		endedAt := deps.Clock.Now()
		c.state.SetAppStartMeasurement(&model.AppStartMeasurement{
			Type:     startType,
			StartAt:  startedAt,
			EndAt:    endedAt,
			Duration: endedAt.Sub(startedAt),
		})
	})

	logger.Infof("SDK started (invocation %d)", invocations)
}

// Close tears the SDK down: uninstall integrations, stop platform observers
// synchronously, close and unbind the current hub's client, clear the state
// cell and reset the platform singleton group. Safe to call when never
// started.
func (c *Controller) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	startedAt := c.state.StartTimestamp()
	c.state.ClearStartTimestamp()

	c.loader.RemoveAll()

	deps := c.depsFn()
	deps.DeviceState.Stop()
	deps.ImageCache.Stop()

	h := c.state.InstalledHub()
	if h != nil {
		// Flag a clean shutdown so the next launch doesn't read this one as
		// a crash.
		if cl := h.Client(); cl != nil && startedAt != nil {
			if err := cl.SaveAppState(ctx, model.AppState{
				SDKVersion:    c.sdkVersion,
				StartedAt:     *startedAt,
				CleanShutdown: true,
			}); err != nil {
				c.logger.Warningf("Could not flag clean shutdown: %s", err)
			}
		}

		h.RemoveAllIntegrationNames()
		h.Close(ctx)
		h.BindClient(nil)
	}
	c.state.SetCurrentHub(nil)

	if c.repo != nil {
		if err := c.repo.Close(); err != nil {
			c.logger.Warningf("Could not close offline store: %s", err)
		}
		c.repo = nil
	}

	c.resetFn()

	c.logger.Infof("SDK closed")
}

// CrashedLastRun returns whether the previous launch ended in a crash. The
// first resolved answer is latched for the process lifetime.
func (c *Controller) CrashedLastRun() bool {
	if crashed, called := c.state.CrashedLastRun(); called {
		return crashed
	}

	crashed, resolved := c.depsFn().CrashReporter.CrashedLastLaunch()
	if !resolved {
		// No verdict yet (e.g. crash-report integration not installed).
		return false
	}

	c.state.SetCrashedLastRun(crashed)
	return crashed
}

func (c *Controller) newRepository(ctx context.Context, opts *options.Options, logger log.Logger) storage.Repository {
	if !opts.InMemory {
		repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: opts.DBPath,
			Logger: logger,
		})
		if err == nil {
			return repo
		}
		logger.Errorf("Could not open offline store (%s), degrading to in-memory store", err)
	}

	repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: logger})
	if err != nil {
		// Unreachable, the memory repository config can't fail.
		logger.Errorf("Could not create in-memory store: %s", err)
	}

	return repo
}
