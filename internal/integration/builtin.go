package integration

import (
	"context"
	"errors"

	"github.com/faultline/faultline/internal/log"
	"github.com/faultline/faultline/internal/model"
	"github.com/faultline/faultline/internal/options"
)

const (
	sessionTrackingName = "SessionTracking"
	crashReportName     = "CrashReport"
	breadcrumbsName     = "Breadcrumbs"
)

type sessionTracking struct {
	deps Deps
}

// NewSessionTracking creates the integration that tracks a session spanning
// the lifecycle epoch: started on install, ended on uninstall.
func NewSessionTracking(deps Deps) Integration {
	return &sessionTracking{deps: deps}
}

func (i *sessionTracking) Name() string { return sessionTrackingName }

func (i *sessionTracking) Install(opts *options.Options) bool {
	if i.deps.Hub == nil || i.deps.Hub.Client() == nil {
		return false
	}

	i.deps.Hub.StartSession(context.Background())
	return true
}

func (i *sessionTracking) Uninstall() {
	i.deps.Hub.EndSession(context.Background())
}

type crashReport struct {
	deps Deps
}

// NewCrashReport creates the integration that inspects the previous launch
// record and resolves the crashed-last-run verdict: a previous launch that
// never flagged a clean shutdown counts as crashed.
func NewCrashReport(deps Deps) Integration {
	return &crashReport{deps: deps}
}

func (i *crashReport) Name() string { return crashReportName }

func (i *crashReport) Install(opts *options.Options) bool {
	if i.deps.Hub == nil || i.deps.Platform == nil {
		return false
	}
	c := i.deps.Hub.Client()
	if c == nil {
		return false
	}

	// The previous slot describes the launch before this process. On an
	// in-process re-start the record in flight belongs to this same process,
	// so there is no new verdict to resolve.
	if i.deps.StartInvocations > 1 {
		return true
	}

	logger := i.deps.Logger
	if logger == nil {
		logger = log.Noop
	}

	ctx := context.Background()

	crashed := false
	prev, err := c.PreviousAppState(ctx)
	switch {
	case errors.Is(err, model.ErrNotFound):
		// First tracked launch, nothing to judge.
	case err != nil:
		logger.Warningf("Could not read previous app state: %s", err)
	default:
		crashed = !prev.CleanShutdown
	}

	if crashed {
		// Report the crash as a fatal event carrying the breadcrumb trail
		// the previous run persisted before dying.
		ev := model.Event{
			Level:   model.LevelFatal,
			Message: "Application crashed during the previous launch",
			Exceptions: []model.Exception{
				{Type: "crash", Value: "previous launch did not shut down cleanly"},
			},
		}
		bs, err := c.PreviousBreadcrumbs(ctx)
		if err != nil {
			logger.Warningf("Could not read previous breadcrumbs: %s", err)
		}
		ev.Breadcrumbs = bs

		i.deps.Hub.CaptureEvent(ctx, ev)
	}

	i.deps.Platform.CrashReporter.SetCrashedLastLaunch(crashed)
	return true
}

func (i *crashReport) Uninstall() {}

type breadcrumbs struct {
	deps Deps
}

// NewBreadcrumbs creates the integration that records SDK lifecycle
// breadcrumbs on the current scope.
func NewBreadcrumbs(deps Deps) Integration {
	return &breadcrumbs{deps: deps}
}

func (i *breadcrumbs) Name() string { return breadcrumbsName }

func (i *breadcrumbs) Install(opts *options.Options) bool {
	if i.deps.Hub == nil {
		return false
	}

	i.deps.Hub.AddBreadcrumb(model.Breadcrumb{
		Type:     "system",
		Category: "sdk.lifecycle",
		Message:  "SDK started",
		Level:    model.LevelInfo,
	})
	return true
}

func (i *breadcrumbs) Uninstall() {}
