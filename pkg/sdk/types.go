package sdk

import (
	"github.com/faultline/faultline/internal/hub"
	"github.com/faultline/faultline/internal/model"
	"github.com/faultline/faultline/internal/options"
	"github.com/faultline/faultline/internal/scope"
)

// Options configures the SDK. See the field docs for defaults.
type Options = options.Options

// NewOptionsFromYAML loads options from a YAML configuration file.
var NewOptionsFromYAML = options.NewFromYAML

// DefaultIntegrations returns the integration identifiers installed when
// Options.Integrations is nil.
var DefaultIntegrations = options.DefaultIntegrations

// Hub is the live pairing of a client and a scope that captures are routed
// through.
type Hub = hub.Hub

// Scope is the mutable contextual data attached to subsequent captures.
type Scope = scope.Scope

// Event is a single captured occurrence.
type Event = model.Event

// EventID identifies a captured event; empty for no-op captures.
type EventID = model.EventID

// EmptyEventID is the identifier returned by no-op captures.
const EmptyEventID = model.EmptyEventID

// Exception describes an error condition attached to an event.
type Exception = model.Exception

// Breadcrumb is a trail entry attached to subsequent captures for context.
type Breadcrumb = model.Breadcrumb

// User is the user context attached to events.
type User = model.User

// Level is the severity of an event or breadcrumb.
type Level = model.Level

// Event and breadcrumb severities.
const (
	LevelDebug   = model.LevelDebug
	LevelInfo    = model.LevelInfo
	LevelWarning = model.LevelWarning
	LevelError   = model.LevelError
	LevelFatal   = model.LevelFatal
)

// AppStartMeasurement is the cached timing of how long application launch
// took.
type AppStartMeasurement = model.AppStartMeasurement

// AppStartType discriminates cold and warm application starts.
type AppStartType = model.AppStartType

// Application start types.
const (
	AppStartTypeCold = model.AppStartTypeCold
	AppStartTypeWarm = model.AppStartTypeWarm
)
