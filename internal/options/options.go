// Package options holds the read-only SDK configuration handed to Start.
package options

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/faultline/faultline/internal/log"
	"github.com/faultline/faultline/internal/model"
	"github.com/faultline/faultline/internal/scope"
)

const (
	defaultDataDir        = ".faultline"
	defaultDBFile         = "faultline.db"
	defaultMaxBreadcrumbs = 100
)

// DefaultIntegrations returns the integration identifiers installed when the
// options don't declare an explicit list.
func DefaultIntegrations() []string {
	return []string{"SessionTracking", "CrashReport", "Breadcrumbs"}
}

// Options configures the SDK.
//
// All fields are optional and have sensible defaults. At minimum, an empty
// Options{} will use ~/.faultline/faultline.db for the offline store and
// install the default integrations.
type Options struct {
	// Debug enables SDK diagnostics logging.
	Debug bool

	// DataDir is the base directory for SDK data.
	// Default: ~/.faultline.
	DataDir string

	// DBPath is the offline store SQLite database path.
	// Default: <DataDir>/faultline.db.
	DBPath string

	// InMemory switches the offline store to a process-memory implementation.
	// Useful for tests and hosts that must not touch disk.
	InMemory bool

	// Release identifies the host application release.
	Release string

	// Environment identifies the deploy environment (e.g. "production").
	Environment string

	// MaxBreadcrumbs caps the breadcrumb trail kept on the scope.
	// Default: 100.
	MaxBreadcrumbs int

	// Integrations is the ordered list of integration identifiers to install
	// on start. A nil list installs [DefaultIntegrations]; an explicit empty
	// list installs none.
	Integrations []string

	// InitialScope customizes the fresh scope built on every start.
	InitialScope func(*scope.Scope)

	// BeforeSend runs on every captured event before it is stored. Returning
	// nil drops the event.
	BeforeSend func(ev model.Event) *model.Event

	// Logger receives SDK diagnostics. Default: noop (silent).
	Logger log.Logger
}

// Defaults validates the options and fills the unset fields.
func (o *Options) Defaults() error {
	// The in-memory store needs no paths at all.
	if o.DataDir == "" && !o.InMemory {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		o.DataDir = filepath.Join(home, defaultDataDir)
	}

	if o.DBPath == "" && !o.InMemory {
		o.DBPath = filepath.Join(o.DataDir, defaultDBFile)
	}

	if o.MaxBreadcrumbs <= 0 {
		o.MaxBreadcrumbs = defaultMaxBreadcrumbs
	}

	if o.Integrations == nil {
		o.Integrations = DefaultIntegrations()
	}

	if o.Logger == nil {
		o.Logger = log.Noop
	}

	return nil
}

type yamlOptions struct {
	Debug          bool     `yaml:"debug"`
	DataDir        string   `yaml:"data_dir"`
	DBPath         string   `yaml:"db_path"`
	InMemory       bool     `yaml:"in_memory"`
	Release        string   `yaml:"release"`
	Environment    string   `yaml:"environment"`
	MaxBreadcrumbs int      `yaml:"max_breadcrumbs"`
	Integrations   []string `yaml:"integrations"`
}

// NewFromYAML loads options from a YAML configuration file. Hooks (initial
// scope, before-send) can't be expressed in the file and are left unset.
func NewFromYAML(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read options file: %w", err)
	}

	yo := yamlOptions{}
	if err := yaml.Unmarshal(data, &yo); err != nil {
		return nil, fmt.Errorf("could not parse options file: %w", err)
	}

	return &Options{
		Debug:          yo.Debug,
		DataDir:        yo.DataDir,
		DBPath:         yo.DBPath,
		InMemory:       yo.InMemory,
		Release:        yo.Release,
		Environment:    yo.Environment,
		MaxBreadcrumbs: yo.MaxBreadcrumbs,
		Integrations:   yo.Integrations,
	}, nil
}
