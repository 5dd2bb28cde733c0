package integration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/faultline/internal/hub"
	"github.com/faultline/faultline/internal/integration"
	"github.com/faultline/faultline/internal/options"
	"github.com/faultline/faultline/internal/scope"
)

type fakeIntegration struct {
	name       string
	installOK  bool
	installs   *int
	uninstalls *int
}

func (f *fakeIntegration) Name() string { return f.name }

func (f *fakeIntegration) Install(opts *options.Options) bool {
	*f.installs++
	return f.installOK
}

func (f *fakeIntegration) Uninstall() { *f.uninstalls++ }

func fakeFactory(name string, installOK bool, installs, uninstalls *int) integration.Factory {
	return func(deps integration.Deps) integration.Integration {
		return &fakeIntegration{name: name, installOK: installOK, installs: installs, uninstalls: uninstalls}
	}
}

func TestNewLoader(t *testing.T) {
	tests := map[string]struct {
		config integration.LoaderConfig
		expErr bool
	}{
		"valid config should create loader": {
			config: integration.LoaderConfig{Registry: integration.NewRegistry()},
			expErr: false,
		},
		"missing registry should fail": {
			config: integration.LoaderConfig{},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			loader, err := integration.NewLoader(test.config)
			if test.expErr {
				require.Error(err)
			} else {
				require.NoError(err)
				require.NotNil(loader)
			}
		})
	}
}

func TestLoaderInstall(t *testing.T) {
	tests := map[string]struct {
		register     func(r *integration.Registry, installs, uninstalls *int)
		names        []string
		expInstalled []string
		expInstalls  int
	}{
		"configured integrations install in order": {
			register: func(r *integration.Registry, installs, uninstalls *int) {
				r.Register("a", fakeFactory("a", true, installs, uninstalls))
				r.Register("b", fakeFactory("b", true, installs, uninstalls))
			},
			names:        []string{"b", "a"},
			expInstalled: []string{"b", "a"},
			expInstalls:  2,
		},
		"unknown identifiers are skipped without failing": {
			register: func(r *integration.Registry, installs, uninstalls *int) {
				r.Register("a", fakeFactory("a", true, installs, uninstalls))
			},
			names:        []string{"nope", "a", "also-nope"},
			expInstalled: []string{"a"},
			expInstalls:  1,
		},
		"duplicate identifiers install exactly once": {
			register: func(r *integration.Registry, installs, uninstalls *int) {
				r.Register("a", fakeFactory("a", true, installs, uninstalls))
			},
			names:        []string{"a", "a", "a"},
			expInstalled: []string{"a"},
			expInstalls:  1,
		},
		"declined installs are discarded without registering": {
			register: func(r *integration.Registry, installs, uninstalls *int) {
				r.Register("a", fakeFactory("a", false, installs, uninstalls))
				r.Register("b", fakeFactory("b", true, installs, uninstalls))
			},
			names:        []string{"a", "b"},
			expInstalled: []string{"b"},
			expInstalls:  2,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			installs, uninstalls := 0, 0
			registry := integration.NewRegistry()
			test.register(registry, &installs, &uninstalls)

			loader, err := integration.NewLoader(integration.LoaderConfig{Registry: registry})
			require.NoError(t, err)

			h := hub.New(nil, scope.New(0), nil)
			loader.Install(test.names, integration.Deps{Hub: h}, &options.Options{})

			assert.Equal(t, test.expInstalled, loader.InstalledNames())
			assert.Equal(t, test.expInstalls, installs)
			for _, n := range test.expInstalled {
				assert.True(t, h.IsIntegrationInstalled(n))
			}
		})
	}
}

func TestLoaderRemoveAll(t *testing.T) {
	installs, uninstalls := 0, 0
	registry := integration.NewRegistry()
	registry.Register("a", fakeFactory("a", true, &installs, &uninstalls))
	registry.Register("b", fakeFactory("b", true, &installs, &uninstalls))

	loader, err := integration.NewLoader(integration.LoaderConfig{Registry: registry})
	require.NoError(t, err)

	// Idempotent on an empty registry.
	loader.RemoveAll()

	loader.Install([]string{"a", "b"}, integration.Deps{}, &options.Options{})
	require.Len(t, loader.InstalledNames(), 2)

	loader.RemoveAll()
	assert.Equal(t, 2, uninstalls)
	assert.Empty(t, loader.InstalledNames())

	loader.RemoveAll()
	assert.Equal(t, 2, uninstalls)
}

func TestLoaderBeginEpoch(t *testing.T) {
	installs, uninstalls := 0, 0
	registry := integration.NewRegistry()
	registry.Register("a", fakeFactory("a", true, &installs, &uninstalls))

	loader, err := integration.NewLoader(integration.LoaderConfig{Registry: registry})
	require.NoError(t, err)

	loader.Install([]string{"a"}, integration.Deps{}, &options.Options{})
	require.Equal(t, []string{"a"}, loader.InstalledNames())

	// A fresh epoch discards instances without uninstall hooks and allows
	// the identifier again.
	loader.BeginEpoch()
	assert.Empty(t, loader.InstalledNames())
	assert.Equal(t, 0, uninstalls)

	loader.Install([]string{"a"}, integration.Deps{}, &options.Options{})
	assert.Equal(t, []string{"a"}, loader.InstalledNames())
	assert.Equal(t, 2, installs)
}
