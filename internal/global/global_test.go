package global_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/faultline/internal/client"
	"github.com/faultline/faultline/internal/global"
	"github.com/faultline/faultline/internal/hub"
	"github.com/faultline/faultline/internal/model"
	"github.com/faultline/faultline/internal/options"
	"github.com/faultline/faultline/internal/scope"
	"github.com/faultline/faultline/internal/storage/memory"
)

func TestStateCurrentHubLazyDefault(t *testing.T) {
	state := global.NewState(nil)

	// No hub installed yet.
	require.Nil(t, state.InstalledHub())
	assert.False(t, state.IsEnabled())

	// Concurrent first callers must all observe the same lazily created hub.
	const callers = 50
	hubs := make([]*hub.Hub, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hubs[i] = state.CurrentHub()
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Same(t, hubs[0], hubs[i])
	}

	// The lazy hub has no client, so the SDK stays disabled.
	assert.False(t, state.IsEnabled())
	assert.Same(t, hubs[0], state.InstalledHub())
}

func TestStateSetCurrentHub(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	state := global.NewState(nil)

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(err)
	c, err := client.New(client.Config{Options: &options.Options{InMemory: true}, Repository: repo})
	require.NoError(err)
	defer c.Close()

	h := hub.New(c, scope.New(10), nil)
	state.SetCurrentHub(h)

	assert.Same(h, state.CurrentHub())
	assert.Same(h, state.InstalledHub())
	assert.True(state.IsEnabled())

	state.SetCurrentHub(nil)
	assert.Nil(state.InstalledHub())
	assert.False(state.IsEnabled())
}

func TestStateStartBookkeeping(t *testing.T) {
	assert := assert.New(t)

	state := global.NewState(nil)
	assert.Zero(state.StartInvocations())
	assert.Nil(state.StartTimestamp())

	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(uint64(1), state.RecordStart(t0))
	assert.Equal(uint64(1), state.StartInvocations())
	assert.Equal(t0, *state.StartTimestamp())

	t1 := t0.Add(time.Minute)
	assert.Equal(uint64(2), state.RecordStart(t1))
	assert.Equal(t1, *state.StartTimestamp())

	// Clearing the timestamp must not touch the counter.
	state.ClearStartTimestamp()
	assert.Nil(state.StartTimestamp())
	assert.Equal(uint64(2), state.StartInvocations())
}

func TestStateCrashedLastRunLatch(t *testing.T) {
	assert := assert.New(t)

	state := global.NewState(nil)

	crashed, called := state.CrashedLastRun()
	assert.False(crashed)
	assert.False(called)

	state.SetCrashedLastRun(true)
	crashed, called = state.CrashedLastRun()
	assert.True(crashed)
	assert.True(called)

	// Later writes are ignored.
	state.SetCrashedLastRun(false)
	crashed, called = state.CrashedLastRun()
	assert.True(crashed)
	assert.True(called)
}

func TestStateAppStartMeasurement(t *testing.T) {
	assert := assert.New(t)

	state := global.NewState(nil)
	assert.Nil(state.AppStartMeasurement())

	m := model.AppStartMeasurement{
		Type:     model.AppStartTypeCold,
		StartAt:  time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		EndAt:    time.Date(2026, 5, 1, 10, 0, 1, 0, time.UTC),
		Duration: time.Second,
	}
	state.SetAppStartMeasurement(&m)

	got := state.AppStartMeasurement()
	assert.Equal(m, *got)

	// Reads are copies, mutating them must not leak back.
	got.Duration = 42 * time.Second
	assert.Equal(time.Second, state.AppStartMeasurement().Duration)

	// Writes are copies too.
	m.Type = model.AppStartTypeWarm
	assert.Equal(model.AppStartTypeCold, state.AppStartMeasurement().Type)

	state.SetAppStartMeasurement(nil)
	assert.Nil(state.AppStartMeasurement())
}

func TestStateConcurrentMeasurementNoTornReads(t *testing.T) {
	state := global.NewState(nil)

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	writers := []model.AppStartMeasurement{
		{Type: model.AppStartTypeCold, StartAt: base, EndAt: base.Add(time.Second), Duration: time.Second},
		{Type: model.AppStartTypeWarm, StartAt: base, EndAt: base.Add(2 * time.Second), Duration: 2 * time.Second},
	}

	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func(m model.AppStartMeasurement) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				state.SetAppStartMeasurement(&m)
			}
		}(writers[i])
	}

	var torn bool
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 400; j++ {
			got := state.AppStartMeasurement()
			if got == nil {
				continue
			}
			// Every observed value must be one of the written values whole,
			// never a mix of fields from both.
			if *got != writers[0] && *got != writers[1] {
				torn = true
				return
			}
		}
	}()
	wg.Wait()

	assert.False(t, torn)
}
