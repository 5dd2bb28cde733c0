package hub_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/faultline/internal/client"
	"github.com/faultline/faultline/internal/hub"
	"github.com/faultline/faultline/internal/model"
	"github.com/faultline/faultline/internal/options"
	"github.com/faultline/faultline/internal/scope"
	"github.com/faultline/faultline/internal/storage/memory"
)

func newTestHub(t *testing.T) (*hub.Hub, *memory.Repository) {
	t.Helper()

	opts := &options.Options{InMemory: true, Release: "app@1.0"}
	require.NoError(t, opts.Defaults())

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	c, err := client.New(client.Config{Options: opts, Repository: repo})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return hub.New(c, scope.New(10), nil), repo
}

func storedEvents(t *testing.T, repo *memory.Repository) []model.Event {
	t.Helper()

	envelopes, err := repo.ListEnvelopes(context.Background())
	require.NoError(t, err)

	evs := []model.Event{}
	for _, env := range envelopes {
		if env.Kind != model.EnvelopeKindEvent {
			continue
		}
		ev := model.Event{}
		require.NoError(t, json.Unmarshal(env.Payload, &ev))
		evs = append(evs, ev)
	}
	return evs
}

func TestHubWithoutClientIsNoop(t *testing.T) {
	ctx := context.Background()
	h := hub.New(nil, nil, nil)

	assert.Equal(t, model.EmptyEventID, h.CaptureMessage(ctx, "hello"))
	assert.Equal(t, model.EmptyEventID, h.CaptureError(ctx, errors.New("boom")))
	assert.Equal(t, model.EmptyEventID, h.CaptureEvent(ctx, model.Event{Message: "ev"}))

	// Scope mutation still works and sessions degrade silently.
	h.AddBreadcrumb(model.Breadcrumb{Message: "crumb"})
	h.StartSession(ctx)
	h.EndSession(ctx)
	assert.True(t, h.Flush(time.Millisecond))
	h.Close(ctx)
}

func TestHubCaptureRoutesToClient(t *testing.T) {
	ctx := context.Background()
	h, repo := newTestHub(t)

	h.AddBreadcrumb(model.Breadcrumb{Message: "clicked"})

	id := h.CaptureMessage(ctx, "hello")
	require.NotEqual(t, model.EmptyEventID, id)
	require.True(t, h.Flush(2*time.Second))

	evs := storedEvents(t, repo)
	require.Len(t, evs, 1)
	assert.Equal(t, "hello", evs[0].Message)
	require.Len(t, evs[0].Breadcrumbs, 1)
	assert.Equal(t, "clicked", evs[0].Breadcrumbs[0].Message)
}

func TestHubCaptureErrorNil(t *testing.T) {
	h, _ := newTestHub(t)
	assert.Equal(t, model.EmptyEventID, h.CaptureError(context.Background(), nil))
}

func TestHubCaptureEventWithScopeUsesPrivateCopy(t *testing.T) {
	ctx := context.Background()
	h, repo := newTestHub(t)

	id := h.CaptureEventWithScope(ctx, model.NewMessageEvent("scoped"), func(sc *scope.Scope) {
		sc.SetTag("one-off", "yes")
	})
	require.NotEqual(t, model.EmptyEventID, id)

	id2 := h.CaptureMessage(ctx, "plain")
	require.NotEqual(t, model.EmptyEventID, id2)
	require.True(t, h.Flush(2*time.Second))

	evs := storedEvents(t, repo)
	require.Len(t, evs, 2)
	byMessage := map[string]model.Event{}
	for _, ev := range evs {
		byMessage[ev.Message] = ev
	}
	assert.Equal(t, "yes", byMessage["scoped"].Tags["one-off"])
	// The live scope was never mutated by the one-off capture.
	assert.NotContains(t, byMessage["plain"].Tags, "one-off")
}

func TestHubBindClient(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHub(t)

	require.NotNil(t, h.Client())

	h.BindClient(nil)
	assert.Nil(t, h.Client())
	assert.Equal(t, model.EmptyEventID, h.CaptureMessage(ctx, "after unbind"))
}

func TestHubSessions(t *testing.T) {
	ctx := context.Background()
	h, repo := newTestHub(t)

	// Ending without a session is a no-op.
	h.EndSession(ctx)

	h.StartSession(ctx)
	h.CaptureError(ctx, errors.New("boom"))
	h.EndSession(ctx)
	require.True(t, h.Flush(2*time.Second))

	envelopes, err := repo.ListEnvelopes(context.Background())
	require.NoError(t, err)

	sessions := []model.Session{}
	for _, env := range envelopes {
		if env.Kind != model.EnvelopeKindSession {
			continue
		}
		s := model.Session{}
		require.NoError(t, json.Unmarshal(env.Payload, &s))
		sessions = append(sessions, s)
	}

	require.Len(t, sessions, 1)
	assert.Equal(t, model.SessionStatusErrored, sessions[0].Status)
	assert.Equal(t, 1, sessions[0].ErrorCount)
	assert.Equal(t, "app@1.0", sessions[0].Release)
	require.NotNil(t, sessions[0].EndedAt)
}

func TestHubIntegrationNames(t *testing.T) {
	h, _ := newTestHub(t)

	assert.False(t, h.IsIntegrationInstalled("SessionTracking"))

	h.AddInstalledIntegration("SessionTracking")
	assert.True(t, h.IsIntegrationInstalled("SessionTracking"))

	h.RemoveAllIntegrationNames()
	assert.False(t, h.IsIntegrationInstalled("SessionTracking"))
}
