package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/faultline/faultline/internal/client"
	"github.com/faultline/faultline/internal/model"
	"github.com/faultline/faultline/internal/options"
	"github.com/faultline/faultline/internal/scope"
	"github.com/faultline/faultline/internal/storage/memory"
	"github.com/faultline/faultline/internal/storage/storagemock"
)

func newTestClient(t *testing.T, opts *options.Options) (*client.Client, *memory.Repository) {
	t.Helper()

	if opts == nil {
		opts = &options.Options{InMemory: true}
	}
	opts.InMemory = true
	require.NoError(t, opts.Defaults())

	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	c, err := client.New(client.Config{Options: opts, Repository: repo})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, repo
}

func TestNewClient(t *testing.T) {
	tests := map[string]struct {
		config client.Config
		expErr bool
	}{
		"missing options should fail": {
			config: client.Config{},
			expErr: true,
		},
		"missing repository should fail": {
			config: client.Config{Options: &options.Options{InMemory: true}},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			_, err := client.New(test.config)
			if test.expErr {
				require.Error(err)
			} else {
				require.NoError(err)
			}
		})
	}
}

func TestClientCaptureStoresEnvelope(t *testing.T) {
	ctx := context.Background()
	c, repo := newTestClient(t, &options.Options{Release: "app@1.0", Environment: "prod"})

	sc := scope.New(10)
	sc.SetTag("region", "eu")

	id := c.CaptureEvent(ctx, model.NewMessageEvent("something happened"), sc)
	require.NotEqual(t, model.EmptyEventID, id)
	require.True(t, c.Flush(2*time.Second))

	envelopes, err := repo.ListEnvelopes(ctx)
	require.NoError(t, err)
	require.Len(t, envelopes, 1)
	assert.Equal(t, model.EnvelopeKindEvent, envelopes[0].Kind)
	assert.Equal(t, id, envelopes[0].EventID)

	ev := model.Event{}
	require.NoError(t, json.Unmarshal(envelopes[0].Payload, &ev))
	assert.Equal(t, "something happened", ev.Message)
	assert.Equal(t, "eu", ev.Tags["region"])
	assert.Equal(t, "app@1.0", ev.Release)
	assert.Equal(t, "prod", ev.Environment)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestClientBeforeSend(t *testing.T) {
	ctx := context.Background()

	t.Run("drop", func(t *testing.T) {
		opts := &options.Options{
			BeforeSend: func(ev model.Event) *model.Event { return nil },
		}
		c, repo := newTestClient(t, opts)

		id := c.CaptureEvent(ctx, model.NewMessageEvent("dropped"), nil)
		assert.Equal(t, model.EmptyEventID, id)

		require.True(t, c.Flush(2*time.Second))
		envelopes, err := repo.ListEnvelopes(ctx)
		require.NoError(t, err)
		assert.Empty(t, envelopes)
	})

	t.Run("mutate", func(t *testing.T) {
		opts := &options.Options{
			BeforeSend: func(ev model.Event) *model.Event {
				ev.Message = "scrubbed"
				return &ev
			},
		}
		c, repo := newTestClient(t, opts)

		id := c.CaptureEvent(ctx, model.NewMessageEvent("secret"), nil)
		require.NotEqual(t, model.EmptyEventID, id)
		require.True(t, c.Flush(2*time.Second))

		envelopes, err := repo.ListEnvelopes(ctx)
		require.NoError(t, err)
		require.Len(t, envelopes, 1)

		ev := model.Event{}
		require.NoError(t, json.Unmarshal(envelopes[0].Payload, &ev))
		assert.Equal(t, "scrubbed", ev.Message)
	})
}

func TestClientCaptureSession(t *testing.T) {
	ctx := context.Background()
	c, repo := newTestClient(t, nil)

	s := model.NewSession("app@1.0", "prod")
	s.End()
	require.NoError(t, c.CaptureSession(ctx, s))
	require.True(t, c.Flush(2*time.Second))

	envelopes, err := repo.ListEnvelopes(ctx)
	require.NoError(t, err)
	require.Len(t, envelopes, 1)
	assert.Equal(t, model.EnvelopeKindSession, envelopes[0].Kind)
}

func TestClientRecordBreadcrumb(t *testing.T) {
	ctx := context.Background()
	c, repo := newTestClient(t, nil)

	c.RecordBreadcrumb(model.Breadcrumb{Message: "clicked buy", Category: "ui"})
	require.True(t, c.Flush(2*time.Second))

	// The write lands in the current slot: rotating exposes it as the
	// previous launch's trail.
	require.NoError(t, repo.MoveBreadcrumbsToPreviousBreadcrumbs(ctx))
	bs, err := c.PreviousBreadcrumbs(ctx)
	require.NoError(t, err)
	require.Len(t, bs, 1)
	assert.Equal(t, "clicked buy", bs[0].Message)
	assert.Equal(t, "ui", bs[0].Category)
}

func TestClientCloseIsIdempotentAndStopsCaptures(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t, nil)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	id := c.CaptureEvent(ctx, model.NewMessageEvent("too late"), nil)
	assert.Equal(t, model.EmptyEventID, id)

	// Nothing pending after close.
	assert.True(t, c.Flush(100*time.Millisecond))
}

func TestClientRotatePreviousState(t *testing.T) {
	ctx := context.Background()

	mockRepo := &storagemock.MockRepository{}
	mockRepo.On("MoveAppStateToPreviousAppState", mock.Anything).Once().Return(nil)
	mockRepo.On("MoveBreadcrumbsToPreviousBreadcrumbs", mock.Anything).Once().Return(nil)

	opts := &options.Options{InMemory: true}
	require.NoError(t, opts.Defaults())

	c, err := client.New(client.Config{Options: opts, Repository: mockRepo})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.RotatePreviousState(ctx))
	mockRepo.AssertExpectations(t)
}

func TestClientRotatePreviousStateError(t *testing.T) {
	ctx := context.Background()

	mockRepo := &storagemock.MockRepository{}
	mockRepo.On("MoveAppStateToPreviousAppState", mock.Anything).Once().Return(errors.New("boom"))

	opts := &options.Options{InMemory: true}
	require.NoError(t, opts.Defaults())

	c, err := client.New(client.Config{Options: opts, Repository: mockRepo})
	require.NoError(t, err)
	defer c.Close()

	assert.Error(t, c.RotatePreviousState(ctx))
	mockRepo.AssertExpectations(t)
}
