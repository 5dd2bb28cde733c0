// Package client turns captured data into envelopes and feeds them to the
// offline store through an async writer.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faultline/faultline/internal/log"
	"github.com/faultline/faultline/internal/model"
	"github.com/faultline/faultline/internal/options"
	"github.com/faultline/faultline/internal/scope"
	"github.com/faultline/faultline/internal/storage"
)

const queueSize = 64

// Config is the configuration for the client.
type Config struct {
	Options    *options.Options
	Repository storage.Repository
	Logger     log.Logger
}

func (c *Config) defaults() error {
	if c.Options == nil {
		return fmt.Errorf("options are required")
	}

	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "client.Client"})

	return nil
}

// queueItem is an envelope or breadcrumb to store, or a flush marker whose
// ack is closed once every previously queued write has been done.
type queueItem struct {
	envelope   *model.Envelope
	breadcrumb *model.Breadcrumb
	flushAck   chan struct{}
}

// Client captures events into envelopes and persists them asynchronously.
// It is safe for concurrent use.
type Client struct {
	opts   *options.Options
	repo   storage.Repository
	logger log.Logger

	queue    chan queueItem
	stopC    chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// New creates a new client and starts its writer.
func New(cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Client{
		opts:    cfg.Options,
		repo:    cfg.Repository,
		logger:  cfg.Logger,
		queue:   make(chan queueItem, queueSize),
		stopC:   make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go c.run()

	return c, nil
}

// Options returns the options the client was created with.
func (c *Client) Options() *options.Options { return c.opts }

// CaptureEvent enriches the event with the given scope (if any), runs the
// before-send hook and queues the resulting envelope for storage. It returns
// an empty ID when the event is dropped or the client is closed.
func (c *Client) CaptureEvent(ctx context.Context, ev model.Event, sc *scope.Scope) model.EventID {
	if sc != nil {
		ev = sc.ApplyToEvent(ev)
	}

	if ev.ID == model.EmptyEventID {
		ev.ID = model.NewEventID()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Level == "" {
		ev.Level = model.LevelInfo
	}
	if ev.Release == "" {
		ev.Release = c.opts.Release
	}
	if ev.Environment == "" {
		ev.Environment = c.opts.Environment
	}

	if c.opts.BeforeSend != nil {
		processed := c.opts.BeforeSend(ev)
		if processed == nil {
			c.logger.Debugf("Event dropped by before-send hook")
			return model.EmptyEventID
		}
		ev = *processed
	}

	env, err := model.NewEventEnvelope(ev)
	if err != nil {
		c.logger.Errorf("Could not create event envelope: %s", err)
		return model.EmptyEventID
	}

	if !c.enqueue(env) {
		return model.EmptyEventID
	}

	return ev.ID
}

// CaptureSession queues a finished session for storage.
func (c *Client) CaptureSession(ctx context.Context, s model.Session) error {
	env, err := model.NewSessionEnvelope(s)
	if err != nil {
		return fmt.Errorf("could not create session envelope: %w", err)
	}

	if !c.enqueue(env) {
		return fmt.Errorf("client writer: %w", model.ErrClosed)
	}

	return nil
}

// RecordBreadcrumb queues a breadcrumb write to the current launch slot, so
// the next launch's crash report can reconstruct the trail. Dropped when the
// client is closed.
func (c *Client) RecordBreadcrumb(b model.Breadcrumb) {
	select {
	case c.queue <- queueItem{breadcrumb: &b}:
	case <-c.stopC:
	}
}

// RotatePreviousState moves the stored current app state and breadcrumbs
// into their previous slots, so the next crash-detection pass can read what
// was true right before this start.
func (c *Client) RotatePreviousState(ctx context.Context) error {
	if err := c.repo.MoveAppStateToPreviousAppState(ctx); err != nil {
		return fmt.Errorf("could not rotate app state: %w", err)
	}
	if err := c.repo.MoveBreadcrumbsToPreviousBreadcrumbs(ctx); err != nil {
		return fmt.Errorf("could not rotate breadcrumbs: %w", err)
	}

	return nil
}

// SaveAppState writes the current launch record.
func (c *Client) SaveAppState(ctx context.Context, s model.AppState) error {
	return c.repo.SaveAppState(ctx, s)
}

// PreviousAppState returns the launch record rotated from the previous run,
// model.ErrNotFound when this is the first tracked launch.
func (c *Client) PreviousAppState(ctx context.Context) (*model.AppState, error) {
	return c.repo.PreviousAppState(ctx)
}

// PreviousBreadcrumbs returns the breadcrumb trail persisted by the previous
// run, rotated into the previous slot on start.
func (c *Client) PreviousBreadcrumbs(ctx context.Context) ([]model.Breadcrumb, error) {
	return c.repo.PreviousBreadcrumbs(ctx)
}

// Flush blocks until every envelope queued before the call has been written,
// or the timeout expires. Returns false on timeout.
func (c *Client) Flush(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	ack := make(chan struct{})
	select {
	case c.queue <- queueItem{flushAck: ack}:
	case <-c.stopped:
		// Writer already drained and exited, nothing pending.
		return true
	case <-timer.C:
		return false
	}

	select {
	case <-ack:
		return true
	case <-c.stopped:
		return true
	case <-timer.C:
		return false
	}
}

// Close stops the writer after draining already queued envelopes. It is
// idempotent and safe to call concurrently with captures.
func (c *Client) Close() error {
	c.stopOnce.Do(func() { close(c.stopC) })
	<-c.stopped
	return nil
}

func (c *Client) enqueue(env model.Envelope) bool {
	select {
	case c.queue <- queueItem{envelope: &env}:
		return true
	case <-c.stopC:
		c.logger.Warningf("Envelope dropped, client is closed")
		return false
	}
}

func (c *Client) run() {
	defer close(c.stopped)

	for {
		select {
		case it := <-c.queue:
			c.process(it)
		case <-c.stopC:
			// Drain what is already queued before exiting.
			for {
				select {
				case it := <-c.queue:
					c.process(it)
				default:
					return
				}
			}
		}
	}
}

func (c *Client) process(it queueItem) {
	if it.flushAck != nil {
		close(it.flushAck)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if it.breadcrumb != nil {
		if err := c.repo.AppendBreadcrumb(ctx, *it.breadcrumb); err != nil {
			c.logger.Errorf("Could not persist breadcrumb: %s", err)
		}
		return
	}

	if err := c.repo.StoreEnvelope(ctx, *it.envelope); err != nil {
		c.logger.Errorf("Could not store envelope %s: %s", it.envelope.ID, err)
		return
	}

	c.logger.Debugf("Envelope stored: %s", it.envelope.ID)
}
