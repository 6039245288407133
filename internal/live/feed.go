// Package live subscribes to server-pushed resource updates and merges them
// into the stores with the same replace-by-identifier rule mutations use.
package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/HerbHall/marketdesk/internal/apiclient"
)

// TopicResourceUpdated is the only topic the feed applies.
const TopicResourceUpdated = "resource.updated"

const readLimit = 1 << 20

// Message is one update on the wire.
type Message struct {
	Topic    string          `json:"topic"`
	Resource string          `json:"resource"`
	Item     json.RawMessage `json:"item"`
}

// Applier merges a raw JSON item into the named resource store.
type Applier interface {
	ApplyRaw(name string, raw []byte) (bool, error)
}

// Option configures a Feed.
type Option func(*Feed)

// WithTokenSource authenticates the websocket handshake.
func WithTokenSource(ts apiclient.TokenSource) Option {
	return func(f *Feed) { f.tokens = ts }
}

// WithLogger sets the feed logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Feed) { f.logger = l }
}

// WithReconnect sets the initial and maximum reconnect delay.
func WithReconnect(initial, maxDelay time.Duration) Option {
	return func(f *Feed) {
		if initial > 0 {
			f.initialDelay = initial
		}
		if maxDelay > 0 {
			f.maxDelay = maxDelay
		}
	}
}

// OnMessage registers a callback run after each message is handled. applied
// reports whether any store changed.
func OnMessage(fn func(msg Message, applied bool)) Option {
	return func(f *Feed) { f.onMessage = fn }
}

// Feed is a reconnecting websocket subscription.
type Feed struct {
	url          string
	applier      Applier
	tokens       apiclient.TokenSource
	logger       *zap.Logger
	initialDelay time.Duration
	maxDelay     time.Duration
	onMessage    func(Message, bool)

	applied atomic.Uint64
	skipped atomic.Uint64
}

// NewFeed creates a feed reading from the websocket at url.
func NewFeed(url string, applier Applier, opts ...Option) *Feed {
	f := &Feed{
		url:          url,
		applier:      applier,
		logger:       zap.NewNop(),
		initialDelay: 500 * time.Millisecond,
		maxDelay:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Stats returns how many messages were applied and skipped so far.
func (f *Feed) Stats() (applied, skipped uint64) {
	return f.applied.Load(), f.skipped.Load()
}

// Run connects and applies updates until ctx ends, reconnecting with
// exponential backoff after every disconnect. It returns nil once ctx is
// done.
func (f *Feed) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.initialDelay
	b.MaxInterval = f.maxDelay
	b.MaxElapsedTime = 0

	for {
		connected, err := f.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			b.Reset()
		}
		delay := b.NextBackOff()
		logFn := f.logger.Warn
		if IsClosed(err) {
			logFn = f.logger.Info
		}
		logFn("live feed disconnected",
			zap.Error(err),
			zap.Duration("retry_in", delay),
		)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// session runs one connection. connected reports whether the handshake
// succeeded.
func (f *Feed) session(ctx context.Context) (connected bool, err error) {
	headers := http.Header{}
	if f.tokens != nil {
		token, err := f.tokens.Token()
		if err != nil {
			return false, err
		}
		if token != "" {
			headers.Set("Authorization", "Bearer "+token)
		}
	}

	conn, resp, err := websocket.Dial(ctx, f.url, &websocket.DialOptions{HTTPHeader: headers})
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", f.url, err)
	}
	defer func() { _ = conn.CloseNow() }()
	conn.SetReadLimit(readLimit)

	f.logger.Info("live feed connected", zap.String("url", f.url))

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "client shutdown")
				return true, ctx.Err()
			}
			return true, fmt.Errorf("read: %w", err)
		}
		f.handle(data)
	}
}

// handle applies one frame. Bad frames are logged and skipped.
func (f *Feed) handle(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		f.skipped.Add(1)
		f.logger.Debug("skipping undecodable frame", zap.Error(err))
		return
	}
	if msg.Topic != TopicResourceUpdated {
		f.skipped.Add(1)
		return
	}

	changed, err := f.applier.ApplyRaw(msg.Resource, msg.Item)
	if err != nil {
		f.skipped.Add(1)
		f.logger.Debug("skipping update",
			zap.String("resource", msg.Resource),
			zap.Error(err),
		)
		if f.onMessage != nil {
			f.onMessage(msg, false)
		}
		return
	}
	f.applied.Add(1)
	if f.onMessage != nil {
		f.onMessage(msg, changed)
	}
}

// IsClosed reports whether err is a normal websocket closure.
func IsClosed(err error) bool {
	return errors.Is(err, context.Canceled) || websocket.CloseStatus(err) == websocket.StatusNormalClosure
}
