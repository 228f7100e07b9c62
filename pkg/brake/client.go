// client.go delivers notices to the tracking service without blocking the caller.

package brake

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	builder    *Builder
	httpClient *http.Client
	logger     *slog.Logger
	handlers   []RequestEndHandler
	mirror     Sink
	metrics    *Metrics
}

// WithBuilder sets the builder used by SendError.
func WithBuilder(b *Builder) ClientOption {
	return func(c *clientConfig) {
		c.builder = b
	}
}

// WithHTTPClient sets the HTTP client used for delivery.
// Timeouts are inherited from it; the client imposes none of its own.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger for delivery failures.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithRequestEndHandler registers a completion handler. May be given more
// than once; handlers run in registration order.
func WithRequestEndHandler(h RequestEndHandler) ClientOption {
	return func(c *clientConfig) {
		if h != nil {
			c.handlers = append(c.handlers, h)
		}
	}
}

// WithMirror writes a copy of every sent notice to sink.
func WithMirror(sink Sink) ClientOption {
	return func(c *clientConfig) {
		c.mirror = sink
	}
}

// WithMetrics records delivery outcomes to m.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *clientConfig) {
		c.metrics = m
	}
}

// Client sends notices. Each Send runs on its own goroutine and shares only
// read-only configuration with other sends.
type Client struct {
	cfg        Config
	builder    *Builder
	httpClient *http.Client
	logger     *slog.Logger
	handlers   []RequestEndHandler
	mirror     Sink
	metrics    *Metrics

	inflight inflight
}

// inflight counts sends that have not finished. Unlike sync.WaitGroup it
// allows new sends to start while a Flush is waiting.
type inflight struct {
	mu   sync.Mutex
	n    int
	idle *sync.Cond
}

func (f *inflight) add() {
	f.mu.Lock()
	f.n++
	f.mu.Unlock()
}

func (f *inflight) done() {
	f.mu.Lock()
	f.n--
	if f.n == 0 && f.idle != nil {
		f.idle.Broadcast()
	}
	f.mu.Unlock()
}

// wait blocks until no send is in flight.
func (f *inflight) wait() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idle == nil {
		f.idle = sync.NewCond(&f.mu)
	}
	for f.n > 0 {
		f.idle.Wait()
	}
}

// NewClient creates a Client for cfg. Empty ServerURI and ProjectRoot take
// their defaults; call Config.Validate first to reject unusable settings.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	cfg = cfg.withDefaults()

	cc := &clientConfig{}
	for _, opt := range opts {
		opt(cc)
	}

	if cc.logger == nil {
		cc.logger = discardLogger()
	}
	if cc.builder == nil {
		cc.builder = NewBuilder(cfg, WithBuilderLogger(cc.logger))
	}
	if cc.httpClient == nil {
		cc.httpClient = http.DefaultClient
	}
	if cc.mirror == nil {
		cc.mirror = noopSink{}
	}

	return &Client{
		cfg:        cfg,
		builder:    cc.builder,
		httpClient: cc.httpClient,
		logger:     cc.logger,
		handlers:   cc.handlers,
		mirror:     cc.mirror,
		metrics:    cc.metrics,
	}
}

// Builder returns the builder used by SendError.
func (c *Client) Builder() *Builder {
	return c.builder
}

// SendError builds a notice for err and sends it. Only notice construction
// errors are returned; delivery failures are logged.
//
// An error that carries no stack is reported with the stack of the
// SendError call site. Wrap with WithStack at the point of failure for a
// more precise backtrace.
func (c *Client) SendError(ctx context.Context, err error) error {
	notice, buildErr := c.builder.Notice(ctx, withCallerStack(err))
	if buildErr != nil {
		return buildErr
	}
	c.Send(ctx, notice)
	return nil
}

// Send posts notice to the server URI and returns immediately. Handlers
// registered with WithRequestEndHandler fire once the response body has been
// read. They do not fire when no request could be built or no response was
// received; both cases are only logged. Cancelling ctx does not abort an
// in-flight send.
func (c *Client) Send(ctx context.Context, notice *Notice) {
	if notice == nil {
		c.logger.Error("send skipped", "error", fmt.Errorf("%w: notice is nil", ErrInvalidArgument))
		return
	}
	ctx = context.WithoutCancel(ctx)

	req, err := c.newRequest(ctx, notice)
	if err != nil {
		c.logger.Error("send abandoned", "error", err, "server_uri", c.cfg.ServerURI)
		c.metrics.RecordOutcome(OutcomeRequestError)
		return
	}

	c.inflight.add()
	go func() {
		defer c.inflight.done()
		c.deliver(ctx, uuid.NewString(), req, notice)
	}()
}

// newRequest builds the POST for notice.
func (c *Client) newRequest(ctx context.Context, notice *Notice) (*http.Request, error) {
	body, length, err := encodeNoticeBody(notice)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestConstruction, err)
	}

	req, err := http.NewRequestWithContext(ctx, "", c.cfg.ServerURI, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestConstruction, err)
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("Accept", "text/xml")
	req.Close = true
	req.ContentLength = length

	// The method is assigned after every header. Keep this ordering.
	req.Method = http.MethodPost
	return req, nil
}

func (c *Client) deliver(ctx context.Context, id string, req *http.Request, notice *Notice) {
	if err := c.mirror.Write(ctx, notice); err != nil {
		c.logger.Warn("mirror write failed", "request_id", id, "error", err)
	}

	c.metrics.sendStarted()
	defer c.metrics.sendFinished()
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil && resp == nil {
		c.logger.Error("notice delivery failed",
			"request_id", id,
			"error", fmt.Errorf("%w: %w", ErrTransport, err),
		)
		c.metrics.RecordOutcome(OutcomeTransportError)
		return
	}
	if err != nil {
		c.logger.Warn("notice delivery returned a response with an error", "request_id", id, "error", err)
	}
	defer resp.Body.Close()

	outcome := ""
	content, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		c.logger.Error("failed to read response",
			"request_id", id,
			"error", fmt.Errorf("%w: %w", ErrResponseRead, readErr),
		)
		outcome = OutcomeReadError
	}
	c.metrics.RecordDuration(time.Since(start))
	c.logger.Debug("response received", "request_id", id, "status", resp.StatusCode, "content", string(content))

	result := NewDeliveryResult(resp, string(content), c.logger)
	if outcome == "" {
		outcome = outcomeFor(result)
	}
	c.metrics.RecordOutcome(outcome)
	c.logger.Info("notice delivered",
		"request_id", id,
		"status", result.StatusCode,
		"outcome", outcome,
	)

	c.notify(RequestEnd{ID: id, Request: req, Notice: notice, Result: result})
}

func (c *Client) notify(end RequestEnd) {
	for _, h := range c.handlers {
		c.callHandler(h, end)
	}
}

func (c *Client) callHandler(h RequestEndHandler, end RequestEnd) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("request end handler panicked", "request_id", end.ID, "panic", formatRecovered(r))
		}
	}()
	h(end)
}

// Flush waits for in-flight sends to complete, then flushes the mirror.
// Sends started while Flush is waiting are waited for too.
func (c *Client) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return c.mirror.Flush(ctx)
}

// Close closes the mirror. Call Flush first to wait for in-flight sends.
func (c *Client) Close() error {
	if err := c.mirror.Close(); err != nil {
		return fmt.Errorf("close mirror: %w", err)
	}
	return nil
}

