package lumen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultBaseURL = "https://inference.lumen.dev/api/v1"

// tracerName identifies this SDK's spans.
const tracerName = "github.com/lumenlabs/lumen-go"

// Client sends requests to the Lumen inference API. It is safe for
// concurrent use; in-flight requests share no mutable state.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest and
// for self-hosted deployments.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets a logger for request lifecycle events, emitted at debug
// level. The default logger discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a [Client] authenticating with the given API token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		token:      token,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.DiscardHandler),
		tracer:     otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewFromCredentials logs in with email and password and returns a client
// authenticating with the obtained API token.
func NewFromCredentials(ctx context.Context, email, password string, opts ...Option) (*Client, error) {
	// Apply options twice: the login call needs the configured base URL
	// and HTTP client before a token exists.
	probe := New("", opts...)
	token, err := Login(ctx, probe.baseURL, email, password, probe.httpClient)
	if err != nil {
		return nil, err
	}
	return New(token, opts...), nil
}

// requestConfig carries per-request knobs.
type requestConfig struct {
	timeout     time.Duration
	lowPriority bool
}

// RequestOption configures a single request.
type RequestOption func(*requestConfig)

// WithTimeout applies a wall-clock budget to the whole request. For
// streams the budget covers the full lifetime of the stream. Expiry
// surfaces as [ErrTimeout].
func WithTimeout(d time.Duration) RequestOption {
	return func(rc *requestConfig) { rc.timeout = d }
}

// WithLowPriority tells the scheduler the result is not needed urgently,
// so the request may be deprioritized under load.
func WithLowPriority() RequestOption {
	return func(rc *requestConfig) { rc.lowPriority = true }
}

// Do executes a single-shot task against the client: one request, one
// decoded response body, one output. Task implementations outside this
// package can use it to route custom endpoints.
func Do[B, O any](ctx context.Context, c *Client, model string, task Task[B, O], opts ...RequestOption) (O, error) {
	var zero O
	spec := task.Plan(model)

	ctx, span := c.startSpan(ctx, spec, model, false)
	defer span.End()

	var cfg requestConfig
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	raw, err := c.roundTrip(ctx, spec, cfg)
	if err != nil {
		recordError(span, err)
		return zero, err
	}

	var body B
	if err := json.Unmarshal(raw, &body); err != nil {
		err = &DecodeError{Raw: string(raw), cause: err}
		recordError(span, err)
		return zero, err
	}
	span.SetStatus(codes.Ok, "")
	return task.Output(body), nil
}

// Stream executes a streaming task and returns the lazily-consumed event
// sequence. Errors at stream-open time (bad auth, bad request, non-success
// status) abort before any event is produced.
func Stream[B, E any](ctx context.Context, c *Client, model string, task StreamTask[B, E], opts ...RequestOption) (*EventStream[E], error) {
	spec := task.PlanStream(model)

	ctx, span := c.startSpan(ctx, spec, model, true)
	defer span.End()

	var cfg requestConfig
	for _, o := range opts {
		o(&cfg)
	}
	// The cancel func is handed to the stream: the request must outlive
	// this call and die with the stream instead.
	cancel := context.CancelFunc(func() {})
	if cfg.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
	}

	resp, err := c.send(ctx, spec, cfg)
	if err != nil {
		cancel()
		recordError(span, err)
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		defer cancel()
		raw, _ := io.ReadAll(resp.Body)
		err := classifyHTTP(resp.StatusCode, raw)
		recordError(span, err)
		return nil, err
	}

	c.logger.DebugContext(ctx, "stream opened", "path", spec.Path, "model", model)
	span.SetStatus(codes.Ok, "")
	return newEventStream(ctx, resp.Body, cancel, decodeAndTranslate(task)), nil
}

// roundTrip sends the request and returns the response body, classifying
// non-success statuses.
func (c *Client) roundTrip(ctx context.Context, spec RequestSpec, cfg requestConfig) ([]byte, error) {
	start := time.Now()
	resp, err := c.send(ctx, spec, cfg)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTP(resp.StatusCode, raw)
	}

	c.logger.DebugContext(ctx, "request completed",
		"path", spec.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return raw, nil
}

// send builds and issues the HTTP request described by spec.
func (c *Client) send(ctx context.Context, spec RequestSpec, cfg requestConfig) (*http.Response, error) {
	var reqBody io.Reader
	if spec.Body != nil {
		raw, err := json.Marshal(spec.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	url := c.baseURL + spec.Path
	if cfg.lowPriority {
		url += "?nice=true"
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if spec.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	injectTraceContext(ctx, req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	return resp, nil
}

func (c *Client) startSpan(ctx context.Context, spec RequestSpec, model string, streaming bool) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "lumen"+strings.ReplaceAll(spec.Path, "/", "."),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("lumen.model", model),
			attribute.String("lumen.path", spec.Path),
			attribute.Bool("lumen.streaming", streaming),
		),
	)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
