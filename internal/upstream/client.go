package upstream

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/Davincible/llm-relay/internal/config"
	"github.com/Davincible/llm-relay/internal/translate"
)

// Request is one upstream attempt: a chat-completions shaped payload
// bound to a backend and its provider credentials. The client rewrites
// the payload's model field and re-encodes for the Responses API when
// the backend's model id calls for it.
type Request struct {
	RequestID string
	Backend   config.Backend
	Provider  config.Provider
	Payload   map[string]any
}

// Client issues buffered and streaming requests to provider backends.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration

	// In-flight cancel handles by request id.
	inflight sync.Map
}

func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		logger:     logger,
		timeout:    timeout,
	}
}

// Cancel aborts an in-flight request by id. Returns false when the id
// is not currently in flight.
func (c *Client) Cancel(requestID string) bool {
	if cancel, ok := c.inflight.Load(requestID); ok {
		cancel.(context.CancelFunc)()
		return true
	}

	return false
}

// Complete issues a buffered request and returns the upstream response
// body. Non-2xx responses surface as *HTTPError.
func (c *Client) Complete(ctx context.Context, req Request) ([]byte, error) {
	resp, err := c.send(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	reader, err := decompressReader(resp)
	if err != nil {
		return nil, fmt.Errorf("create decompression reader: %w", err)
	}

	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, c.wrapTransportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// Stream opens a streaming request and returns a relay over its SSE
// body. The caller owns the stream and must Close it on every path.
func (c *Client) Stream(ctx context.Context, req Request) (*Stream, error) {
	resp, err := c.send(ctx, req, true)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

		return nil, &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	reader, err := decompressReader(resp)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("create decompression reader: %w", err)
	}

	return &Stream{
		relay: newSSERelay(reader),
		body:  resp.Body,
	}, nil
}

// send builds the effective payload and issues the POST. The returned
// response body is live; callers own it.
func (c *Client) send(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	modelID := req.Backend.ModelID()
	api := APIFor(modelID)

	payload := make(map[string]any, len(req.Payload)+2)
	for key, value := range req.Payload {
		payload[key] = value
	}

	payload["model"] = modelID

	if stream {
		payload["stream"] = true
		payload["stream_options"] = map[string]any{"include_usage": true}
	}

	if api == APIResponses {
		payload = translate.ToResponsesRequest(payload)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal upstream payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	if req.RequestID != "" {
		c.inflight.Store(req.RequestID, cancel)
	}

	release := func() {
		if req.RequestID != "" {
			c.inflight.Delete(req.RequestID)
		}

		cancel()
	}

	endpoint := Endpoint(req.Provider, modelID, api)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		release()
		return nil, fmt.Errorf("create upstream request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	headerName, headerValue := AuthHeader(req.Provider)
	httpReq.Header.Set(headerName, headerValue)

	c.logger.Debug("Dispatching upstream request",
		"request_id", req.RequestID,
		"backend", req.Backend.Model,
		"api", string(api),
		"stream", stream,
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		release()
		return nil, c.wrapTransportError(ctx, err)
	}

	// The body inherits the cancel handle: releasing happens when the
	// caller closes it.
	resp.Body = &releasingBody{ReadCloser: resp.Body, release: release}

	return resp, nil
}

func (c *Client) wrapTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Timeout: c.timeout}
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return context.Canceled
	}

	return err
}

// releasingBody ties the per-request cancel handle to body lifetime so
// timers and the in-flight registry are released on every exit path.
type releasingBody struct {
	io.ReadCloser
	release func()
	once    sync.Once
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)

	return err
}

func decompressReader(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

// Stream is an open SSE response. Next yields forwardable event bytes
// in upstream order; Close releases the socket and cancel handle.
type Stream struct {
	relay *sseRelay
	body  io.ReadCloser
}

// Next returns the next event bytes or io.EOF at end of stream.
func (s *Stream) Next() ([]byte, error) {
	return s.relay.Next()
}

func (s *Stream) Close() error {
	return s.body.Close()
}
