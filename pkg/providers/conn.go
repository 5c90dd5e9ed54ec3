package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConn is a Conn backed by the go-openai client.
// It owns a pooled HTTP transport that is shared by every request made
// through the connection and released on Close.
type OpenAIConn struct {
	// config contains the connection configuration
	config ConnConfig

	// httpClient is the HTTP client with connection pooling
	httpClient *http.Client

	client *openai.Client

	closed atomic.Bool
}

// NewOpenAIConn creates a connection speaking the standard OpenAI API.
func NewOpenAIConn(config ConnConfig) (*OpenAIConn, error) {
	config = config.withDefaults()
	if err := validateConnConfig(config); err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultConfig(config.Credential)
	clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return newConn(config, clientConfig), nil
}

// NewAzureConn creates a connection speaking the Azure OpenAI API.
// config.APIVersion must be set.
func NewAzureConn(config ConnConfig) (*OpenAIConn, error) {
	config = config.withDefaults()
	if err := validateConnConfig(config); err != nil {
		return nil, err
	}
	if config.APIVersion == "" {
		return nil, &ConfigError{Field: "api_version", Message: "required for the Azure variant"}
	}

	clientConfig := openai.DefaultAzureConfig(config.Credential, strings.TrimRight(config.BaseURL, "/"))
	clientConfig.APIVersion = config.APIVersion

	return newConn(config, clientConfig), nil
}

func newConn(config ConnConfig, clientConfig openai.ClientConfig) *OpenAIConn {
	// Timeouts are per phase. A streamed body may run longer than
	// config.Timeout as long as each read arrives within it.
	dialer := &net.Dialer{
		Timeout:   config.Timeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   config.Timeout,
		ResponseHeaderTimeout: config.Timeout,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		ForceAttemptHTTP2:     true,
	}

	httpClient := &http.Client{Transport: transport}
	clientConfig.HTTPClient = httpClient

	return &OpenAIConn{
		config:     config,
		httpClient: httpClient,
		client:     openai.NewClientWithConfig(clientConfig),
	}
}

func validateConnConfig(config ConnConfig) error {
	if config.Credential == "" {
		return &ConfigError{Field: "credential", Message: "must not be empty"}
	}
	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return &ConfigError{Field: "base_url", Message: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigError{Field: "base_url", Message: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &ConfigError{Field: "base_url", Message: "host must not be empty"}
	}
	return nil
}

// Config returns the connection configuration.
func (c *OpenAIConn) Config() ConnConfig {
	return c.config
}

// CreateChatCompletion implements Conn. The whole call, body included, is
// bounded by the configured timeout.
func (c *OpenAIConn) CreateChatCompletion(ctx context.Context, req Request) (Response, error) {
	if c.closed.Load() {
		return Response{}, ErrConnClosed
	}
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	return c.client.CreateChatCompletion(ctx, req)
}

// CreateChatCompletionStream implements Conn. Each Recv is bounded by the
// configured timeout; the stream as a whole is not.
func (c *OpenAIConn) CreateChatCompletionStream(ctx context.Context, req Request) (ChunkStream, error) {
	if c.closed.Load() {
		return nil, ErrConnClosed
	}

	ctx, cancel := context.WithCancelCause(ctx)
	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		cancel(nil)
		return nil, err
	}
	return &idleStream{
		stream:  stream,
		ctx:     ctx,
		cancel:  cancel,
		timeout: c.config.Timeout,
	}, nil
}

// idleStream aborts the underlying request when a single read waits longer
// than timeout.
type idleStream struct {
	stream  *openai.ChatCompletionStream
	ctx     context.Context
	cancel  context.CancelCauseFunc
	timeout time.Duration
}

func (s *idleStream) Recv() (Chunk, error) {
	timer := time.AfterFunc(s.timeout, func() { s.cancel(ErrReadTimeout) })
	chunk, err := s.stream.Recv()
	timer.Stop()

	if err != nil && errors.Is(context.Cause(s.ctx), ErrReadTimeout) {
		return chunk, fmt.Errorf("%w after %s: %v", ErrReadTimeout, s.timeout, err)
	}
	return chunk, err
}

func (s *idleStream) Close() error {
	s.cancel(nil)
	return s.stream.Close()
}

// Close releases idle transport connections. In-flight requests are not
// interrupted; they finish or hit their own timeout.
func (c *OpenAIConn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.httpClient.CloseIdleConnections()
	slog.Debug("upstream connection closed", "base_url", c.config.BaseURL, "azure", c.config.IsAzure())
	return nil
}
