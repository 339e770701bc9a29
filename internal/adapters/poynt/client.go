package poynt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	adapterports "github.com/kevin07696/poynt-sync-service/internal/adapters/ports"
	pkgerrors "github.com/kevin07696/poynt-sync-service/pkg/errors"
	"github.com/kevin07696/poynt-sync-service/pkg/resilience"
)

// response is a successful (2xx) API response
type response struct {
	Body       []byte
	StatusCode int
}

// client performs authenticated calls against the Poynt REST API.
// Calls pass through a circuit breaker that only counts transient failures.
type client struct {
	config     *Config
	httpClient adapterports.HTTPClient
	tokens     TokenProvider
	breaker    *resilience.CircuitBreaker
	timeouts   *resilience.TimeoutConfig
	logger     adapterports.Logger
}

func newClient(
	config *Config,
	httpClient adapterports.HTTPClient,
	tokens TokenProvider,
	breaker *resilience.CircuitBreaker,
	logger adapterports.Logger,
) *client {
	timeouts := resilience.DefaultTimeoutConfig()
	if config.Timeout > 0 {
		timeouts.ExternalAPI = config.Timeout
	}
	if breaker == nil {
		cfg := resilience.DefaultCircuitBreakerConfig()
		cfg.IsFailure = pkgerrors.IsTransient
		cfg.OnStateChange = func(from, to resilience.CircuitState) {
			logger.Warn("Poynt circuit breaker changed state",
				adapterports.String("from", from.String()),
				adapterports.String("to", to.String()),
			)
		}
		breaker = resilience.NewCircuitBreaker(cfg)
	}
	return &client{
		config:     config,
		httpClient: httpClient,
		tokens:     tokens,
		breaker:    breaker,
		timeouts:   timeouts,
		logger:     logger,
	}
}

// do sends a request. Non-2xx responses come back as *pkgerrors.APIError.
func (c *client) do(ctx context.Context, method, path string, body interface{}) (*response, error) {
	var resp *response
	err := c.breaker.Execute(func() error {
		var err error
		resp, err = c.send(ctx, method, path, body)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return nil, &pkgerrors.APIError{Category: pkgerrors.CategoryServerError, Err: err}
	}
	return resp, err
}

func (c *client) send(ctx context.Context, method, path string, body interface{}) (*response, error) {
	ctx, cancel := c.timeouts.ExternalAPIContext(ctx)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, pkgerrors.NewTransportError(fmt.Errorf("failed to obtain access token: %w", err))
	}

	url := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("api-version", c.config.APIVersion)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Poynt-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Poynt request failed",
			adapterports.String("method", method),
			adapterports.String("path", path),
			adapterports.String("request_id", requestID),
			adapterports.Err(err),
		)
		return nil, pkgerrors.NewTransportError(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, pkgerrors.NewTransportError(fmt.Errorf("failed to read response body: %w", err))
	}

	c.logger.Info("Poynt request completed",
		adapterports.String("method", method),
		adapterports.String("path", path),
		adapterports.String("request_id", requestID),
		adapterports.Int("status_code", httpResp.StatusCode),
		adapterports.Duration("elapsed", time.Since(start)),
	)

	// Poynt answers creates with 201 and some actions with 204
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		if httpResp.StatusCode == http.StatusUnauthorized {
			c.tokens.Invalidate()
		}
		var apiErr apiError
		_ = json.Unmarshal(respBody, &apiErr)
		message := apiErr.DeveloperMessage
		if message == "" {
			message = apiErr.Message
		}
		if message == "" {
			message = http.StatusText(httpResp.StatusCode)
		}
		return nil, pkgerrors.NewStatusError(httpResp.StatusCode, apiErr.Code, message)
	}

	return &response{StatusCode: httpResp.StatusCode, Body: respBody}, nil
}
