// Package client is a remote implementation of the prize pool API. It runs
// the same field validation as the server before sending, so obvious
// mistakes fail without a round trip.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"prize-pool/internal/config"
	"prize-pool/internal/model"
	"prize-pool/internal/prizepool"
	"prize-pool/internal/service"
)

const kindBusy = "busy"

// ErrTransient marks failures worth retrying: connection errors and 502/503/504.
var ErrTransient = errors.New("transient failure")

// APIError is a non-domain error reported by the server.
type APIError struct {
	Status  int
	Kind    string
	Field   string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Kind, e.Message)
}

// Client talks to the prize pool HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retries    int
	backoff    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBackoff sets the first retry delay.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// New creates a Client from configuration. The bearer token, if set, is
// passed through unchanged.
func New(cfg config.ClientConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout()},
		retries:    cfg.Retries,
		backoff:    200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ service.PoolAPI = (*Client)(nil)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Kind  string `json:"kind"`
		Field string `json:"field"`
	} `json:"error"`
}

// do sends one API call, retrying transient failures of idempotent requests.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	idempotent := method == http.MethodGet || method == http.MethodPut
	requestID := uuid.NewString()

	op := func() error {
		err := c.once(ctx, method, path, requestID, payload, out)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrTransient) && (idempotent || isBusy(err)) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.backoff
	policy.MaxElapsedTime = 0
	var b backoff.BackOff = backoff.WithMaxRetries(policy, uint64(max(c.retries, 0)))
	b = backoff.WithContext(b, ctx)

	return backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		log.Debug().
			Err(err).
			Str("method", method).
			Str("path", path).
			Str("request_id", requestID).
			Dur("wait", wait).
			Msg("Retrying API request")
	})
}

func (c *Client) once(ctx context.Context, method, path, requestID string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if isTransientStatus(resp.StatusCode) {
			return fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
		}
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if !env.Success {
		apiErr := decodeError(resp.StatusCode, env)
		if isTransientStatus(resp.StatusCode) {
			return fmt.Errorf("%w: %w", ErrTransient, apiErr)
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// decodeError rebuilds a *prizepool.Error for domain kinds so callers can
// use errors.Is the same way they would in process.
func decodeError(status int, env envelope) error {
	kind, field := "", ""
	if env.Error != nil {
		kind, field = env.Error.Kind, env.Error.Field
	}
	switch prizepool.Kind(kind) {
	case prizepool.KindValidation, prizepool.KindBudgetExceeded, prizepool.KindNotFound, prizepool.KindInvalidRange:
		return &prizepool.Error{Kind: prizepool.Kind(kind), Field: field, Message: stripField(env.Message, field)}
	}
	return &APIError{Status: status, Kind: kind, Field: field, Message: env.Message}
}

// stripField removes the "field: " prefix the server adds when rendering.
func stripField(message, field string) string {
	if field == "" {
		return message
	}
	return strings.TrimPrefix(message, field+": ")
}

func isTransientStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// isBusy reports a lock wait timeout. The server rejected the call before
// running it, so even a POST is safe to resend.
func isBusy(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kindBusy
}

func filterQuery(f prizepool.Filter) string {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func rewardPath(id int64) string {
	return "/api/v1/rewards/" + strconv.FormatInt(id, 10)
}

// ListRewards fetches the filtered pool.
func (c *Client) ListRewards(ctx context.Context, f prizepool.Filter) ([]model.Reward, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var rewards []model.Reward
	if err := c.do(ctx, http.MethodGet, "/api/v1/rewards"+filterQuery(f), nil, &rewards); err != nil {
		return nil, err
	}
	return rewards, nil
}

// CreateReward validates in and creates it on the server.
func (c *Client) CreateReward(ctx context.Context, in model.RewardInput) (model.Reward, error) {
	if err := prizepool.ValidateInput(in); err != nil {
		return model.Reward{}, err
	}
	var reward model.Reward
	if err := c.do(ctx, http.MethodPost, "/api/v1/rewards", in, &reward); err != nil {
		return model.Reward{}, err
	}
	return reward, nil
}

// UpdateReward validates the provided fields locally and patches the reward.
func (c *Client) UpdateReward(ctx context.Context, id int64, patch model.RewardPatch) (model.Reward, error) {
	if err := prizepool.ValidatePatch(patch); err != nil {
		return model.Reward{}, err
	}
	var reward model.Reward
	if err := c.do(ctx, http.MethodPut, rewardPath(id), patch, &reward); err != nil {
		return model.Reward{}, err
	}
	return reward, nil
}

// SetActive flips a reward's status.
func (c *Client) SetActive(ctx context.Context, id int64, active bool) (model.Reward, error) {
	var reward model.Reward
	body := map[string]bool{"active": active}
	if err := c.do(ctx, http.MethodPut, rewardPath(id)+"/active", body, &reward); err != nil {
		return model.Reward{}, err
	}
	return reward, nil
}

// DeleteReward removes a reward.
func (c *Client) DeleteReward(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, rewardPath(id), nil, nil)
}

// ReorderRewards moves an entry of the filtered view on the server.
func (c *Client) ReorderRewards(ctx context.Context, f prizepool.Filter, from, to int) ([]model.Reward, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	body := struct {
		Filter prizepool.Filter `json:"filter"`
		From   int              `json:"from"`
		To     int              `json:"to"`
	}{f, from, to}

	var rewards []model.Reward
	if err := c.do(ctx, http.MethodPost, "/api/v1/rewards/reorder", body, &rewards); err != nil {
		return nil, err
	}
	return rewards, nil
}

// Budget fetches the budget summary.
func (c *Client) Budget(ctx context.Context) (prizepool.BudgetSummary, error) {
	var summary prizepool.BudgetSummary
	if err := c.do(ctx, http.MethodGet, "/api/v1/rewards/budget", nil, &summary); err != nil {
		return prizepool.BudgetSummary{}, err
	}
	return summary, nil
}

// GetSettings fetches the spin settings.
func (c *Client) GetSettings(ctx context.Context) (model.SpinSettings, error) {
	var settings model.SpinSettings
	if err := c.do(ctx, http.MethodGet, "/api/v1/settings", nil, &settings); err != nil {
		return model.SpinSettings{}, err
	}
	return settings, nil
}

// UpdateSettings validates the provided fields locally and patches the settings.
func (c *Client) UpdateSettings(ctx context.Context, patch model.SpinSettingsPatch) (model.SpinSettings, error) {
	if err := prizepool.ValidateSettingsPatch(patch); err != nil {
		return model.SpinSettings{}, err
	}
	var settings model.SpinSettings
	if err := c.do(ctx, http.MethodPut, "/api/v1/settings", patch, &settings); err != nil {
		return model.SpinSettings{}, err
	}
	return settings, nil
}
