package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Environment base URLs for the payment service.
const (
	SandboxBaseURL    = "https://sandbox.fapshi.com"
	ProductionBaseURL = "https://live.fapshi.com"
)

// Config holds gateway client configuration
type Config struct {
	BaseURL string // resolved from environment if empty
	APIUser string
	APIKey  string
	Timeout time.Duration
}

// HTTPClient is the production Client implementation. One blocking HTTP
// request per call, bounded by the configured timeout, no retries.
type HTTPClient struct {
	baseURL    string
	apiUser    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a gateway client for the given environment.
func NewHTTPClient(cfg *Config, environment string, logger *slog.Logger) *HTTPClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if environment == "production" {
			baseURL = ProductionBaseURL
		} else {
			baseURL = SandboxBaseURL
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		baseURL: baseURL,
		apiUser: cfg.APIUser,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// GenerateLink requests a hosted checkout link.
func (c *HTTPClient) GenerateLink(ctx context.Context, req LinkRequest) (*LinkResponse, error) {
	var resp LinkResponse
	if err := c.post(ctx, "initiate-pay", "/initiate-pay", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InitiateDirect pushes a charge prompt to the payer's mobile device.
func (c *HTTPClient) InitiateDirect(ctx context.Context, req DirectRequest) (*DirectResponse, error) {
	var resp DirectResponse
	if err := c.post(ctx, "direct-pay", "/direct-pay", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetStatus queries the gateway's current view of a transaction.
func (c *HTTPClient) GetStatus(ctx context.Context, transID string) (*Transaction, error) {
	var resp Transaction
	if err := c.get(ctx, "payment-status", "/payment-status/"+url.PathEscape(transID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Expire marks a transaction expired so no further payment can happen on it.
func (c *HTTPClient) Expire(ctx context.Context, transID string) (*Transaction, error) {
	body := map[string]string{"transId": transID}
	var resp Transaction
	if err := c.post(ctx, "expire-pay", "/expire-pay", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListUserTransactions returns every gateway transaction tied to a user id.
func (c *HTTPClient) ListUserTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	var resp []Transaction
	if err := c.get(ctx, "transaction", "/transaction/"+url.PathEscape(userID), &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Search filters gateway transactions by the given criteria.
func (c *HTTPClient) Search(ctx context.Context, q SearchQuery) ([]Transaction, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	if q.Medium != "" {
		params.Set("medium", q.Medium)
	}
	if q.Name != "" {
		params.Set("name", q.Name)
	}
	if q.Start != "" {
		params.Set("start", q.Start)
	}
	if q.End != "" {
		params.Set("end", q.End)
	}
	if q.Amount > 0 {
		params.Set("amt", strconv.FormatInt(q.Amount, 10))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.ExternalID != "" {
		params.Set("externalId", q.ExternalID)
	}

	path := "/search"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp []Transaction
	if err := c.get(ctx, "search", path, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Balance returns the service account balance.
func (c *HTTPClient) Balance(ctx context.Context) (int64, error) {
	var resp struct {
		Balance int64 `json:"balance"`
	}
	if err := c.get(ctx, "balance", "/balance", &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

func (c *HTTPClient) post(ctx context.Context, op, path string, body, dest interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Kind: KindInternal, Op: op, Message: "encode request body", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &Error{Kind: KindInternal, Op: op, Message: "build request", Err: err}
	}

	return c.do(req, op, dest)
}

func (c *HTTPClient) get(ctx context.Context, op, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &Error{Kind: KindInternal, Op: op, Message: "build request", Err: err}
	}

	return c.do(req, op, dest)
}

// do executes the request with credentials attached and classifies failures.
func (c *HTTPClient) do(req *http.Request, op string, dest interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apiuser", c.apiUser)
	req.Header.Set("apikey", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failure or timeout: the gateway never answered.
		c.logger.Error("Gateway unreachable",
			slog.String("op", op),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err),
		)
		return &Error{Kind: KindUnavailable, Op: op, Message: "no response received from payment gateway", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindInternal, Op: op, Message: "read response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := decodeErrorMessage(raw)
		if message == "" {
			message = fmt.Sprintf("gateway responded with status %d", resp.StatusCode)
		}

		c.logger.Warn("Gateway rejected request",
			slog.String("op", op),
			slog.Int("status", resp.StatusCode),
			slog.String("message", message),
		)
		return &Error{Kind: KindRejected, Op: op, StatusCode: resp.StatusCode, Message: message}
	}

	if dest != nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			return &Error{Kind: KindInternal, Op: op, Message: "decode response body", Err: err}
		}
	}

	c.logger.Debug("Gateway call completed",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	return nil
}

// decodeErrorMessage pulls the gateway's message field out of an error body.
func decodeErrorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.Message
}
