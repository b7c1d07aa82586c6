// Package brokerage provides a client for the brokerage trading API that
// backs the equity snapshot, cash flow, and live balance feeds.
package brokerage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/quantfold/twrengine/internal/common"
	"github.com/quantfold/twrengine/internal/interfaces"
	"github.com/quantfold/twrengine/internal/models"
)

const (
	DefaultBaseURL   = "https://api.broker.example.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Activity types that represent real cash movements. Everything else in the
// feed (fills, fees, journal entries) is ignored by the engine.
const (
	activityDeposit    = "CSD"
	activityWithdrawal = "CSW"
)

// Client implements the BrokerageClient interface
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new brokerage client
func NewClient(apiKey, apiSecret string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a brokerage API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("brokerage API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Unauthorized reports whether the error was an auth failure.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// NotFound reports whether the requested resource does not exist.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// get performs a rate-limited GET request and returns the raw response body.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-API-Key-ID", c.apiKey)
	req.Header.Set("X-API-Secret-Key", c.apiSecret)
	req.Header.Set("Accept", "application/json")

	reqID := uuid.NewString()[:8]
	started := time.Now()
	c.logger.Debug().Str("req", reqID).Str("url", path).Msg("Brokerage API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().Str("req", reqID).Int("status", resp.StatusCode).Dur("elapsed", time.Since(started)).Msg("Brokerage API response")

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	return body, nil
}

// getJSON performs a GET request and decodes the response into result.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, result interface{}) error {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// historyResponse is the portfolio history wire shape: parallel arrays
// indexed by trading day.
type historyResponse struct {
	Timestamp     []int64   `json:"timestamp"`
	Equity        []float64 `json:"equity"`
	ProfitLoss    []float64 `json:"profit_loss"`
	ProfitLossPct []float64 `json:"profit_loss_pct"`
}

// FetchSnapshots retrieves daily equity snapshots for an account.
func (c *Client) FetchSnapshots(ctx context.Context, accountID string, start, end time.Time, granularity string) ([]models.EquitySnapshot, error) {
	if granularity == "" {
		granularity = "1D"
	}

	query := url.Values{}
	query.Set("start", start.Format(models.DayFormat))
	query.Set("end", end.Format(models.DayFormat))
	query.Set("timeframe", granularity)

	var resp historyResponse
	path := fmt.Sprintf("/v2/accounts/%s/portfolio/history", accountID)
	if err := c.getJSON(ctx, path, query, &resp); err != nil {
		return nil, err
	}

	// The arrays are documented as equal length; tolerate ragged responses
	// by stopping at the shortest.
	n := len(resp.Timestamp)
	if len(resp.Equity) < n {
		n = len(resp.Equity)
	}

	snapshots := make([]models.EquitySnapshot, 0, n)
	for i := 0; i < n; i++ {
		snap := models.EquitySnapshot{
			Day:    models.Day(time.Unix(resp.Timestamp[i], 0).UTC()),
			Equity: resp.Equity[i],
		}
		if i < len(resp.ProfitLoss) {
			snap.PNL = resp.ProfitLoss[i]
		}
		if i < len(resp.ProfitLossPct) {
			snap.PNLPct = resp.ProfitLossPct[i]
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}

// activityData is one cash-movement activity on the wire. Money fields are
// string-encoded decimals.
type activityData struct {
	ID              string `json:"id"`
	ActivityType    string `json:"activity_type"`
	Date            string `json:"date"`
	TransactionTime string `json:"transaction_time"`
	NetAmount       string `json:"net_amount"`
	Status          string `json:"status"`
}

// activityEnvelope is the paged response shape some feed versions return.
type activityEnvelope struct {
	Activities    []activityData `json:"activities"`
	NextPageToken string         `json:"next_page_token"`
}

// FetchActivityPage retrieves one page of cash-movement activities.
// The feed has two response shapes in the wild: a bare JSON array, and an
// envelope with "activities" and "next_page_token". Both are normalized
// into the same ActivityPage.
func (c *Client) FetchActivityPage(ctx context.Context, accountID string, start, end time.Time, pageToken string, pageSize int) (*models.ActivityPage, error) {
	query := url.Values{}
	query.Set("activity_types", activityDeposit+","+activityWithdrawal)
	query.Set("after", start.Format(models.DayFormat))
	query.Set("until", end.Format(models.DayFormat))
	query.Set("direction", "asc")
	query.Set("page_size", fmt.Sprintf("%d", pageSize))
	if pageToken != "" {
		query.Set("page_token", pageToken)
	}

	path := fmt.Sprintf("/v2/accounts/%s/activities", accountID)
	body, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	return decodeActivityPage(body)
}

// decodeActivityPage normalizes both activity feed shapes into an ActivityPage.
func decodeActivityPage(body []byte) (*models.ActivityPage, error) {
	trimmed := bytes.TrimSpace(body)

	var raw []activityData
	var nextToken string

	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode activity array: %w", err)
		}
	} else {
		var env activityEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("failed to decode activity envelope: %w", err)
		}
		raw = env.Activities
		nextToken = env.NextPageToken
	}

	events := make([]models.CashFlowEvent, 0, len(raw))
	for _, a := range raw {
		event, ok := toCashFlowEvent(a)
		if !ok {
			continue
		}
		events = append(events, event)
	}

	return &models.ActivityPage{Events: events, NextPageToken: nextToken}, nil
}

// toCashFlowEvent converts a wire activity into a CashFlowEvent.
// The sign is derived from the activity type, never from the amount: the
// feed reports withdrawal amounts as negative net_amount values, which are
// normalized to non-negative here.
func toCashFlowEvent(a activityData) (models.CashFlowEvent, bool) {
	var kind models.FlowKind
	switch a.ActivityType {
	case activityDeposit:
		kind = models.FlowDeposit
	case activityWithdrawal:
		kind = models.FlowWithdrawal
	default:
		return models.CashFlowEvent{}, false
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(a.NetAmount))
	if err != nil {
		return models.CashFlowEvent{}, false
	}

	day := parseActivityDate(a)
	if day.IsZero() {
		return models.CashFlowEvent{}, false
	}

	return models.CashFlowEvent{
		Day:    day,
		Kind:   kind,
		Amount: amount.Abs(),
	}, true
}

// parseActivityDate prefers the date field, falling back to the
// transaction timestamp.
func parseActivityDate(a activityData) time.Time {
	if d := strings.TrimSpace(a.Date); d != "" {
		if t, err := time.Parse(models.DayFormat, d); err == nil {
			return t
		}
	}
	if ts := strings.TrimSpace(a.TransactionTime); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return models.Day(t.UTC())
		}
	}
	return time.Time{}
}

// accountResponse carries the live account state; equity is a
// string-encoded decimal.
type accountResponse struct {
	ID     string `json:"id"`
	Equity string `json:"equity"`
	Status string `json:"status"`
}

// CurrentEquity reads the account's live (non-snapshot) equity.
func (c *Client) CurrentEquity(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var resp accountResponse
	path := fmt.Sprintf("/v2/accounts/%s/account", accountID)
	if err := c.getJSON(ctx, path, nil, &resp); err != nil {
		return decimal.Zero, err
	}

	equity, err := decimal.NewFromString(strings.TrimSpace(resp.Equity))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse live equity %q: %w", resp.Equity, err)
	}

	return equity, nil
}

// Ensure Client implements BrokerageClient
var _ interfaces.BrokerageClient = (*Client)(nil)
