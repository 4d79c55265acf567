// Package plaid is a small client for the Plaid link, item and transactions
// endpoints used to feed the recurrence detector.
package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/subscout-dev/subscout/internal/model"
)

// DateFormat is the calendar date layout the API uses.
const DateFormat = "2006-01-02"

// DefaultCount is the number of transactions requested per call.
const DefaultCount = 100

// ErrMissingCredentials is returned by New when the client id or secret is empty.
var ErrMissingCredentials = errors.New("plaid client id and secret are required")

// Config configures a Client.
type Config struct {
	Environment  string // sandbox, development or production
	ClientID     string
	Secret       string
	ClientName   string
	CountryCodes []string
	Language     string
	Products     []string

	// BaseURL overrides the environment host, mainly for tests.
	BaseURL string

	Retry      RetryConfig
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// RetryConfig controls retries of rate-limited and 5xx responses.
type RetryConfig struct {
	Attempts uint
	Delay    time.Duration
}

// Client talks to the Plaid API.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a Client, filling defaults for unset fields.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.Secret == "" {
		return nil, ErrMissingCredentials
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		u, err := EnvironmentURL(cfg.Environment)
		if err != nil {
			return nil, err
		}
		baseURL = u
	}

	if cfg.Retry.Attempts == 0 {
		cfg.Retry.Attempts = 3
	}
	if cfg.Retry.Delay == 0 {
		cfg.Retry.Delay = time.Second
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if len(cfg.CountryCodes) == 0 {
		cfg.CountryCodes = []string{"US"}
	}
	if len(cfg.Products) == 0 {
		cfg.Products = []string{"transactions"}
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		log:     cfg.Logger,
	}, nil
}

// EnvironmentURL returns the API host for an environment name.
func EnvironmentURL(env string) (string, error) {
	switch strings.ToLower(env) {
	case "", "sandbox":
		return "https://sandbox.plaid.com", nil
	case "development":
		return "https://development.plaid.com", nil
	case "production":
		return "https://production.plaid.com", nil
	default:
		return "", fmt.Errorf("unknown plaid environment %q", env)
	}
}

type linkTokenUser struct {
	ClientUserID string `json:"client_user_id"`
}

type linkTokenRequest struct {
	ClientID     string        `json:"client_id"`
	Secret       string        `json:"secret"`
	ClientName   string        `json:"client_name"`
	CountryCodes []string      `json:"country_codes"`
	Language     string        `json:"language"`
	Products     []string      `json:"products"`
	User         linkTokenUser `json:"user"`
}

type linkTokenResponse struct {
	LinkToken  string `json:"link_token"`
	Expiration string `json:"expiration"`
	RequestID  string `json:"request_id"`
}

// CreateLinkToken creates a Link token for the given end user.
func (c *Client) CreateLinkToken(ctx context.Context, clientUserID string) (string, error) {
	req := linkTokenRequest{
		ClientID:     c.cfg.ClientID,
		Secret:       c.cfg.Secret,
		ClientName:   c.cfg.ClientName,
		CountryCodes: c.cfg.CountryCodes,
		Language:     c.cfg.Language,
		Products:     c.cfg.Products,
		User:         linkTokenUser{ClientUserID: clientUserID},
	}
	var resp linkTokenResponse
	if err := c.post(ctx, "/link/token/create", req, &resp); err != nil {
		return "", fmt.Errorf("creating link token: %w", err)
	}
	return resp.LinkToken, nil
}

type exchangeRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	PublicToken string `json:"public_token"`
}

// Exchange is the result of swapping a public token for an access token.
type Exchange struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// ExchangePublicToken swaps a Link public token for a long-lived access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (Exchange, error) {
	req := exchangeRequest{
		ClientID:    c.cfg.ClientID,
		Secret:      c.cfg.Secret,
		PublicToken: publicToken,
	}
	var resp Exchange
	if err := c.post(ctx, "/item/public_token/exchange", req, &resp); err != nil {
		return Exchange{}, fmt.Errorf("exchanging public token: %w", err)
	}
	return resp, nil
}

// TransactionsRequest selects transactions for an item between two dates.
type TransactionsRequest struct {
	AccessToken string
	Start       time.Time
	End         time.Time
	Count       int
}

type transactionsOptions struct {
	Count int `json:"count"`
}

type transactionsRequest struct {
	ClientID    string              `json:"client_id"`
	Secret      string              `json:"secret"`
	AccessToken string              `json:"access_token"`
	StartDate   string              `json:"start_date"`
	EndDate     string              `json:"end_date"`
	Options     transactionsOptions `json:"options"`
}

type apiTransaction struct {
	TransactionID string          `json:"transaction_id"`
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
}

type transactionsResponse struct {
	Transactions      []apiTransaction `json:"transactions"`
	TotalTransactions int              `json:"total_transactions"`
}

// GetTransactions fetches one page of transactions and converts them.
func (c *Client) GetTransactions(ctx context.Context, r TransactionsRequest) ([]model.Transaction, error) {
	count := r.Count
	if count <= 0 {
		count = DefaultCount
	}
	req := transactionsRequest{
		ClientID:    c.cfg.ClientID,
		Secret:      c.cfg.Secret,
		AccessToken: r.AccessToken,
		StartDate:   r.Start.Format(DateFormat),
		EndDate:     r.End.Format(DateFormat),
		Options:     transactionsOptions{Count: count},
	}

	var resp transactionsResponse
	if err := c.post(ctx, "/transactions/get", req, &resp); err != nil {
		return nil, fmt.Errorf("getting transactions: %w", err)
	}

	txns := make([]model.Transaction, 0, len(resp.Transactions))
	for i, t := range resp.Transactions {
		date, err := time.Parse(DateFormat, t.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: parsing date %q: %w", i, t.Date, err)
		}
		txns = append(txns, model.Transaction{Name: t.Name, Amount: t.Amount, Date: date})
	}

	c.log.Debug().
		Int("returned", len(txns)).
		Int("total", resp.TotalTransactions).
		Str("start", req.StartDate).
		Str("end", req.EndDate).
		Msg("fetched transactions")

	return txns, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	return retry.Do(
		func() error {
			return c.do(ctx, path, payload, out)
		},
		retry.Context(ctx),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn().Err(err).Uint("attempt", n+1).Str("path", path).Msg("retrying plaid request")
		}),
		retry.Attempts(c.cfg.Retry.Attempts),
		retry.Delay(c.cfg.Retry.Delay),
		retry.LastErrorOnly(true),
	)
}

func (c *Client) do(ctx context.Context, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return false
}
