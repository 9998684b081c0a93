package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/retry"
)

// ErrProviderRejected wraps a definitive provider-side refusal (bad request,
// declined charge). Transport failures are returned as plain errors.
var ErrProviderRejected = errors.New("provider rejected request")

const (
	StatusSuccessful = "successful"

	defaultTimeout = 15 * time.Second
)

type Config struct {
	BaseURL     string
	SecretKey   string
	Currency    string
	RedirectURL string
	Timeout     time.Duration
}

type Client struct {
	cfg   Config
	http  *http.Client
	log   *zerolog.Logger
	strat retry.Strategy
}

func NewClient(cfg Config, log *zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" || cfg.SecretKey == "" {
		return nil, errors.New("payment provider base URL and secret key are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log,
		strat: retry.Strategy{
			Attempts: 3,
			Delay:    500 * time.Millisecond,
			Backoff:  2,
		},
	}, nil
}

type ChargeInput struct {
	TxRef       string `json:"tx_ref"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	FullName    string `json:"fullname"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type chargeRequest struct {
	TxRef          string            `json:"tx_ref"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	RedirectURL    string            `json:"redirect_url"`
	PaymentOptions string            `json:"payment_options"`
	Customer       chargeCustomer    `json:"customer"`
	Customizations map[string]string `json:"customizations"`
}

type chargeCustomer struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phonenumber"`
	Name        string `json:"name"`
}

type providerEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type chargeData struct {
	Link string `json:"link"`
}

// VerificationResult carries the provider's view of one transaction plus the
// raw response body for the audit trail.
type VerificationResult struct {
	Status      string `json:"status"`
	Currency    string `json:"currency"`
	Amount      int64  `json:"amount"`
	TxRef       string `json:"tx_ref"`
	PaymentType string `json:"payment_type"`
	Raw         []byte `json:"-"`
}

// CreateCharge asks the provider for a hosted payment page and returns its
// redirect link.
func (c *Client) CreateCharge(ctx context.Context, in ChargeInput) (string, error) {
	body := chargeRequest{
		TxRef:          in.TxRef,
		Amount:         in.Amount,
		Currency:       in.Currency,
		RedirectURL:    c.cfg.RedirectURL,
		PaymentOptions: "card,banktransfer,ussd,mobilemoneyrwanda",
		Customer: chargeCustomer{
			Email:       in.Email,
			PhoneNumber: in.PhoneNumber,
			Name:        in.FullName,
		},
		Customizations: map[string]string{
			"title":       in.Title,
			"description": in.Description,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal charge request: %w", err)
	}

	env, err := c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/payments", payload)
	if err != nil {
		return "", err
	}
	if env.Status != "success" {
		return "", fmt.Errorf("%w: %s", ErrProviderRejected, env.Message)
	}

	var data chargeData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Link == "" {
		return "", fmt.Errorf("provider returned no payment link")
	}
	return data.Link, nil
}

// VerifyTransaction fetches the provider's final word on a transaction by id.
func (c *Client) VerifyTransaction(ctx context.Context, transactionID string) (*VerificationResult, error) {
	url := fmt.Sprintf("%s/transactions/%s/verify", c.cfg.BaseURL, transactionID)
	env, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("%w: %s", ErrProviderRejected, env.Message)
	}

	var result VerificationResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return nil, fmt.Errorf("decode verification response: %w", err)
	}
	result.Raw = env.Data
	return &result, nil
}

func (c *Client) Currency() string { return c.cfg.Currency }

// do performs one provider call with bounded retries on transport errors and
// 5xx answers. 4xx answers are handed back as provider envelopes.
func (c *Client) do(ctx context.Context, method, url string, payload []byte) (*providerEnvelope, error) {
	var env providerEnvelope

	err := retry.Do(func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			c.log.Warn().Err(err).Str("url", url).Msg("payment provider call failed")
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("provider returned %d", resp.StatusCode)
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return fmt.Errorf("decode provider response: %w", err)
		}
		return nil
	}, c.strat)
	if err != nil {
		return nil, err
	}
	return &env, nil
}
