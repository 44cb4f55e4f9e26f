package wompi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrMissingSecret     = errors.New("wompi: integrity secret not configured")
	ErrSecretEnvMismatch = errors.New("wompi: integrity secret does not match environment")
	ErrMissingPrivateKey = errors.New("wompi: private key not configured")
	ErrMissingPublicKey  = errors.New("wompi: public key not configured")
)

// Client talks to the Wompi REST API. Calls are bounded by the embedded
// http.Client timeout plus whatever deadline the caller's context carries.
type Client struct {
	env  Environment
	http *http.Client
	log  *zap.Logger
}

func NewClient(env Environment, log *zap.Logger) *Client {
	return &Client{
		env:  env,
		http: &http.Client{Timeout: 12 * time.Second},
		log:  log.Named("wompi.client"),
	}
}

// TransactionRequest describes one charge against a stored payment source.
type TransactionRequest struct {
	AcceptanceToken string `json:"acceptance_token"`
	AmountInCents   int64  `json:"amount_in_cents"`
	Currency        string `json:"currency"`
	CustomerEmail   string `json:"customer_email"`
	PaymentSourceID string `json:"payment_source_id"`
	Reference       string `json:"reference"`
}

type Transaction struct {
	ID     string
	Status string
}

// AcceptanceToken fetches the one-time merchant acceptance token every
// transaction creation must carry.
func (c *Client) AcceptanceToken(ctx context.Context) (string, error) {
	publicKey := strings.TrimSpace(c.env.PublicKey)
	if publicKey == "" {
		return "", ErrMissingPublicKey
	}

	endpoint := c.env.BaseURL + "/merchants/" + url.PathEscape(publicKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		Data struct {
			PresignedAcceptance struct {
				AcceptanceToken string `json:"acceptance_token"`
			} `json:"presigned_acceptance"`
		} `json:"data"`
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && resp.StatusCode < http.StatusBadRequest {
		return "", err
	}

	token := strings.TrimSpace(body.Data.PresignedAcceptance.AcceptanceToken)
	if resp.StatusCode >= http.StatusBadRequest || token == "" {
		return "", fmt.Errorf("wompi: could not get acceptance token, status=%d%s",
			resp.StatusCode, errorHint(body.Error))
	}
	return token, nil
}

// CreateTransaction charges a stored payment source. The gateway resolves
// most transactions asynchronously, so the returned status is usually
// "pending" and the webhook settles the final state.
func (c *Client) CreateTransaction(ctx context.Context, txr TransactionRequest) (Transaction, error) {
	privateKey := strings.TrimSpace(c.env.PrivateKey)
	if privateKey == "" {
		return Transaction{}, ErrMissingPrivateKey
	}

	payload, err := json.Marshal(txr)
	if err != nil {
		return Transaction{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.env.BaseURL+"/transactions", bytes.NewReader(payload))
	if err != nil {
		return Transaction{}, err
	}
	req.Header.Set("Authorization", "Bearer "+privateKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Transaction{}, err
	}
	defer resp.Body.Close()

	var body struct {
		Data struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && resp.StatusCode < http.StatusBadRequest {
		return Transaction{}, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return Transaction{}, fmt.Errorf("wompi: transaction failed, status=%d%s",
			resp.StatusCode, errorHint(body.Error))
	}
	if strings.TrimSpace(body.Data.ID) == "" {
		return Transaction{}, fmt.Errorf("wompi: response missing transaction id%s", errorHint(body.Error))
	}

	status := strings.ToLower(strings.TrimSpace(body.Data.Status))
	if status == "" {
		status = "pending"
	}
	return Transaction{ID: body.Data.ID, Status: status}, nil
}

// errorHint extracts the gateway's type/reason/messages error fields into
// a log-friendly suffix.
func errorHint(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var gwErr struct {
		Type     string   `json:"type"`
		Reason   string   `json:"reason"`
		Messages []string `json:"messages"`
	}
	if err := json.Unmarshal(raw, &gwErr); err != nil {
		return ""
	}

	parts := make([]string, 0, 3)
	if gwErr.Type != "" {
		parts = append(parts, gwErr.Type)
	}
	if gwErr.Reason != "" {
		parts = append(parts, gwErr.Reason)
	}
	if len(gwErr.Messages) > 0 {
		parts = append(parts, strings.Join(gwErr.Messages, "|"))
	}
	if len(parts) == 0 {
		return ""
	}
	return " hint=" + strings.Join(parts, ":")
}
