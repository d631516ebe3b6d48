package gateway

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kalungi/estate-management/internal"
)

// FlutterwaveClient drives the mobile-money style gateway. Initialization
// returns a hosted payment link; the provider reports the outcome back via a
// signed webhook and a redirect callback.
type FlutterwaveClient struct {
	baseURL     string
	secretKey   string
	webhookHash string
	redirectURL string
	currency    string
	client      *http.Client
	logger      *slog.Logger
}

func NewFlutterwaveClient(cfg internal.FlutterwaveConfig, timeout time.Duration, logger *slog.Logger) *FlutterwaveClient {
	return &FlutterwaveClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:   cfg.SecretKey,
		webhookHash: cfg.WebhookHash,
		redirectURL: cfg.RedirectURL,
		currency:    cfg.Currency,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

func (c *FlutterwaveClient) Name() string {
	return "flutterwave"
}

func (c *FlutterwaveClient) Currency() string {
	return c.currency
}

type flutterwaveInitRequest struct {
	TxRef          string                 `json:"tx_ref"`
	Amount         int64                  `json:"amount"`
	Currency       string                 `json:"currency"`
	RedirectURL    string                 `json:"redirect_url"`
	Customer       map[string]interface{} `json:"customer"`
	PaymentOptions string                 `json:"payment_options"`
}

type flutterwaveInitResponse struct {
	Status string `json:"status"`
	Data   struct {
		Link string `json:"link"`
	} `json:"data"`
}

func (c *FlutterwaveClient) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	payload := flutterwaveInitRequest{
		TxRef:       req.Reference,
		Amount:      req.Amount,
		Currency:    req.Currency,
		RedirectURL: c.redirectURL,
		Customer: map[string]interface{}{
			"email": req.CustomerEmail,
		},
		PaymentOptions: "card,mobilemoneyuganda",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal init request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	c.logger.Info("initializing flutterwave payment",
		"tx_ref", req.Reference,
		"amount", req.Amount,
		"currency", req.Currency)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrProviderUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("flutterwave init returned error",
			"status", resp.StatusCode,
			"tx_ref", req.Reference,
			"response", string(respBody))
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var initResp flutterwaveInitResponse
	if err := json.Unmarshal(respBody, &initResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrProviderUnavailable, err)
	}
	if initResp.Status != "success" {
		return nil, fmt.Errorf("%w: provider status %q", ErrProviderUnavailable, initResp.Status)
	}

	return &InitializeResult{
		Reference:   req.Reference,
		PaymentLink: initResp.Data.Link,
	}, nil
}

// VerifyWebhook checks the verif-hash header Flutterwave sends against the
// configured shared secret.
func (c *FlutterwaveClient) VerifyWebhook(payload []byte, signature string) error {
	if signature == "" || c.webhookHash == "" {
		return ErrBadSignature
	}
	if subtle.ConstantTimeCompare([]byte(signature), []byte(c.webhookHash)) != 1 {
		return ErrBadSignature
	}
	return nil
}

type flutterwaveEventPayload struct {
	Status string `json:"status"`
	TxRef  string `json:"tx_ref"`
	Data   *struct {
		Status string `json:"status"`
		TxRef  string `json:"tx_ref"`
	} `json:"data"`
}

// ParseOutcome maps the webhook status field. Some payloads nest under data.
func (c *FlutterwaveClient) ParseOutcome(payload []byte) (Outcome, string) {
	var event flutterwaveEventPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return OutcomeUnknown, ""
	}

	status := event.Status
	if event.Data != nil && event.Data.Status != "" {
		status = event.Data.Status
	}
	status = strings.ToLower(status)

	switch status {
	case "successful", "success", "completed":
		return OutcomeConfirmed, ""
	case "failed", "cancelled", "canceled", "error":
		return OutcomeRejected, fmt.Sprintf("provider reported status %q", status)
	default:
		return OutcomeUnknown, ""
	}
}

// VerifyTransaction polls the provider for the authoritative transaction
// state, used by the redirect callback path which carries no signature.
func (c *FlutterwaveClient) VerifyTransaction(ctx context.Context, transactionID string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/transactions/%s/verify", c.baseURL, transactionID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrProviderUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	return respBody, nil
}
