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
	"strings"
	"sync"
	"time"

	"github.com/kalungi/estate-management/internal"
)

// PayPalClient drives the card/account gateway. It is a two-phase flow:
// create order, then capture on the client's follow-up request. The
// capture-pending sub-state stays inside the payment's gateway_state column.
type PayPalClient struct {
	baseURL   string
	clientID  string
	secretKey string
	currency  string
	client    *http.Client
	logger    *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewPayPalClient(cfg internal.PayPalConfig, timeout time.Duration, logger *slog.Logger) *PayPalClient {
	return &PayPalClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		clientID:  cfg.ClientID,
		secretKey: cfg.SecretKey,
		currency:  cfg.Currency,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

func (c *PayPalClient) Name() string {
	return "paypal"
}

func (c *PayPalClient) Currency() string {
	return c.currency
}

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *PayPalClient) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(c.clientID, c.secretKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var tokenResp paypalTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("%w: decoding token response: %v", ErrProviderUnavailable, err)
	}

	c.accessToken = tokenResp.AccessToken
	// renew a minute early
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)

	return c.accessToken, nil
}

type paypalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func (c *PayPalClient) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": map[string]string{
					"currency_code": req.Currency,
					"value":         formatAmount(req.Amount, req.Currency),
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/checkout/orders", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	c.logger.Info("creating paypal order",
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

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("paypal create order returned error",
			"status", resp.StatusCode,
			"response", string(respBody))
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var order paypalOrderResponse
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrProviderUnavailable, err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: order response missing id", ErrProviderUnavailable)
	}

	result := &InitializeResult{Reference: order.ID}
	for _, link := range order.Links {
		if link.Rel == "approve" {
			result.PaymentLink = link.Href
			break
		}
	}

	return result, nil
}

// CaptureOrder finishes a two-phase payment after buyer approval. The raw
// capture payload is returned for interpretation and audit storage.
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) ([]byte, error) {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.baseURL, orderID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrProviderUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("paypal capture returned error",
			"status", resp.StatusCode,
			"order_id", orderID,
			"response", string(respBody))
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	return respBody, nil
}

// VerifyWebhook always fails: PayPal outcomes arrive through the
// authenticated capture call, not through a signed webhook.
func (c *PayPalClient) VerifyWebhook(payload []byte, signature string) error {
	return fmt.Errorf("%w: paypal does not use signed webhooks, use the capture flow", ErrBadSignature)
}

type paypalCapturePayload struct {
	Status string `json:"status"`
}

func (c *PayPalClient) ParseOutcome(payload []byte) (Outcome, string) {
	var capture paypalCapturePayload
	if err := json.Unmarshal(payload, &capture); err != nil {
		return OutcomeUnknown, ""
	}

	switch strings.ToUpper(capture.Status) {
	case "COMPLETED":
		return OutcomeConfirmed, ""
	case "DECLINED", "VOIDED", "FAILED":
		return OutcomeRejected, fmt.Sprintf("provider reported status %q", capture.Status)
	default:
		return OutcomeUnknown, ""
	}
}

// formatAmount renders minor units as the provider's decimal string. UGX has
// no minor unit.
func formatAmount(amount int64, currency string) string {
	if currency == "UGX" {
		return fmt.Sprintf("%d", amount)
	}
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}
