package payment

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	errors "github.com/kalungi/estate-management/internal"
	paymentmodel "github.com/kalungi/estate-management/internal/core/datamodel/payment"
	"github.com/kalungi/estate-management/internal/transport"
)

const flutterwaveSignatureHeader = "verif-hash"

// maxWebhookBody caps provider payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// WebhookHandler terminates the unauthenticated provider-facing endpoints.
// Authenticity comes from signature verification inside the service, never
// from session auth.
type WebhookHandler struct {
	*transport.BaseHandler
	service ServiceAPI
	logger  *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, service ServiceAPI, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		service:     service,
		logger:      logger,
	}
}

// FlutterwaveWebhook handles POST /webhooks/flutterwave
func (h *WebhookHandler) FlutterwaveWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.HandleError(w, errors.NewValidationError("failed to read webhook body", errors.ErrCodeValidationFailed))
		return
	}

	txRef := extractTxRef(payload)
	if txRef == "" {
		h.logger.Warn("flutterwave webhook without tx_ref")
		h.HandleError(w, errors.NewValidationError("missing tx_ref", errors.ErrCodeValidationFailed))
		return
	}

	signature := r.Header.Get(flutterwaveSignatureHeader)

	result, err := h.service.Reconcile(r.Context(), paymentmodel.GatewayFlutterwave, txRef, payload, signature)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// FlutterwaveCallback handles GET /payments/flutterwave/callback, the
// browser redirect after the hosted payment page. The query string is
// untrusted, so the outcome is re-verified against the provider.
func (h *WebhookHandler) FlutterwaveCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txRef := q.Get("tx_ref")
	transactionID := q.Get("transaction_id")

	if txRef == "" || transactionID == "" {
		h.HandleError(w, errors.NewValidationError("tx_ref and transaction_id are required", errors.ErrCodeValidationFailed))
		return
	}

	result, err := h.service.ConfirmFlutterwaveCallback(r.Context(), txRef, transactionID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// extractTxRef pulls the merchant reference from a webhook payload. Event
// payloads nest the transaction under "data"; verification responses may
// carry it at the top level.
func extractTxRef(payload []byte) string {
	var envelope struct {
		TxRef string `json:"tx_ref"`
		Data  struct {
			TxRef string `json:"tx_ref"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return ""
	}
	if envelope.Data.TxRef != "" {
		return envelope.Data.TxRef
	}
	return envelope.TxRef
}
