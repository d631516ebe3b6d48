package payment_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/kalungi/estate-management/internal"
	paymentmodel "github.com/kalungi/estate-management/internal/core/datamodel/payment"
	"github.com/kalungi/estate-management/internal/payment"
	"github.com/kalungi/estate-management/internal/transport"
)

type stubPaymentService struct {
	reconcileResult *payment.ReconcileResult
	reconcileErr    error

	gotGateway   string
	gotRef       string
	gotPayload   []byte
	gotSignature string

	callbackTxRef         string
	callbackTransactionID string
}

func (s *stubPaymentService) Initialize(ctx context.Context, userID int64, req *payment.InitializePaymentRequest) (*payment.InitializePaymentResponse, error) {
	return nil, apperrors.ErrPaymentNotFound
}

func (s *stubPaymentService) Reconcile(ctx context.Context, gatewayName, externalRef string, payload []byte, signature string) (*payment.ReconcileResult, error) {
	s.gotGateway = gatewayName
	s.gotRef = externalRef
	s.gotPayload = payload
	s.gotSignature = signature
	return s.reconcileResult, s.reconcileErr
}

func (s *stubPaymentService) ConfirmFlutterwaveCallback(ctx context.Context, txRef, transactionID string) (*payment.ReconcileResult, error) {
	s.callbackTxRef = txRef
	s.callbackTransactionID = transactionID
	return s.reconcileResult, s.reconcileErr
}

func (s *stubPaymentService) CapturePayPalOrder(ctx context.Context, userID int64, orderID string) (*payment.ReconcileResult, error) {
	return s.reconcileResult, s.reconcileErr
}

func (s *stubPaymentService) GetLatestForReservation(userID, reservationID int64) (*paymentmodel.Payment, error) {
	return nil, apperrors.ErrPaymentNotFound
}

var _ = Describe("WebhookHandler", func() {
	var (
		service *stubPaymentService
		handler *payment.WebhookHandler
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = &stubPaymentService{
			reconcileResult: &payment.ReconcileResult{
				PaymentID:     1,
				ReservationID: 2,
				Status:        paymentmodel.StatusConfirmed,
				Transitioned:  true,
			},
		}
		handler = payment.NewWebhookHandler(transport.NewBaseHandler(logger), service, logger)
	})

	Describe("FlutterwaveWebhook", func() {
		It("should pass the raw body and signature header through to reconciliation", func() {
			body := `{"event":"charge.completed","data":{"status":"successful","tx_ref":"FLW-2-abcd1234"}}`
			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/flutterwave", strings.NewReader(body))
			req.Header.Set("verif-hash", "shared-hash")
			rec := httptest.NewRecorder()

			handler.FlutterwaveWebhook(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(service.gotGateway).To(Equal(paymentmodel.GatewayFlutterwave))
			Expect(service.gotRef).To(Equal("FLW-2-abcd1234"))
			Expect(service.gotSignature).To(Equal("shared-hash"))
			Expect(string(service.gotPayload)).To(Equal(body))
		})

		It("should read a top-level tx_ref", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/flutterwave", strings.NewReader(`{"tx_ref":"FLW-2-abcd1234","status":"successful"}`))
			rec := httptest.NewRecorder()

			handler.FlutterwaveWebhook(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(service.gotRef).To(Equal("FLW-2-abcd1234"))
		})

		It("should reject a payload without a tx_ref", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/flutterwave", strings.NewReader(`{"event":"charge.completed"}`))
			rec := httptest.NewRecorder()

			handler.FlutterwaveWebhook(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(service.gotRef).To(BeEmpty())
		})

		It("should map a bad signature to unauthorized", func() {
			service.reconcileResult = nil
			service.reconcileErr = apperrors.ErrSignatureInvalid

			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/flutterwave", strings.NewReader(`{"tx_ref":"FLW-2-abcd1234"}`))
			req.Header.Set("verif-hash", "evil-hash")
			rec := httptest.NewRecorder()

			handler.FlutterwaveWebhook(rec, req)

			Expect(rec.Code).To(Equal(apperrors.ErrSignatureInvalid.StatusCode))
		})
	})

	Describe("FlutterwaveCallback", func() {
		It("should verify the redirect against the provider", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/flutterwave/callback?tx_ref=FLW-2-abcd1234&transaction_id=12345", nil)
			rec := httptest.NewRecorder()

			handler.FlutterwaveCallback(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(service.callbackTxRef).To(Equal("FLW-2-abcd1234"))
			Expect(service.callbackTransactionID).To(Equal("12345"))
		})

		It("should reject a redirect missing the transaction id", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/flutterwave/callback?tx_ref=FLW-2-abcd1234", nil)
			rec := httptest.NewRecorder()

			handler.FlutterwaveCallback(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(service.callbackTxRef).To(BeEmpty())
		})
	})
})
