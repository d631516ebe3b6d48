package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	errors "github.com/kalungi/estate-management/internal"
	"github.com/kalungi/estate-management/internal/core/common/validation"
	notificationmodel "github.com/kalungi/estate-management/internal/core/datamodel/notification"
	paymentmodel "github.com/kalungi/estate-management/internal/core/datamodel/payment"
	reservationmodel "github.com/kalungi/estate-management/internal/core/datamodel/reservation"
	"github.com/kalungi/estate-management/internal/core/events"
	"github.com/kalungi/estate-management/internal/gateway"
)

// Service owns the payment lifecycle: initialization against a gateway and
// reconciliation of gateway-reported outcomes into local state.
type Service struct {
	repo         RepositoryAPI
	store        TransitionStore
	reservations ReservationReader
	users        UserReader
	gateways     *gateway.Registry
	eventBus     *events.EventBus
	logger       *slog.Logger
	initTimeout  time.Duration
}

func NewService(
	repo RepositoryAPI,
	store TransitionStore,
	reservations ReservationReader,
	users UserReader,
	gateways *gateway.Registry,
	eventBus *events.EventBus,
	initTimeout time.Duration,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		store:        store,
		reservations: reservations,
		users:        users,
		gateways:     gateways,
		eventBus:     eventBus,
		logger:       logger,
		initTimeout:  initTimeout,
	}
}

// Initialize creates a payment session with the chosen gateway and records
// the Payment row. The row is only written after the provider accepted the
// session, so a failed init leaves no state behind.
func (s *Service) Initialize(ctx context.Context, userID int64, req *InitializePaymentRequest) (*InitializePaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if appErr := validation.ValidatePaymentAmount(req.Amount); appErr != nil {
		s.logger.Warn("payment initialization rejected", "reason", "invalid amount", "amount", req.Amount)
		return nil, errors.ErrInvalidAmount
	}

	res, err := s.reservations.GetByID(req.ReservationID)
	if err != nil {
		return nil, errors.ErrReservationNotFound
	}
	if res.UserID != userID {
		return nil, errors.ErrUnauthorizedAccess
	}
	if res.IsTerminal() {
		return nil, errors.ErrReservationNotPending
	}
	if req.Amount != res.Amount {
		s.logger.Warn("payment initialization rejected",
			"reason", "amount mismatch",
			"reservation_id", res.ID,
			"requested", req.Amount,
			"expected", res.Amount)
		return nil, errors.ErrInvalidAmount
	}

	gw, ok := s.gateways.Lookup(req.Gateway)
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown gateway %q", req.Gateway), errors.ErrCodeInvalidGateway)
	}
	if req.Currency != gw.Currency() || res.Currency != gw.Currency() {
		return nil, errors.NewValidationError(
			fmt.Sprintf("gateway %s settles in %s", gw.Name(), gw.Currency()),
			errors.ErrCodeInvalidCurrency)
	}

	if active, err := s.repo.GetActiveByReservationID(res.ID); err != nil {
		return nil, errors.NewInternalError("failed to check active payments", err)
	} else if active != nil {
		return nil, errors.ErrDuplicateInitialization
	}

	email, err := s.users.GetEmailByID(userID)
	if err != nil {
		s.logger.Warn("could not resolve customer email", "user_id", userID, "error", err)
	}

	initReq := gateway.InitializeRequest{
		Amount:        req.Amount,
		Currency:      req.Currency,
		CustomerEmail: email,
	}
	if gw.Name() == paymentmodel.GatewayFlutterwave {
		initReq.Reference = fmt.Sprintf("FLW-%d-%s", res.ID, uuid.New().String()[:8])
	}

	initCtx, cancel := errors.WithTimeout(ctx, s.initTimeout)
	defer cancel()

	result, err := gw.Initialize(initCtx, initReq)
	if err != nil {
		s.logger.Error("gateway initialization failed",
			"gateway", gw.Name(),
			"reservation_id", res.ID,
			"error", err)
		return nil, errors.NewGatewayUnavailableError(gw.Name(), err)
	}

	p := &paymentmodel.Payment{
		ReservationID: res.ID,
		Gateway:       gw.Name(),
		ExternalRef:   result.Reference,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Status:        paymentmodel.StatusInitialized,
	}
	if gw.Name() == paymentmodel.GatewayPayPal {
		state := GatewayStateOrderCreated
		p.GatewayState = &state
	}

	if err := s.repo.Create(p); err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			return nil, appErr
		}
		return nil, errors.NewInternalError("failed to create payment record", err)
	}

	s.logger.Info("payment initialized",
		"payment_id", p.ID,
		"reservation_id", res.ID,
		"gateway", gw.Name(),
		"external_reference", result.Reference,
		"amount", req.Amount)

	return &InitializePaymentResponse{
		PaymentID:         p.ID,
		ReservationID:     res.ID,
		Gateway:           gw.Name(),
		ExternalReference: result.Reference,
		PaymentLink:       result.PaymentLink,
		Status:            p.Status,
	}, nil
}

// Reconcile applies a gateway-reported outcome to local state exactly once.
// Signature failures and unknown references are rejected without touching
// anything; terminal payments replay their stored result.
func (s *Service) Reconcile(ctx context.Context, gatewayName, externalRef string, payload []byte, signature string) (*ReconcileResult, error) {
	gw, ok := s.gateways.Lookup(gatewayName)
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown gateway %q", gatewayName), errors.ErrCodeInvalidGateway)
	}

	if err := gw.VerifyWebhook(payload, signature); err != nil {
		s.logger.Warn("webhook rejected",
			"gateway", gatewayName,
			"external_reference", externalRef,
			"error", err)
		return nil, errors.ErrSignatureInvalid
	}

	p, err := s.repo.GetByGatewayReference(gatewayName, externalRef)
	if err != nil {
		s.logger.Warn("webhook for unknown payment",
			"gateway", gatewayName,
			"external_reference", externalRef)
		return nil, errors.ErrPaymentNotFound
	}

	if p.IsTerminal() {
		return s.replayResult(p), nil
	}

	outcome, failureReason := gw.ParseOutcome(payload)
	return s.applyOutcome(ctx, p, outcome, payload, failureReason)
}

// ConfirmFlutterwaveCallback handles the synchronous redirect leg. The
// redirect carries no signature, so the transaction is verified against the
// provider before the outcome is applied. Races with the webhook resolve via
// the same single-writer transition.
func (s *Service) ConfirmFlutterwaveCallback(ctx context.Context, txRef, transactionID string) (*ReconcileResult, error) {
	p, err := s.repo.GetByGatewayReference(paymentmodel.GatewayFlutterwave, txRef)
	if err != nil {
		return nil, errors.ErrPaymentNotFound
	}

	if p.IsTerminal() {
		return s.replayResult(p), nil
	}

	gw, _ := s.gateways.Lookup(paymentmodel.GatewayFlutterwave)
	verifier, ok := gw.(gateway.TransactionVerifier)
	if !ok {
		return nil, errors.NewInternalError("flutterwave gateway cannot verify transactions", nil)
	}

	verifyCtx, cancel := errors.WithTimeout(ctx, s.initTimeout)
	defer cancel()

	payload, err := verifier.VerifyTransaction(verifyCtx, transactionID)
	if err != nil {
		return nil, errors.NewGatewayUnavailableError(paymentmodel.GatewayFlutterwave, err)
	}

	outcome, failureReason := gw.ParseOutcome(payload)
	return s.applyOutcome(ctx, p, outcome, payload, failureReason)
}

// CapturePayPalOrder finishes the two-phase card flow on the client's
// follow-up request and funnels the capture result into the shared state
// machine.
func (s *Service) CapturePayPalOrder(ctx context.Context, userID int64, orderID string) (*ReconcileResult, error) {
	p, err := s.repo.GetByGatewayReference(paymentmodel.GatewayPayPal, orderID)
	if err != nil {
		return nil, errors.ErrPaymentNotFound
	}

	res, err := s.reservations.GetByID(p.ReservationID)
	if err != nil {
		return nil, errors.ErrReservationNotFound
	}
	if res.UserID != userID {
		return nil, errors.ErrUnauthorizedAccess
	}

	if p.IsTerminal() {
		return s.replayResult(p), nil
	}

	if err := s.repo.SetGatewayState(p.ID, GatewayStateCapturePending); err != nil {
		return nil, errors.NewInternalError("failed to mark capture pending", err)
	}

	gw, _ := s.gateways.Lookup(paymentmodel.GatewayPayPal)
	capturer, ok := gw.(gateway.OrderCapturer)
	if !ok {
		return nil, errors.NewInternalError("paypal gateway cannot capture orders", nil)
	}

	captureCtx, cancel := errors.WithTimeout(ctx, s.initTimeout)
	defer cancel()

	payload, err := capturer.CaptureOrder(captureCtx, orderID)
	if err != nil {
		return nil, errors.NewGatewayUnavailableError(paymentmodel.GatewayPayPal, err)
	}

	outcome, failureReason := gw.ParseOutcome(payload)
	return s.applyOutcome(ctx, p, outcome, payload, failureReason)
}

func (s *Service) GetLatestForReservation(userID, reservationID int64) (*paymentmodel.Payment, error) {
	res, err := s.reservations.GetByID(reservationID)
	if err != nil {
		return nil, errors.ErrReservationNotFound
	}
	if res.UserID != userID {
		return nil, errors.ErrUnauthorizedAccess
	}

	p, err := s.repo.GetLatestByReservationID(reservationID)
	if err != nil {
		return nil, errors.ErrPaymentNotFound
	}
	return p, nil
}

// applyOutcome performs the single effective transition for a payment. An
// unknown outcome leaves the payment initialized so a later, clearer
// delivery can settle it.
func (s *Service) applyOutcome(ctx context.Context, p *paymentmodel.Payment, outcome gateway.Outcome, payload []byte, failureReason string) (*ReconcileResult, error) {
	if outcome == gateway.OutcomeUnknown {
		s.logger.Info("provider status not conclusive, payment left initialized",
			"payment_id", p.ID,
			"gateway", p.Gateway,
			"external_reference", p.ExternalRef)
		return &ReconcileResult{
			PaymentID:     p.ID,
			ReservationID: p.ReservationID,
			Status:        p.Status,
			Transitioned:  false,
		}, nil
	}

	res, err := s.reservations.GetByID(p.ReservationID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load reservation for payment", err)
	}

	var paymentStatus, reservationStatus string
	var reasonPtr *string
	if outcome == gateway.OutcomeConfirmed {
		paymentStatus = paymentmodel.StatusConfirmed
		reservationStatus = reservationmodel.StatusPaid
	} else {
		paymentStatus = paymentmodel.StatusRejected
		reservationStatus = reservationmodel.StatusFailed
		if failureReason != "" {
			reasonPtr = &failureReason
		}
	}

	t := Transition{
		PaymentID:         p.ID,
		PaymentStatus:     paymentStatus,
		ReservationID:     res.ID,
		ReservationStatus: reservationStatus,
		ProviderPayload:   payload,
		FailureReason:     reasonPtr,
		Notification:      buildNotification(res, p, paymentStatus),
	}

	applied, err := s.store.ApplyTransition(ctx, t)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			s.logger.Error("transition failed",
				"payment_id", p.ID,
				"code", appErr.Code,
				"error", appErr)
			return nil, appErr
		}
		return nil, errors.NewInternalError("failed to apply payment transition", err)
	}

	if !applied {
		// lost the race or duplicate delivery: report the stored result
		current, err := s.repo.GetByID(p.ID)
		if err != nil {
			return nil, errors.NewInternalError("failed to reload payment", err)
		}
		return s.replayResult(current), nil
	}

	s.logger.Info("payment reconciled",
		"payment_id", p.ID,
		"reservation_id", res.ID,
		"gateway", p.Gateway,
		"external_reference", p.ExternalRef,
		"status", paymentStatus)

	s.publishTransitionEvent(ctx, p, res, paymentStatus, failureReason)

	return &ReconcileResult{
		PaymentID:     p.ID,
		ReservationID: res.ID,
		Status:        paymentStatus,
		Transitioned:  true,
	}, nil
}

func (s *Service) replayResult(p *paymentmodel.Payment) *ReconcileResult {
	s.logger.Info("duplicate delivery, replaying stored result",
		"payment_id", p.ID,
		"gateway", p.Gateway,
		"external_reference", p.ExternalRef,
		"status", p.Status)
	return &ReconcileResult{
		PaymentID:     p.ID,
		ReservationID: p.ReservationID,
		Status:        p.Status,
		Transitioned:  false,
	}
}

func (s *Service) publishTransitionEvent(ctx context.Context, p *paymentmodel.Payment, res *reservationmodel.Reservation, status, failureReason string) {
	if s.eventBus == nil {
		return
	}
	if status == paymentmodel.StatusConfirmed {
		event := events.NewPaymentConfirmedEvent(p.ID, res.ID, res.UserID, p.Gateway, p.ExternalRef, p.Amount, p.Currency)
		s.eventBus.Publish(ctx, event)
	} else {
		event := events.NewPaymentRejectedEvent(p.ID, res.ID, res.UserID, p.Gateway, p.ExternalRef, failureReason)
		s.eventBus.Publish(ctx, event)
	}
}

func buildNotification(res *reservationmodel.Reservation, p *paymentmodel.Payment, paymentStatus string) *notificationmodel.Notification {
	verb := "reservation payment confirmed"
	if paymentStatus == paymentmodel.StatusRejected {
		verb = "reservation payment failed"
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"reservation_id": res.ID,
		"payment_id":     p.ID,
		"listing_id":     res.ListingID,
		"gateway":        p.Gateway,
		"amount":         p.Amount,
		"currency":       p.Currency,
		"status":         paymentStatus,
	})

	return &notificationmodel.Notification{
		UserID:  res.UserID,
		Verb:    verb,
		Payload: payload,
		Channel: notificationmodel.ChannelInApp,
	}
}
