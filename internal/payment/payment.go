package payment

import (
	"context"
	"encoding/json"

	notificationmodel "github.com/kalungi/estate-management/internal/core/datamodel/notification"
	paymentmodel "github.com/kalungi/estate-management/internal/core/datamodel/payment"
	reservationmodel "github.com/kalungi/estate-management/internal/core/datamodel/reservation"
)

// Gateway-private sub-states stored in payments.gateway_state. Only the
// PayPal flow uses them; the shared status vocabulary never sees them.
const (
	GatewayStateOrderCreated   = "order_created"
	GatewayStateCapturePending = "capture_pending"
)

// RepositoryAPI covers payment reads and creation.
type RepositoryAPI interface {
	Create(p *paymentmodel.Payment) error
	GetByID(id int64) (*paymentmodel.Payment, error)
	GetByGatewayReference(gateway, externalRef string) (*paymentmodel.Payment, error)
	GetActiveByReservationID(reservationID int64) (*paymentmodel.Payment, error)
	GetLatestByReservationID(reservationID int64) (*paymentmodel.Payment, error)
	SetGatewayState(id int64, state string) error
}

// Transition is the atomic multi-row mutation for one reconciliation:
// payment status, reservation cascade and the owner's notification move
// together or not at all.
type Transition struct {
	PaymentID         int64
	PaymentStatus     string
	ReservationID     int64
	ReservationStatus string
	ProviderPayload   json.RawMessage
	FailureReason     *string
	Notification      *notificationmodel.Notification
}

// TransitionStore applies a Transition under single-writer semantics for the
// payment row. applied=false means the payment had already left the
// initialized state, so the caller lost a race or received a duplicate
// delivery and must report the stored result instead.
type TransitionStore interface {
	ApplyTransition(ctx context.Context, t Transition) (applied bool, err error)
}

// ReservationReader gives the payment core read access to reservations.
type ReservationReader interface {
	GetByID(id int64) (*reservationmodel.Reservation, error)
}

// UserReader supplies the customer email handed to the gateways.
type UserReader interface {
	GetEmailByID(userID int64) (string, error)
}

// ReconcileResult reports the payment's final status and whether this call
// caused the transition, so callers can tell fresh webhooks from replays.
type ReconcileResult struct {
	PaymentID     int64  `json:"payment_id"`
	ReservationID int64  `json:"reservation_id"`
	Status        string `json:"status"`
	Transitioned  bool   `json:"transitioned"`
}

type ServiceAPI interface {
	Initialize(ctx context.Context, userID int64, req *InitializePaymentRequest) (*InitializePaymentResponse, error)
	Reconcile(ctx context.Context, gatewayName, externalRef string, payload []byte, signature string) (*ReconcileResult, error)
	ConfirmFlutterwaveCallback(ctx context.Context, txRef, transactionID string) (*ReconcileResult, error)
	CapturePayPalOrder(ctx context.Context, userID int64, orderID string) (*ReconcileResult, error)
	GetLatestForReservation(userID, reservationID int64) (*paymentmodel.Payment, error)
}
