package payment

import (
	"time"

	errors "github.com/kalungi/estate-management/internal"
	"github.com/kalungi/estate-management/internal/core/common/validation"
	paymentmodel "github.com/kalungi/estate-management/internal/core/datamodel/payment"
)

type InitializePaymentRequest struct {
	ReservationID int64  `json:"reservation_id"`
	Gateway       string `json:"gateway"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

func (r *InitializePaymentRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("reservation_id", r.ReservationID).Required()
	validator.Field("gateway", r.Gateway).Required().
		OneOf([]string{paymentmodel.GatewayFlutterwave, paymentmodel.GatewayPayPal}, errors.ErrCodeInvalidGateway)
	validator.Field("currency", r.Currency).Required().MaxLength(5)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type InitializePaymentResponse struct {
	PaymentID         int64  `json:"payment_id"`
	ReservationID     int64  `json:"reservation_id"`
	Gateway           string `json:"gateway"`
	ExternalReference string `json:"external_reference"`
	PaymentLink       string `json:"payment_link,omitempty"`
	Status            string `json:"status"`
}

type PaymentView struct {
	ID                int64      `json:"id"`
	ReservationID     int64      `json:"reservation_id"`
	Gateway           string     `json:"gateway"`
	ExternalReference string     `json:"external_reference"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	FailureReason     *string    `json:"failure_reason,omitempty"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func ToView(p *paymentmodel.Payment) *PaymentView {
	if p == nil {
		return nil
	}
	return &PaymentView{
		ID:                p.ID,
		ReservationID:     p.ReservationID,
		Gateway:           p.Gateway,
		ExternalReference: p.ExternalRef,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            p.Status,
		FailureReason:     p.FailureReason,
		ProcessedAt:       p.ProcessedAt,
		CreatedAt:         p.CreatedAt,
	}
}
