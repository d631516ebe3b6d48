package payment

import (
	"encoding/json"
	"time"
)

// Gateway identifiers.
const (
	GatewayFlutterwave = "flutterwave"
	GatewayPayPal      = "paypal"
)

// Shared payment statuses. GatewayState carries provider-private sub-states
// (PayPal's capture flow); it never leaks into Status.
const (
	StatusInitialized = "initialized"
	StatusConfirmed   = "confirmed"
	StatusRejected    = "rejected"
)

type Payment struct {
	ID              int64           `gorm:"primaryKey"`
	ReservationID   int64           `gorm:"column:reservation_id;not null;index"`
	Gateway         string          `gorm:"column:gateway;not null;uniqueIndex:idx_gateway_reference"`
	ExternalRef     string          `gorm:"column:external_reference;not null;uniqueIndex:idx_gateway_reference"`
	Amount          int64           `gorm:"column:amount;not null"`
	Currency        string          `gorm:"column:currency;not null"`
	Status          string          `gorm:"column:status;not null;default:initialized"`
	GatewayState    *string         `gorm:"column:gateway_state"`
	ProviderPayload json.RawMessage `gorm:"column:provider_payload;type:jsonb"`
	FailureReason   *string         `gorm:"column:failure_reason"`
	ProcessedAt     *time.Time      `gorm:"column:processed_at"`
	CreatedAt       time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;default:now()"`
}

// IsTerminal reports whether the payment reached confirmed or rejected.
func (p *Payment) IsTerminal() bool {
	return p.Status == StatusConfirmed || p.Status == StatusRejected
}
