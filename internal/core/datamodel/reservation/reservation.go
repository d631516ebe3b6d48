package reservation

import "time"

// Reservation statuses. Transitions only leave StatusPending; the other
// three are terminal.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Reservation types, per listing usage.
const (
	TypeRental     = "rental"
	TypePurchase   = "purchase"
	TypeShortStay  = "short_stay"
	TypeViewingFee = "viewing_fee"
)

type Reservation struct {
	ID              int64     `gorm:"primaryKey"`
	ListingID       int64     `gorm:"column:listing_id;not null;index"`
	UserID          int64     `gorm:"column:user_id;not null;index"`
	ReservationType string    `gorm:"column:reservation_type;not null;default:viewing_fee"`
	Amount          int64     `gorm:"column:amount;not null"`
	Currency        string    `gorm:"column:currency;not null"`
	Status          string    `gorm:"column:status;not null;default:pending;index"`
	CreatedAt       time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt       time.Time `gorm:"column:updated_at;default:now()"`
}

// IsTerminal reports whether no further status transition is allowed.
func (r *Reservation) IsTerminal() bool {
	return r.Status != StatusPending
}
