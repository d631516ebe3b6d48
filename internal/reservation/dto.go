package reservation

import (
	"time"

	errors "github.com/kalungi/estate-management/internal"
	"github.com/kalungi/estate-management/internal/core/common/validation"
	reservationmodel "github.com/kalungi/estate-management/internal/core/datamodel/reservation"
)

type CreateReservationRequest struct {
	ListingID       int64  `json:"listing_id"`
	ReservationType string `json:"reservation_type,omitempty"`
}

func (r *CreateReservationRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("listing_id", r.ListingID).Required()
	if r.ReservationType != "" {
		validator.Field("reservation_type", r.ReservationType).
			OneOf([]string{
				reservationmodel.TypeRental,
				reservationmodel.TypePurchase,
				reservationmodel.TypeShortStay,
				reservationmodel.TypeViewingFee,
			}, errors.ErrCodeValidationFailed)
	}

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type ReservationView struct {
	ID              int64     `json:"id"`
	ListingID       int64     `json:"listing_id"`
	UserID          int64     `json:"user_id"`
	ReservationType string    `json:"reservation_type"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func ToView(r *reservationmodel.Reservation) *ReservationView {
	if r == nil {
		return nil
	}
	return &ReservationView{
		ID:              r.ID,
		ListingID:       r.ListingID,
		UserID:          r.UserID,
		ReservationType: r.ReservationType,
		Amount:          r.Amount,
		Currency:        r.Currency,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
