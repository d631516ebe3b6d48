package reservation

import (
	"context"

	listingmodel "github.com/kalungi/estate-management/internal/core/datamodel/listing"
	reservationmodel "github.com/kalungi/estate-management/internal/core/datamodel/reservation"
)

// RepositoryAPI covers reservation persistence. CancelIfPending is the
// conditional transition out of pending; applied=false means the reservation
// had already settled.
type RepositoryAPI interface {
	Create(r *reservationmodel.Reservation) error
	GetByID(id int64) (*reservationmodel.Reservation, error)
	ListByUserID(userID int64) ([]reservationmodel.Reservation, error)
	CancelIfPending(id int64) (applied bool, err error)
}

// ListingReader gives the reservation flow read access to the catalogue.
type ListingReader interface {
	GetByID(id int64) (*listingmodel.Listing, error)
}

type ServiceAPI interface {
	Create(ctx context.Context, userID int64, req *CreateReservationRequest) (*ReservationView, error)
	Get(userID, id int64) (*ReservationView, error)
	ListMine(userID int64) ([]ReservationView, error)
	Cancel(ctx context.Context, userID, id int64) (*ReservationView, error)
}
