package reservation

import (
	"context"
	"log/slog"

	errors "github.com/kalungi/estate-management/internal"
	reservationmodel "github.com/kalungi/estate-management/internal/core/datamodel/reservation"
	"github.com/kalungi/estate-management/internal/core/events"
)

// Service owns the reservation lifecycle up to the point payments take over:
// creation with the fee snapshot, reads, and cancellation while pending.
type Service struct {
	repo     RepositoryAPI
	listings ListingReader
	fees     *FeePolicy
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, listings ListingReader, fees *FeePolicy, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		listings: listings,
		fees:     fees,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Create opens a pending reservation. The fee is resolved from the policy
// table at creation time and frozen on the row, so later policy changes
// never move an open reservation's amount.
func (s *Service) Create(ctx context.Context, userID int64, req *CreateReservationRequest) (*ReservationView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	listing, err := s.listings.GetByID(req.ListingID)
	if err != nil {
		return nil, errors.ErrListingNotFound
	}
	if !listing.IsActive {
		return nil, errors.ErrListingNotFound
	}

	reservationType := req.ReservationType
	if reservationType == "" {
		reservationType = reservationmodel.TypeViewingFee
	}

	amount, currency := s.fees.FeeFor(listing.ListingType)

	r := &reservationmodel.Reservation{
		ListingID:       listing.ID,
		UserID:          userID,
		ReservationType: reservationType,
		Amount:          amount,
		Currency:        currency,
		Status:          reservationmodel.StatusPending,
	}

	if err := s.repo.Create(r); err != nil {
		return nil, errors.NewInternalError("failed to create reservation", err)
	}

	s.logger.Info("reservation created",
		"reservation_id", r.ID,
		"listing_id", listing.ID,
		"user_id", userID,
		"amount", amount,
		"currency", currency)

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.NewReservationCreatedEvent(r.ID, listing.ID, userID, amount, currency))
	}

	return ToView(r), nil
}

// Get returns a reservation to its owner.
func (s *Service) Get(userID, id int64) (*ReservationView, error) {
	r, err := s.repo.GetByID(id)
	if err != nil {
		return nil, errors.ErrReservationNotFound
	}
	if r.UserID != userID {
		return nil, errors.ErrUnauthorizedAccess
	}
	return ToView(r), nil
}

func (s *Service) ListMine(userID int64) ([]ReservationView, error) {
	rows, err := s.repo.ListByUserID(userID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list reservations", err)
	}

	views := make([]ReservationView, 0, len(rows))
	for i := range rows {
		views = append(views, *ToView(&rows[i]))
	}
	return views, nil
}

// Cancel moves a pending reservation to cancelled. The transition is
// conditional on the row still being pending, so a payment settling
// concurrently wins and the cancel is rejected.
func (s *Service) Cancel(ctx context.Context, userID, id int64) (*ReservationView, error) {
	r, err := s.repo.GetByID(id)
	if err != nil {
		return nil, errors.ErrReservationNotFound
	}
	if r.UserID != userID {
		return nil, errors.ErrUnauthorizedAccess
	}
	if r.IsTerminal() {
		return nil, errors.ErrReservationNotPending
	}

	applied, err := s.repo.CancelIfPending(id)
	if err != nil {
		return nil, errors.NewInternalError("failed to cancel reservation", err)
	}
	if !applied {
		return nil, errors.ErrReservationNotPending
	}

	s.logger.Info("reservation cancelled", "reservation_id", id, "user_id", userID)

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.NewReservationCancelledEvent(id, userID))
	}

	r, err = s.repo.GetByID(id)
	if err != nil {
		return nil, errors.NewInternalError("failed to reload reservation", err)
	}
	return ToView(r), nil
}
