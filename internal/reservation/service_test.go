package reservation_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kalungi/estate-management/internal"
	listingmodel "github.com/kalungi/estate-management/internal/core/datamodel/listing"
	reservationmodel "github.com/kalungi/estate-management/internal/core/datamodel/reservation"
	"github.com/kalungi/estate-management/internal/reservation"
)

func TestReservation(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Reservation Suite")
}

type mockReservationRepository struct {
	mu           sync.Mutex
	reservations map[int64]*reservationmodel.Reservation
	nextID       int64
	createErr    error
}

func newMockReservationRepository() *mockReservationRepository {
	return &mockReservationRepository{
		reservations: make(map[int64]*reservationmodel.Reservation),
		nextID:       1,
	}
}

func (m *mockReservationRepository) Create(r *reservationmodel.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	r.ID = m.nextID
	m.nextID++
	stored := *r
	m.reservations[r.ID] = &stored
	return nil
}

func (m *mockReservationRepository) GetByID(id int64) (*reservationmodel.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, fmt.Errorf("reservation %d not found", id)
	}
	copied := *r
	return &copied, nil
}

func (m *mockReservationRepository) ListByUserID(userID int64) ([]reservationmodel.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []reservationmodel.Reservation
	for _, r := range m.reservations {
		if r.UserID == userID {
			rows = append(rows, *r)
		}
	}
	return rows, nil
}

func (m *mockReservationRepository) CancelIfPending(id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.Status != reservationmodel.StatusPending {
		return false, nil
	}
	r.Status = reservationmodel.StatusCancelled
	return true, nil
}

type mockListingReader struct {
	listings map[int64]*listingmodel.Listing
}

func (m *mockListingReader) GetByID(id int64) (*listingmodel.Listing, error) {
	l, ok := m.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %d not found", id)
	}
	return l, nil
}

var _ = Describe("Reservation Service", func() {
	var (
		repo     *mockReservationRepository
		listings *mockListingReader
		service  *reservation.Service
		ctx      context.Context
	)

	const (
		ownerID    int64 = 10
		strangerID int64 = 99
	)

	newFeePolicy := func() *reservation.FeePolicy {
		return reservation.NewFeePolicy(internal.FeesConfig{
			DefaultAmount:   50000,
			DefaultCurrency: "UGX",
			ByListingType: map[string]internal.FeeEntry{
				listingmodel.TypePurchase:  {Amount: 200000},
				listingmodel.TypeShortStay: {Amount: 25, Currency: "USD"},
			},
		})
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockReservationRepository()
		listings = &mockListingReader{listings: map[int64]*listingmodel.Listing{
			1: {ID: 1, OwnerID: 2, Title: "Kololo apartment", ListingType: listingmodel.TypeRental, IsActive: true},
			2: {ID: 2, OwnerID: 2, Title: "Ntinda house", ListingType: listingmodel.TypePurchase, IsActive: true},
			3: {ID: 3, OwnerID: 2, Title: "Entebbe cottage", ListingType: listingmodel.TypeShortStay, IsActive: true},
			4: {ID: 4, OwnerID: 2, Title: "Delisted flat", ListingType: listingmodel.TypeRental, IsActive: false},
		}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = reservation.NewService(repo, listings, newFeePolicy(), nil, logger)
	})

	Describe("Create", func() {
		It("should open a pending reservation with the fee frozen from the policy table", func() {
			view, err := service.Create(ctx, ownerID, &reservation.CreateReservationRequest{ListingID: 2})

			Expect(err).ToNot(HaveOccurred())
			Expect(view.Status).To(Equal(reservationmodel.StatusPending))
			Expect(view.Amount).To(Equal(int64(200000)))
			Expect(view.Currency).To(Equal("UGX"))
		})

		It("should fall back to the default fee for listing types without a dedicated entry", func() {
			view, err := service.Create(ctx, ownerID, &reservation.CreateReservationRequest{ListingID: 1})

			Expect(err).ToNot(HaveOccurred())
			Expect(view.Amount).To(Equal(int64(50000)))
			Expect(view.Currency).To(Equal("UGX"))
		})

		It("should use the entry's own currency when one is configured", func() {
			view, err := service.Create(ctx, ownerID, &reservation.CreateReservationRequest{ListingID: 3})

			Expect(err).ToNot(HaveOccurred())
			Expect(view.Amount).To(Equal(int64(25)))
			Expect(view.Currency).To(Equal("USD"))
		})

		It("should default the reservation type to viewing_fee", func() {
			view, err := service.Create(ctx, ownerID, &reservation.CreateReservationRequest{ListingID: 1})

			Expect(err).ToNot(HaveOccurred())
			Expect(view.ReservationType).To(Equal(reservationmodel.TypeViewingFee))
		})

		It("should keep an explicitly requested reservation type", func() {
			view, err := service.Create(ctx, ownerID, &reservation.CreateReservationRequest{
				ListingID:       1,
				ReservationType: reservationmodel.TypeRental,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(view.ReservationType).To(Equal(reservationmodel.TypeRental))
		})

		It("should reject an unknown reservation type", func() {
			_, err := service.Create(ctx, ownerID, &reservation.CreateReservationRequest{
				ListingID:       1,
				ReservationType: "timeshare",
			})

			Expect(err).To(HaveOccurred())
			appErr, ok := err.(*internal.AppError)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("should reject a missing listing", func() {
			_, err := service.Create(ctx, ownerID, &reservation.CreateReservationRequest{ListingID: 777})

			Expect(err).To(MatchError(internal.ErrListingNotFound))
		})

		It("should treat an inactive listing as not found", func() {
			_, err := service.Create(ctx, ownerID, &reservation.CreateReservationRequest{ListingID: 4})

			Expect(err).To(MatchError(internal.ErrListingNotFound))
			Expect(repo.reservations).To(BeEmpty())
		})

		It("should not leave a later policy change visible on an open reservation", func() {
			view, err := service.Create(ctx, ownerID, &reservation.CreateReservationRequest{ListingID: 2})
			Expect(err).ToNot(HaveOccurred())

			reloaded := reservation.NewService(repo, listings, reservation.NewFeePolicy(internal.FeesConfig{
				DefaultAmount:   999999,
				DefaultCurrency: "UGX",
			}), nil, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))

			got, err := reloaded.Get(ownerID, view.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(got.Amount).To(Equal(int64(200000)))
		})
	})

	Describe("Get", func() {
		var created *reservation.ReservationView

		BeforeEach(func() {
			var err error
			created, err = service.Create(ctx, ownerID, &reservation.CreateReservationRequest{ListingID: 1})
			Expect(err).ToNot(HaveOccurred())
		})

		It("should return the reservation to its owner", func() {
			view, err := service.Get(ownerID, created.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(view.ID).To(Equal(created.ID))
		})

		It("should refuse another user's reservation", func() {
			_, err := service.Get(strangerID, created.ID)

			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})

		It("should report not found for an unknown id", func() {
			_, err := service.Get(ownerID, 777)

			Expect(err).To(MatchError(internal.ErrReservationNotFound))
		})
	})

	Describe("ListMine", func() {
		It("should only return the caller's reservations", func() {
			_, err := service.Create(ctx, ownerID, &reservation.CreateReservationRequest{ListingID: 1})
			Expect(err).ToNot(HaveOccurred())
			_, err = service.Create(ctx, strangerID, &reservation.CreateReservationRequest{ListingID: 2})
			Expect(err).ToNot(HaveOccurred())

			views, err := service.ListMine(ownerID)

			Expect(err).ToNot(HaveOccurred())
			Expect(views).To(HaveLen(1))
			Expect(views[0].UserID).To(Equal(ownerID))
		})
	})

	Describe("Cancel", func() {
		var created *reservation.ReservationView

		BeforeEach(func() {
			var err error
			created, err = service.Create(ctx, ownerID, &reservation.CreateReservationRequest{ListingID: 1})
			Expect(err).ToNot(HaveOccurred())
		})

		It("should cancel a pending reservation", func() {
			view, err := service.Cancel(ctx, ownerID, created.ID)

			Expect(err).ToNot(HaveOccurred())
			Expect(view.Status).To(Equal(reservationmodel.StatusCancelled))
		})

		It("should refuse a cancel from a non-owner", func() {
			_, err := service.Cancel(ctx, strangerID, created.ID)

			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})

		It("should refuse a cancel once the reservation has settled", func() {
			repo.reservations[created.ID].Status = reservationmodel.StatusPaid

			_, err := service.Cancel(ctx, ownerID, created.ID)

			Expect(err).To(MatchError(internal.ErrReservationNotPending))
		})

		It("should lose to a settlement that lands between the read and the transition", func() {
			// the conditional update runs against a row a webhook already
			// moved to paid
			repo.reservations[created.ID].Status = reservationmodel.StatusPending
			wrapped := &settlingRepository{mockReservationRepository: repo, settleID: created.ID}
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
			racy := reservation.NewService(wrapped, listings, newFeePolicy(), nil, logger)

			_, err := racy.Cancel(ctx, ownerID, created.ID)

			Expect(err).To(MatchError(internal.ErrReservationNotPending))
			Expect(repo.reservations[created.ID].Status).To(Equal(reservationmodel.StatusPaid))
		})
	})
})

// settlingRepository flips the reservation to paid right before the
// conditional cancel runs, modelling a webhook winning the race.
type settlingRepository struct {
	*mockReservationRepository
	settleID int64
}

func (s *settlingRepository) CancelIfPending(id int64) (bool, error) {
	s.mu.Lock()
	if r, ok := s.reservations[s.settleID]; ok && r.Status == reservationmodel.StatusPending {
		r.Status = reservationmodel.StatusPaid
	}
	s.mu.Unlock()
	return s.mockReservationRepository.CancelIfPending(id)
}
