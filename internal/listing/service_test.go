package listing_test

import (
	"fmt"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kalungi/estate-management/internal"
	listingmodel "github.com/kalungi/estate-management/internal/core/datamodel/listing"
	"github.com/kalungi/estate-management/internal/listing"
)

func TestListing(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Listing Suite")
}

type mockListingRepository struct {
	listings map[int64]*listingmodel.Listing
}

func (m *mockListingRepository) GetByID(id int64) (*listingmodel.Listing, error) {
	l, ok := m.listings[id]
	if !ok {
		return nil, fmt.Errorf("listing %d not found", id)
	}
	return l, nil
}

func (m *mockListingRepository) ListActive(filter listing.Filter) ([]listingmodel.Listing, error) {
	var rows []listingmodel.Listing
	for _, l := range m.listings {
		if !l.IsActive {
			continue
		}
		if filter.ListingType != "" && l.ListingType != filter.ListingType {
			continue
		}
		if filter.Region != "" && l.Region != filter.Region {
			continue
		}
		rows = append(rows, *l)
	}
	return rows, nil
}

var _ = Describe("Listing Service", func() {
	var service *listing.Service

	BeforeEach(func() {
		repo := &mockListingRepository{listings: map[int64]*listingmodel.Listing{
			1: {ID: 1, Title: "Kololo apartment", ListingType: listingmodel.TypeRental, Region: "Kampala", IsActive: true},
			2: {ID: 2, Title: "Ntinda house", ListingType: listingmodel.TypePurchase, Region: "Kampala", IsActive: true},
			3: {ID: 3, Title: "Entebbe cottage", ListingType: listingmodel.TypeShortStay, Region: "Entebbe", IsActive: true},
			4: {ID: 4, Title: "Delisted flat", ListingType: listingmodel.TypeRental, Region: "Kampala", IsActive: false},
		}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = listing.NewService(repo, logger)
	})

	Describe("Get", func() {
		It("should return an active listing", func() {
			view, err := service.Get(1)

			Expect(err).ToNot(HaveOccurred())
			Expect(view.Title).To(Equal("Kololo apartment"))
		})

		It("should hide inactive listings behind not-found", func() {
			_, err := service.Get(4)

			Expect(err).To(MatchError(internal.ErrListingNotFound))
		})

		It("should report not found for unknown ids", func() {
			_, err := service.Get(777)

			Expect(err).To(MatchError(internal.ErrListingNotFound))
		})
	})

	Describe("List", func() {
		It("should return all active listings without filters", func() {
			views, err := service.List(listing.Filter{})

			Expect(err).ToNot(HaveOccurred())
			Expect(views).To(HaveLen(3))
		})

		It("should filter by listing type", func() {
			views, err := service.List(listing.Filter{ListingType: listingmodel.TypePurchase})

			Expect(err).ToNot(HaveOccurred())
			Expect(views).To(HaveLen(1))
			Expect(views[0].Title).To(Equal("Ntinda house"))
		})

		It("should filter by region", func() {
			views, err := service.List(listing.Filter{Region: "Entebbe"})

			Expect(err).ToNot(HaveOccurred())
			Expect(views).To(HaveLen(1))
			Expect(views[0].Title).To(Equal("Entebbe cottage"))
		})
	})
})
