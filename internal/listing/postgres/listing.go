package postgres

import (
	"gorm.io/gorm"

	listingmodel "github.com/kalungi/estate-management/internal/core/datamodel/listing"
	"github.com/kalungi/estate-management/internal/listing"
)

type ListingRepository struct {
	db *gorm.DB
}

// NewListingRepository returns the concrete type; it satisfies
// listing.RepositoryAPI and the reservation flow's ListingReader.
func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

var _ listing.RepositoryAPI = (*ListingRepository)(nil)

func (r *ListingRepository) GetByID(id int64) (*listingmodel.Listing, error) {
	var l listingmodel.Listing
	if err := r.db.First(&l, id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *ListingRepository) ListActive(filter listing.Filter) ([]listingmodel.Listing, error) {
	query := r.db.Where("is_active = ?", true)
	if filter.ListingType != "" {
		query = query.Where("listing_type = ?", filter.ListingType)
	}
	if filter.Region != "" {
		query = query.Where("region = ?", filter.Region)
	}

	var rows []listingmodel.Listing
	if err := query.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
