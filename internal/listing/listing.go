package listing

import (
	"time"

	listingmodel "github.com/kalungi/estate-management/internal/core/datamodel/listing"
)

// RepositoryAPI covers catalogue reads. Listings are managed out of band;
// this service only exposes them.
type RepositoryAPI interface {
	GetByID(id int64) (*listingmodel.Listing, error)
	ListActive(filter Filter) ([]listingmodel.Listing, error)
}

// Filter narrows the active-listing query. Zero values mean no constraint.
type Filter struct {
	ListingType string
	Region      string
}

type ServiceAPI interface {
	Get(id int64) (*ListingView, error)
	List(filter Filter) ([]ListingView, error)
}

type ListingView struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	ListingType string    `json:"listing_type"`
	Region      string    `json:"region,omitempty"`
	Price       int64     `json:"price"`
	Currency    string    `json:"currency"`
	Bedrooms    int       `json:"bedrooms,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func ToView(l *listingmodel.Listing) *ListingView {
	if l == nil {
		return nil
	}
	return &ListingView{
		ID:          l.ID,
		Title:       l.Title,
		ListingType: l.ListingType,
		Region:      l.Region,
		Price:       l.Price,
		Currency:    l.Currency,
		Bedrooms:    l.Bedrooms,
		CreatedAt:   l.CreatedAt,
	}
}
