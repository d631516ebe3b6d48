package listing

import "time"

// Listing types mirror the catalogue the reservation fee table is keyed by.
const (
	TypeRental    = "rental"
	TypePurchase  = "purchase"
	TypeShortStay = "short_stay"
)

type Listing struct {
	ID          int64     `gorm:"primaryKey"`
	OwnerID     int64     `gorm:"column:owner_id;not null"`
	Title       string    `gorm:"column:title;not null"`
	ListingType string    `gorm:"column:listing_type;not null;default:rental"`
	Region      string    `gorm:"column:region"`
	Price       int64     `gorm:"column:price;not null"`
	Currency    string    `gorm:"column:currency;not null;default:UGX"`
	Bedrooms    int       `gorm:"column:bedrooms"`
	IsActive    bool      `gorm:"column:is_active;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time `gorm:"column:updated_at;default:now()"`
}
