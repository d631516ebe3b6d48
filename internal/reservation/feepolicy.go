package reservation

import (
	"github.com/kalungi/estate-management/internal"
)

// FeePolicy resolves the reservation fee from the configured table. The
// table is the whole policy; there is no formula behind it.
type FeePolicy struct {
	cfg internal.FeesConfig
}

func NewFeePolicy(cfg internal.FeesConfig) *FeePolicy {
	return &FeePolicy{cfg: cfg}
}

// FeeFor returns the fee for a listing type, falling back to the default
// entry when the type has no dedicated row.
func (f *FeePolicy) FeeFor(listingType string) (amount int64, currency string) {
	if entry, ok := f.cfg.ByListingType[listingType]; ok {
		currency = entry.Currency
		if currency == "" {
			currency = f.cfg.DefaultCurrency
		}
		return entry.Amount, currency
	}
	return f.cfg.DefaultAmount, f.cfg.DefaultCurrency
}
