package domain

import (
	"math"
	"time"
)

// StockStatus classifies a product's availability from its on-hand quantity.
type StockStatus string

const (
	// StockStatusOut means nothing is on hand.
	StockStatusOut StockStatus = "out_of_stock"
	// StockStatusLow means the quantity fell under the restock threshold.
	StockStatusLow StockStatus = "low_stock"
	// StockStatusAvailable means the product can be ordered freely.
	StockStatusAvailable StockStatus = "available"
)

// ExpiryStatus classifies a product's shelf life relative to a reference date.
type ExpiryStatus string

const (
	// ExpiryStatusNone is used for products without an expiry date.
	ExpiryStatusNone ExpiryStatus = "no_expiry"
	// ExpiryStatusExpired means the expiry date already passed.
	ExpiryStatusExpired ExpiryStatus = "expired"
	// ExpiryStatusExpiringSoon means the product expires within thirty days.
	ExpiryStatusExpiringSoon ExpiryStatus = "expiring_soon"
	// ExpiryStatusFresh means the product has more than thirty days left.
	ExpiryStatusFresh ExpiryStatus = "fresh"
)

const (
	lowStockThreshold  = 50
	expiringSoonWindow = 30
	retailMarkup       = 1.4
)

// StockStatusFor maps an on-hand quantity to its stock status.
func StockStatusFor(quantity int) StockStatus {
	switch {
	case quantity <= 0:
		return StockStatusOut
	case quantity < lowStockThreshold:
		return StockStatusLow
	default:
		return StockStatusAvailable
	}
}

// DaysUntilExpiry returns the whole days remaining until expiry, rounded up.
// Negative values mean the date already passed.
func DaysUntilExpiry(expiry, now time.Time) int {
	diff := expiry.Sub(now)
	return int(math.Ceil(diff.Hours() / 24))
}

// ExpiryStatusFor classifies an optional expiry date relative to now.
func ExpiryStatusFor(expiry *time.Time, now time.Time) ExpiryStatus {
	if expiry == nil || expiry.IsZero() {
		return ExpiryStatusNone
	}
	days := DaysUntilExpiry(*expiry, now)
	switch {
	case days < 0:
		return ExpiryStatusExpired
	case days <= expiringSoonWindow:
		return ExpiryStatusExpiringSoon
	default:
		return ExpiryStatusFresh
	}
}

// Pricing holds the derived selling figures for a base (wholesale) price.
type Pricing struct {
	BasePrice            int64
	RetailPrice          int64
	Commission           int64
	CommissionPercentage int
}

// PricingFor derives the retail price and reseller commission from a base price.
// A non-positive base yields zeros rather than a division error.
func PricingFor(basePrice int64) Pricing {
	if basePrice <= 0 {
		return Pricing{BasePrice: basePrice}
	}
	retail := int64(math.Round(float64(basePrice) * retailMarkup))
	commission := retail - basePrice
	pct := int(math.Round(float64(commission) / float64(basePrice) * 100))
	return Pricing{
		BasePrice:            basePrice,
		RetailPrice:          retail,
		Commission:           commission,
		CommissionPercentage: pct,
	}
}
