package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/kitchen-storefront/internal/domain/catalog"
)

var (
	smallDelta = decimal.RequireFromString("-0.50")
	largeDelta = decimal.RequireFromString("1.50")
)

// sizeDelta returns the price adjustment for a size. Medium and the empty
// size carry no adjustment.
func sizeDelta(s Size) decimal.Decimal {
	switch s {
	case SizeSmall:
		return smallDelta
	case SizeLarge:
		return largeDelta
	}
	return decimal.Zero
}

// UnitPrice computes the effective per-unit price of a customized item:
// base price plus the sum of addition prices plus the size adjustment.
//
// The result is not clamped at zero: a degenerate catalog entry (base price
// below the small-size discount) yields a negative price. Callers validate
// size and addition inputs before reaching this function; it never errors.
func UnitPrice(base decimal.Decimal, size Size, additions []catalog.Addition) decimal.Decimal {
	price := base
	for _, a := range additions {
		price = price.Add(a.Price)
	}
	return price.Add(sizeDelta(size))
}
