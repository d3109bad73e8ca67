package cart

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Size enumerates the supported drink sizes. The empty value means the item
// has no size choice.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// ValidSize reports whether s is empty or one of the known sizes.
func ValidSize(s Size) bool {
	switch s {
	case "", SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// Sweetness enumerates the supported sweetness levels. The empty value means
// the item has no sweetness choice. Sweetness never affects price.
type Sweetness string

const (
	SweetnessLow     Sweetness = "low"
	SweetnessRegular Sweetness = "regular"
	SweetnessExtra   Sweetness = "extra"
)

// ValidSweetness reports whether s is empty or one of the known levels.
func ValidSweetness(s Sweetness) bool {
	switch s {
	case "", SweetnessLow, SweetnessRegular, SweetnessExtra:
		return true
	}
	return false
}

// LineItem is one distinct customized product entry in a cart. Two line items
// that differ only by quantity are merged by Cart.Add.
type LineItem struct {
	LineID    string
	ItemID    string
	Name      string
	BasePrice decimal.Decimal
	UnitPrice decimal.Decimal
	Quantity  int
	Size      Size
	Sweetness Sweetness
	// Additions is an order-irrelevant set, kept sorted so equivalence and
	// serialization are deterministic.
	Additions []string
	Icon      string
}

// NormalizeAdditions sorts and de-duplicates addition names in place,
// returning the normalized slice.
func NormalizeAdditions(additions []string) []string {
	slices.Sort(additions)
	return slices.Compact(additions)
}

// Equivalent reports whether two line items describe the same product with
// the same customization. Equivalent items are merged into one line.
func (li LineItem) Equivalent(other LineItem) bool {
	return li.ItemID == other.ItemID &&
		li.Size == other.Size &&
		li.Sweetness == other.Sweetness &&
		slices.Equal(li.Additions, other.Additions)
}

// clone returns a deep copy of the line item.
func (li LineItem) clone() LineItem {
	out := li
	out.Additions = slices.Clone(li.Additions)
	return out
}
