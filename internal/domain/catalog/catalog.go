package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested menu item does not exist.
var ErrNotFound = errors.New("menu item not found")

// Item represents a purchasable menu entry. Items are read-only: the catalog
// is loaded once per session and never mutated by the ordering flow.
type Item struct {
	ID        string
	Name      string
	BasePrice decimal.Decimal
	Category  string
	Icon      string
}

// Addition is a priced add-on (extra shot, boba, whipped cream, ...) that can
// be attached to a line item. Its price contributes to the line's unit price.
type Addition struct {
	Name  string
	Price decimal.Decimal
}

// Repository defines read operations for the menu catalog.
type Repository interface {
	List(ctx context.Context) ([]Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	Additions(ctx context.Context) ([]Addition, error)
}
