package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kitchen-storefront/internal/domain/catalog"
)

const (
	listItemsSQL = `SELECT id, name, base_price, category, icon
		FROM menu_items ORDER BY id`

	getItemByIDSQL = `SELECT id, name, base_price, category, icon
		FROM menu_items WHERE id = $1`

	listAdditionsSQL = `SELECT name, price FROM additions ORDER BY name`
)

// querier is the slice of the pgx pool the repository needs. Tests plug in a
// stub; production code passes the pool.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	db querier
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: pool}
}

// List returns the full menu ordered by item ID.
func (r *CatalogRepository) List(ctx context.Context) ([]catalog.Item, error) {
	rows, err := r.db.Query(ctx, listItemsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list menu items")
	}
	return pgx.CollectRows(rows, scanItem)
}

// GetByID returns a single menu item by its identifier.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*catalog.Item, error) {
	rows, err := r.db.Query(ctx, getItemByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get menu item %q", id)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get menu item %q", id)
	}
	return &item, nil
}

// Additions returns the priced add-ons, ordered by name.
func (r *CatalogRepository) Additions(ctx context.Context) ([]catalog.Addition, error) {
	rows, err := r.db.Query(ctx, listAdditionsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list additions")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Addition, error) {
		var (
			a     catalog.Addition
			price decimal.Decimal
		)
		err := row.Scan(&a.Name, &price)
		a.Price = price
		return a, err
	})
}

func scanItem(row pgx.CollectableRow) (catalog.Item, error) {
	var (
		it    catalog.Item
		price decimal.Decimal
	)
	err := row.Scan(&it.ID, &it.Name, &price, &it.Category, &it.Icon)
	it.BasePrice = price
	return it, err
}
