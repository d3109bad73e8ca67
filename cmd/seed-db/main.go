// Command seed-db loads the menu catalog (items and priced additions) from a
// JSON file into PostgreSQL. Existing rows are upserted so the command can be
// re-run safely.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kitchen-storefront/internal/repository"
)

type menuJSON struct {
	Items []struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		BasePrice decimal.Decimal `json:"basePrice"`
		Category  string          `json:"category"`
		Icon      string          `json:"icon"`
	} `json:"items"`
	Additions []struct {
		Name  string          `json:"name"`
		Price decimal.Decimal `json:"price"`
	} `json:"additions"`
}

const (
	upsertItemSQL = `INSERT INTO menu_items (id, name, base_price, category, icon)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			base_price = EXCLUDED.base_price,
			category = EXCLUDED.category,
			icon = EXCLUDED.icon`

	upsertAdditionSQL = `INSERT INTO additions (name, price)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET price = EXCLUDED.price`
)

func main() {
	var (
		databaseURL string
		menuFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&menuFile, "menu-file", "db/seed/menu.json", "path to menu JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, menuFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("menu seeded successfully")
}

func run(ctx context.Context, databaseURL, menuFile string) error {
	data, err := os.ReadFile(menuFile)
	if err != nil {
		return errors.Wrap(err, "read menu file")
	}

	var menu menuJSON
	if err := json.Unmarshal(data, &menu); err != nil {
		return errors.Wrap(err, "parse menu file")
	}
	if len(menu.Items) == 0 {
		return errors.New("menu file contains no items")
	}

	pool, err := repository.Connect(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect database")
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seed(ctx, pool, menu); err != nil {
		return err
	}

	slog.Info("seeded menu",
		slog.Int("items", len(menu.Items)),
		slog.Int("additions", len(menu.Additions)),
	)
	return nil
}

func seed(ctx context.Context, pool *pgxpool.Pool, menu menuJSON) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, it := range menu.Items {
		if _, err := tx.Exec(ctx, upsertItemSQL, it.ID, it.Name, it.BasePrice, it.Category, it.Icon); err != nil {
			return errors.Wrapf(err, "upsert item %s", it.ID)
		}
	}
	for _, a := range menu.Additions {
		if _, err := tx.Exec(ctx, upsertAdditionSQL, a.Name, a.Price); err != nil {
			return errors.Wrapf(err, "upsert addition %s", a.Name)
		}
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}
