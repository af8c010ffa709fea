package provision

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/table-order-bot/internal/catalog"
)

type Repository interface {
	// UpsertItem inserts the item or updates the one with the same name.
	UpsertItem(ctx context.Context, item catalog.Item) (id int64, created bool, err error)
	CountEmployees(ctx context.Context) (int, error)
	CreateEmployee(ctx context.Context, salary float64) (int64, error)
}

type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepository struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) UpsertItem(ctx context.Context, item catalog.Item) (int64, bool, error) {
	// xmax = 0 только у только что вставленной строки
	query := `
		INSERT INTO items (name, description, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description, price = EXCLUDED.price
		RETURNING id, (xmax = 0) AS inserted
	`

	var (
		id       int64
		inserted bool
	)
	if err := r.db.QueryRow(ctx, query, item.Name, item.Description, item.Price).Scan(&id, &inserted); err != nil {
		log.Error().Err(err).Str("name", item.Name).Msg("repository: failed to upsert item")
		return 0, false, fmt.Errorf("repository: failed to upsert item %q: %w", item.Name, err)
	}

	return id, inserted, nil
}

func (r *postgresRepository) CountEmployees(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM employees").Scan(&count); err != nil {
		log.Error().Err(err).Msg("repository: failed to count employees")
		return 0, fmt.Errorf("repository: failed to count employees: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) CreateEmployee(ctx context.Context, salary float64) (int64, error) {
	query := `
		INSERT INTO employees (salary)
		VALUES ($1)
		RETURNING id
	`

	var id int64
	if err := r.db.QueryRow(ctx, query, salary).Scan(&id); err != nil {
		log.Error().Err(err).Msg("repository: failed to create employee")
		return 0, fmt.Errorf("repository: failed to create employee: %w", err)
	}
	return id, nil
}
