package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

var ErrItemNotFound = errors.New("item not found")

// Repository gives read-only access to the menu. Every call goes to the database.
type Repository interface {
	FindItemByID(ctx context.Context, id int64) (*Item, error)
	FindItemByName(ctx context.Context, name string) (*Item, error)
	ListItems(ctx context.Context) ([]Item, error)
}

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepository struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) FindItemByID(ctx context.Context, id int64) (*Item, error) {
	query := `
		SELECT id, name, description, price
		FROM items
		WHERE id = $1
	`

	item, err := r.findOne(ctx, query, id)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, err
		}
		log.Error().Err(err).Int64("item_id", id).Msg("repository: failed to select item by id")
		return nil, fmt.Errorf("repository: failed to select item by id %d: %w", id, err)
	}

	return item, nil
}

func (r *postgresRepository) FindItemByName(ctx context.Context, name string) (*Item, error) {
	query := `
		SELECT id, name, description, price
		FROM items
		WHERE name = $1
	`

	item, err := r.findOne(ctx, query, name)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, err
		}
		log.Error().Err(err).Str("item_name", name).Msg("repository: failed to select item by name")
		return nil, fmt.Errorf("repository: failed to select item by name %q: %w", name, err)
	}

	return item, nil
}

func (r *postgresRepository) findOne(ctx context.Context, query string, arg any) (*Item, error) {
	var item Item
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Price,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	return &item, nil
}

func (r *postgresRepository) ListItems(ctx context.Context) ([]Item, error) {
	query := `
		SELECT id, name, description, price
		FROM items
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Price); err != nil {
			return nil, fmt.Errorf("repository: failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating items: %w", err)
	}

	return items, nil
}
