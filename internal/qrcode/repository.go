package qrcode

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

var ErrQRCodeNotFound = errors.New("qrcode not found")

type Repository interface {
	FindByUUID(ctx context.Context, id uuid.UUID) (*QRCode, error)
	// UpdateUUID swaps the token only while it still equals current.
	UpdateUUID(ctx context.Context, id int64, current, next uuid.UUID) error
	Create(ctx context.Context, newUUID uuid.UUID) (*QRCode, error)
	List(ctx context.Context) ([]QRCode, error)
}

type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepository struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) FindByUUID(ctx context.Context, id uuid.UUID) (*QRCode, error) {
	query := `
		SELECT id, uuid
		FROM qrcodes
		WHERE uuid = $1
	`

	var code QRCode
	err := r.db.QueryRow(ctx, query, id).Scan(&code.ID, &code.UUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQRCodeNotFound
		}
		return nil, fmt.Errorf("repository: failed to select qrcode by uuid %s: %w", id, err)
	}

	return &code, nil
}

func (r *postgresRepository) UpdateUUID(ctx context.Context, id int64, current, next uuid.UUID) error {
	query := `
		UPDATE qrcodes
		SET uuid = $1
		WHERE id = $2 AND uuid = $3
	`

	cmdTag, err := r.db.Exec(ctx, query, next, id, current)
	if err != nil {
		log.Error().Err(err).Int64("qrcode_id", id).Msg("repository: failed to update qrcode uuid")
		return fmt.Errorf("repository: failed to update qrcode %d: %w", id, err)
	}

	// ноль строк: стола нет или токен уже сменил кто-то другой
	if cmdTag.RowsAffected() == 0 {
		log.Warn().Int64("qrcode_id", id).Msg("repository: qrcode token already rotated or missing")
		return ErrQRCodeNotFound
	}

	return nil
}

func (r *postgresRepository) Create(ctx context.Context, newUUID uuid.UUID) (*QRCode, error) {
	query := `
		INSERT INTO qrcodes (uuid)
		VALUES ($1)
		RETURNING id
	`

	code := QRCode{UUID: newUUID}
	if err := r.db.QueryRow(ctx, query, newUUID).Scan(&code.ID); err != nil {
		return nil, fmt.Errorf("repository: failed to insert qrcode: %w", err)
	}

	return &code, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]QRCode, error) {
	rows, err := r.db.Query(ctx, `SELECT id, uuid FROM qrcodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query qrcodes: %w", err)
	}
	defer rows.Close()

	codes := make([]QRCode, 0)
	for rows.Next() {
		var code QRCode
		if err := rows.Scan(&code.ID, &code.UUID); err != nil {
			return nil, fmt.Errorf("repository: failed to scan qrcode: %w", err)
		}
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating qrcodes: %w", err)
	}

	return codes, nil
}
