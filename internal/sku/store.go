package sku

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-comissoes/internal/commission"
)

var (
	// ErrNotFound is returned when no rate exists for the requested SKU.
	ErrNotFound = errors.New("sku: rate not found")
	// ErrDuplicate is returned when creating a rate for an already configured SKU.
	ErrDuplicate = errors.New("sku: rate already exists")
)

// Rate is a configured commission percentage for one SKU.
type Rate struct {
	SKU         string          `json:"sku"`
	Description string          `json:"description,omitempty"`
	Percentage  decimal.Decimal `json:"commissionPercentage"`
}

// DB is the subset of pgxpool.Pool the store depends on.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists SKU commission rates in Postgres.
type Store struct {
	DB DB
}

// List returns rates matching the optional search term, newest keys last,
// together with the unfiltered match count.
func (s Store) List(ctx context.Context, search string, limit, offset int) ([]Rate, int, error) {
	pattern := "%" + search + "%"

	var total int
	countRow := s.DB.QueryRow(ctx,
		`SELECT count(*) FROM skus WHERE $1 = '%%' OR sku ILIKE $1 OR description ILIKE $1`, pattern)
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sku: count rates: %w", err)
	}

	rows, err := s.DB.Query(ctx,
		`SELECT sku, description, commission_percentage
		 FROM skus
		 WHERE $1 = '%%' OR sku ILIKE $1 OR description ILIKE $1
		 ORDER BY sku
		 LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("sku: list rates: %w", err)
	}
	defer rows.Close()

	rates := make([]Rate, 0, limit)
	for rows.Next() {
		var rate Rate
		if err := rows.Scan(&rate.SKU, &rate.Description, &rate.Percentage); err != nil {
			return nil, 0, fmt.Errorf("sku: scan rate: %w", err)
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sku: iterate rates: %w", err)
	}
	return rates, total, nil
}

// Get returns the rate configured for one SKU.
func (s Store) Get(ctx context.Context, key string) (Rate, error) {
	var rate Rate
	row := s.DB.QueryRow(ctx,
		`SELECT sku, description, commission_percentage FROM skus WHERE sku = $1`, key)
	if err := row.Scan(&rate.SKU, &rate.Description, &rate.Percentage); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, ErrNotFound
		}
		return Rate{}, fmt.Errorf("sku: get rate: %w", err)
	}
	return rate, nil
}

// Create inserts a new rate. A duplicate SKU key maps to ErrDuplicate.
func (s Store) Create(ctx context.Context, rate Rate) error {
	_, err := s.DB.Exec(ctx,
		`INSERT INTO skus (sku, description, commission_percentage) VALUES ($1, $2, $3)`,
		rate.SKU, rate.Description, rate.Percentage)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("sku: create rate: %w", err)
	}
	return nil
}

// Update replaces the description and percentage of an existing rate.
func (s Store) Update(ctx context.Context, rate Rate) error {
	tag, err := s.DB.Exec(ctx,
		`UPDATE skus SET description = $2, commission_percentage = $3 WHERE sku = $1`,
		rate.SKU, rate.Description, rate.Percentage)
	if err != nil {
		return fmt.Errorf("sku: update rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the rate for one SKU.
func (s Store) Delete(ctx context.Context, key string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM skus WHERE sku = $1`, key)
	if err != nil {
		return fmt.Errorf("sku: delete rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AllRates loads every configured rate as engine input. Rows arrive ordered by
// insertion so duplicate upstream loads resolve last write wins in the engine.
func (s Store) AllRates(ctx context.Context) ([]commission.SKURate, error) {
	rows, err := s.DB.Query(ctx, `SELECT sku, commission_percentage FROM skus ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("sku: load rates: %w", err)
	}
	defer rows.Close()

	var rates []commission.SKURate
	for rows.Next() {
		var rate commission.SKURate
		if err := rows.Scan(&rate.SKU, &rate.Percentage); err != nil {
			return nil, fmt.Errorf("sku: scan rate: %w", err)
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sku: iterate rates: %w", err)
	}
	return rates, nil
}
