package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-comissoes/internal/commission"
)

// ErrNotFound is returned when the requested order does not exist.
var ErrNotFound = errors.New("order: not found")

// Store persists orders, line items, and delivery records in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// SaveOrders inserts a batch of orders with their line items in one
// transaction. Re-ingesting an existing order id replaces its items.
func (s Store) SaveOrders(ctx context.Context, orders []commission.Order) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("order: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, ord := range orders {
		if _, err := tx.Exec(ctx,
			`INSERT INTO orders (id, order_date, total_value) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET order_date = excluded.order_date, total_value = excluded.total_value`,
			ord.ID, ord.Date, ord.TotalValue); err != nil {
			return fmt.Errorf("order: upsert order %s: %w", ord.ID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, ord.ID); err != nil {
			return fmt.Errorf("order: clear items for %s: %w", ord.ID, err)
		}
		for position, item := range ord.Items {
			if _, err := tx.Exec(ctx,
				`INSERT INTO order_items (order_id, sku, quantity, unit_value, disc_com, disc_adi, ipi, icmsubs, position)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				ord.ID, item.SKU, item.Quantity, item.UnitValue, item.DiscCom, item.DiscAdi,
				item.IPI, item.ICMSSubs, position); err != nil {
				return fmt.Errorf("order: insert item %s/%s: %w", ord.ID, item.SKU, err)
			}
		}
	}
	return tx.Commit(ctx)
}

// ListOrders returns orders without items, newest first, plus the total count.
func (s Store) ListOrders(ctx context.Context, limit, offset int) ([]commission.Order, int, error) {
	var total int
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("order: count: %w", err)
	}

	rows, err := s.Pool.Query(ctx,
		`SELECT id, order_date, total_value FROM orders ORDER BY order_date DESC, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("order: list: %w", err)
	}
	defer rows.Close()

	orders := make([]commission.Order, 0, limit)
	for rows.Next() {
		var ord commission.Order
		if err := rows.Scan(&ord.ID, &ord.Date, &ord.TotalValue); err != nil {
			return nil, 0, fmt.Errorf("order: scan: %w", err)
		}
		orders = append(orders, ord)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("order: iterate: %w", err)
	}
	return orders, total, nil
}

// GetOrder returns one order including its line items in ingestion order.
func (s Store) GetOrder(ctx context.Context, id string) (commission.Order, error) {
	var ord commission.Order
	row := s.Pool.QueryRow(ctx, `SELECT id, order_date, total_value FROM orders WHERE id = $1`, id)
	if err := row.Scan(&ord.ID, &ord.Date, &ord.TotalValue); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return commission.Order{}, ErrNotFound
		}
		return commission.Order{}, fmt.Errorf("order: get %s: %w", id, err)
	}

	rows, err := s.Pool.Query(ctx,
		`SELECT sku, quantity, unit_value, disc_com, disc_adi, ipi, icmsubs
		 FROM order_items WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return commission.Order{}, fmt.Errorf("order: items for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item commission.OrderLineItem
		if err := rows.Scan(&item.SKU, &item.Quantity, &item.UnitValue, &item.DiscCom,
			&item.DiscAdi, &item.IPI, &item.ICMSSubs); err != nil {
			return commission.Order{}, fmt.Errorf("order: scan item: %w", err)
		}
		ord.Items = append(ord.Items, item)
	}
	if err := rows.Err(); err != nil {
		return commission.Order{}, fmt.Errorf("order: iterate items: %w", err)
	}
	return ord, nil
}

// AllOrders loads every order with items as engine input, ordered by order
// date then id so engine output stays deterministic.
func (s Store) AllOrders(ctx context.Context) ([]commission.Order, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT o.id, o.order_date, o.total_value, i.sku, i.quantity, i.unit_value,
		        i.disc_com, i.disc_adi, i.ipi, i.icmsubs
		 FROM orders o
		 JOIN order_items i ON i.order_id = o.id
		 ORDER BY o.order_date, o.id, i.position`)
	if err != nil {
		return nil, fmt.Errorf("order: load all: %w", err)
	}
	defer rows.Close()

	var orders []commission.Order
	index := make(map[string]int)
	for rows.Next() {
		var (
			ord  commission.Order
			item commission.OrderLineItem
		)
		if err := rows.Scan(&ord.ID, &ord.Date, &ord.TotalValue, &item.SKU, &item.Quantity,
			&item.UnitValue, &item.DiscCom, &item.DiscAdi, &item.IPI, &item.ICMSSubs); err != nil {
			return nil, fmt.Errorf("order: scan row: %w", err)
		}
		at, ok := index[ord.ID]
		if !ok {
			at = len(orders)
			index[ord.ID] = at
			orders = append(orders, ord)
		}
		orders[at].Items = append(orders[at].Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order: iterate rows: %w", err)
	}
	return orders, nil
}

// SaveDeliveries upserts delivery records. The (order, SKU) pair is the
// primary key, so re-uploading a pair overwrites the previous date: last
// write wins.
func (s Store) SaveDeliveries(ctx context.Context, records []commission.DeliveryRecord) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("order: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, record := range records {
		if _, err := tx.Exec(ctx,
			`INSERT INTO deliveries (order_id, sku, expected_delivery_date) VALUES ($1, $2, $3)
			 ON CONFLICT (order_id, sku) DO UPDATE SET expected_delivery_date = excluded.expected_delivery_date`,
			record.OrderID, record.SKU, record.ExpectedDelivery); err != nil {
			return fmt.Errorf("order: upsert delivery %s/%s: %w", record.OrderID, record.SKU, err)
		}
	}
	return tx.Commit(ctx)
}

// ListDeliveries returns delivery records with pagination.
func (s Store) ListDeliveries(ctx context.Context, limit, offset int) ([]commission.DeliveryRecord, int, error) {
	var total int
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM deliveries`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("order: count deliveries: %w", err)
	}

	rows, err := s.Pool.Query(ctx,
		`SELECT order_id, sku, expected_delivery_date FROM deliveries
		 ORDER BY expected_delivery_date, order_id, sku LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("order: list deliveries: %w", err)
	}
	defer rows.Close()

	records := make([]commission.DeliveryRecord, 0, limit)
	for rows.Next() {
		var record commission.DeliveryRecord
		if err := rows.Scan(&record.OrderID, &record.SKU, &record.ExpectedDelivery); err != nil {
			return nil, 0, fmt.Errorf("order: scan delivery: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("order: iterate deliveries: %w", err)
	}
	return records, total, nil
}

// AllDeliveries loads every delivery record as engine input.
func (s Store) AllDeliveries(ctx context.Context) ([]commission.DeliveryRecord, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT order_id, sku, expected_delivery_date FROM deliveries ORDER BY order_id, sku`)
	if err != nil {
		return nil, fmt.Errorf("order: load deliveries: %w", err)
	}
	defer rows.Close()

	var records []commission.DeliveryRecord
	for rows.Next() {
		var record commission.DeliveryRecord
		if err := rows.Scan(&record.OrderID, &record.SKU, &record.ExpectedDelivery); err != nil {
			return nil, fmt.Errorf("order: scan delivery: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order: iterate deliveries: %w", err)
	}
	return records, nil
}
