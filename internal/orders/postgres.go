package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores orders in the orders and order_lines tables.
type PostgresRepository struct {
	db *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a repository over the given pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orderColumns = `id, group_id, group_position, pharmacy_id, pharmacy_name, status, subtotal,
	payment_method, customer_name, customer_phone, customer_address, created_at, cancelled_at`

func (r *PostgresRepository) Create(ctx context.Context, orders []*Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, o := range orders {
		batch.Queue(`INSERT INTO orders (`+orderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			o.ID, o.GroupID, o.Sequence, o.StoreID, o.StoreName, string(o.Status), o.Subtotal,
			string(o.PaymentMethod), o.Customer.Name, o.Customer.Phone, o.Customer.Address,
			o.CreatedAt, o.CancelledAt)
		for i, line := range o.Items {
			batch.Queue(`INSERT INTO order_lines (order_id, position, requested, medicine_name, price)
				VALUES ($1, $2, $3, $4, $5)`,
				o.ID, i, line.Requested, line.MedicineName, line.Price)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert orders: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Order, error) {
	orders, err := r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return orders[0], nil
}

func (r *PostgresRepository) ListByGroup(ctx context.Context, groupID string) ([]*Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE group_id = $1 ORDER BY created_at, group_position, id`, groupID)
}

func (r *PostgresRepository) Cancel(ctx context.Context, id string, at time.Time) (*Order, error) {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read order status: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET status = $2, cancelled_at = $3
		WHERE id = $1 AND status = $4
	`, id, string(StatusCancelled), at, string(StatusPlaced))
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAlreadyCancelled
	}

	return r.Get(ctx, id)
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old orders: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// query reads orders and attaches their lines.
func (r *PostgresRepository) query(ctx context.Context, sql string, args ...any) ([]*Order, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*Order, 0)
	byID := make(map[string]*Order)
	ids := make([]string, 0)
	for rows.Next() {
		var o Order
		var status, payment string
		if err := rows.Scan(&o.ID, &o.GroupID, &o.Sequence, &o.StoreID, &o.StoreName, &status, &o.Subtotal,
			&payment, &o.Customer.Name, &o.Customer.Phone, &o.Customer.Address,
			&o.CreatedAt, &o.CancelledAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Status = Status(status)
		o.PaymentMethod = PaymentMethod(payment)
		o.Items = make([]OrderLine, 0)
		orders = append(orders, &o)
		byID[o.ID] = &o
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return orders, nil
	}

	lineRows, err := r.db.Query(ctx, `
		SELECT order_id, requested, medicine_name, price
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var orderID string
		var line OrderLine
		if err := lineRows.Scan(&orderID, &line.Requested, &line.MedicineName, &line.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, line)
		}
	}
	if err := lineRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order lines: %w", err)
	}

	return orders, nil
}
