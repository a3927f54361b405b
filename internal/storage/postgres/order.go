package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pos-billing/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (order_number, created_at, total_amount, payment_method)
		VALUES ($1, $2, $3, $4) RETURNING id`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, product_name, quantity, price)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	orderSummaryColumns = `o.id, o.order_number, o.created_at, o.total_amount, o.payment_method,
		(SELECT count(*) FROM order_items i WHERE i.order_id = o.id)`

	getOrderByIDSQL = `SELECT ` + orderSummaryColumns + ` FROM orders o WHERE o.id = $1`

	listOrdersSQL = `SELECT ` + orderSummaryColumns + ` FROM orders o
		ORDER BY o.created_at DESC, o.id DESC`

	listOrderItemsSQL = `SELECT id, order_id, product_id, product_name, quantity, price
		FROM order_items WHERE order_id = $1 ORDER BY id`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order header and its items in one transaction. The
// header is inserted first so items can reference its ID. A taken order
// number yields order.ErrDuplicateNumber and nothing is written.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orderID int64
	err = tx.QueryRow(ctx, insertOrderSQL,
		o.Number, o.CreatedAt, o.Total, o.PaymentMethod,
	).Scan(&orderID)
	if err != nil {
		if isUniqueViolation(err) {
			return order.ErrDuplicateNumber
		}
		return fmt.Errorf("inserting order %q: %w", o.Number, err)
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(insertOrderItemSQL,
			orderID, item.ProductID, item.ProductName, item.Quantity, item.Price,
		)
	}
	itemIDs := make([]int64, len(o.Items))
	br := tx.SendBatch(ctx, batch)
	for i := range o.Items {
		if err := br.QueryRow().Scan(&itemIDs[i]); err != nil {
			_ = br.Close()
			return fmt.Errorf("inserting item %d of order %q: %w", i, o.Number, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("inserting items of order %q: %w", o.Number, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.Number, err)
	}

	o.ID = orderID
	for i := range o.Items {
		o.Items[i].ID = itemIDs[i]
		o.Items[i].OrderID = orderID
	}
	o.ItemCount = len(o.Items)
	return nil
}

// GetByID returns the order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrderSummary)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	rows, err = r.pool.Query(ctx, listOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items of order %d: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("getting items of order %d: %w", id, err)
	}
	return &o, nil
}

// List returns every order newest first, without items.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrderSummary)
}

// Delete removes the order; its items go with it through ON DELETE CASCADE.
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrderSummary(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemCount int64
	)
	err := row.Scan(&o.ID, &o.Number, &o.CreatedAt, &o.Total, &o.PaymentMethod, &itemCount)
	o.CreatedAt = o.CreatedAt.UTC()
	o.ItemCount = int(itemCount)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		item     order.Item
		quantity int32
	)
	err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &quantity, &item.Price)
	item.Quantity = int(quantity)
	return item, err
}
