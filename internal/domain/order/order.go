package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateNumber is returned by Repository.Create when the order
	// number is already taken.
	ErrDuplicateNumber = errors.New("order number already exists")
)

// Order is a recorded sale. Total is fixed at creation time and never
// recomputed from catalog prices.
type Order struct {
	ID            int64
	Number        string
	CreatedAt     time.Time
	Total         decimal.Decimal
	PaymentMethod string
	Items         []Item
	// ItemCount is filled by listing queries that do not load Items.
	ItemCount int
}

// Item is one line of an order. ProductName and Price are captured at sale
// time; ProductID is nil when the product was unknown or has been deleted.
type Item struct {
	ID          int64
	OrderID     int64
	ProductID   *int64
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// Subtotal returns Price × Quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order header and all of its items atomically and
	// fills in the assigned identifiers.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	// List returns all orders newest first, with ItemCount set.
	List(ctx context.Context) ([]Order, error)
	// Delete removes the order together with its items.
	Delete(ctx context.Context, id int64) error
}
