package product

import (
	"context"
	"strconv"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// DefaultImage is used for products created without an image.
const DefaultImage = "https://via.placeholder.com/150"

// Column limits of the products table.
const (
	MaxNameLen     = 100
	MaxCategoryLen = 50
	MaxImageLen    = 200
	// PriceScale is the number of decimal places a price may carry.
	PriceScale = 2
)

// MaxPrice is the largest price a NUMERIC(12,2) column holds.
var MaxPrice = decimal.RequireFromString("9999999999.99")

// Product represents a sellable catalog item.
type Product struct {
	ID       int64
	Name     string
	Category string
	Price    decimal.Decimal
	Image    string
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, id int64, u Update) (*Product, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

// ValidationError reports a malformed product field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Validate checks the fields required for a new product and fills in the
// default image.
func (p *Product) Validate() error {
	if p.Name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if p.Category == "" {
		return &ValidationError{Field: "category", Reason: "required"}
	}
	if err := checkLen("name", p.Name, MaxNameLen); err != nil {
		return err
	}
	if err := checkLen("category", p.Category, MaxCategoryLen); err != nil {
		return err
	}
	if err := checkLen("image", p.Image, MaxImageLen); err != nil {
		return err
	}
	if reason := CheckPrice(p.Price); reason != "" {
		return &ValidationError{Field: "price", Reason: reason}
	}
	if p.Image == "" {
		p.Image = DefaultImage
	}
	return nil
}

// CheckPrice returns why v cannot be stored as a price, or "" when it can.
func CheckPrice(v decimal.Decimal) string {
	switch {
	case v.IsNegative():
		return "must not be negative"
	case !v.Equal(v.Truncate(PriceScale)):
		return "must have at most " + strconv.Itoa(PriceScale) + " decimal places"
	case v.GreaterThan(MaxPrice):
		return "must not exceed " + MaxPrice.StringFixed(PriceScale)
	}
	return ""
}

func checkLen(field, v string, limit int) error {
	if utf8.RuneCountInString(v) > limit {
		return &ValidationError{Field: field, Reason: "must be at most " + strconv.Itoa(limit) + " characters"}
	}
	return nil
}
