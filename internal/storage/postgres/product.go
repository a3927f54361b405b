package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-billing/internal/domain/product"
)

const (
	productColumns = `id, name, category, price, image`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	createProductSQL = `INSERT INTO products (name, category, price, image)
		VALUES ($1, $2, $3, $4) RETURNING id`

	updateProductSQL = `UPDATE products SET
		name = COALESCE($2::text, name),
		category = COALESCE($3::text, category),
		price = COALESCE($4::numeric, price),
		image = COALESCE($5::text, image)
		WHERE id = $1
		RETURNING ` + productColumns

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	countProductsSQL = `SELECT count(*) FROM products`

	listProductNamesSQL = `SELECT name FROM products`

	productNameExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE lower(name) = lower($1))`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs. Unknown IDs are
// silently absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts p and sets its ID.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, createProductSQL,
		p.Name, p.Category, p.Price, p.Image,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	return nil
}

// Update applies the set fields of u to the product and returns the result.
func (r *ProductRepository) Update(ctx context.Context, id int64, u product.Update) (*product.Product, error) {
	price := decimal.NullDecimal{}
	if v, ok := u.Price.Get(); ok {
		price = decimal.NewNullDecimal(v)
	}

	rows, err := r.pool.Query(ctx, updateProductSQL,
		id, optText(u.Name), optText(u.Category), price, optText(u.Image),
	)
	if err != nil {
		return nil, fmt.Errorf("updating product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("updating product %d: %w", id, err)
	}
	return &p, nil
}

// Delete removes the product. Order items keep their captured name and lose
// the product reference.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Count returns the number of products in the catalog.
func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, countProductsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return n, nil
}

// Names returns the name of every catalog product.
func (r *ProductRepository) Names(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listProductNamesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing product names: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// NameExists reports whether a product with the given name exists, ignoring case.
func (r *ProductRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, productNameExistsSQL, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking product name %q: %w", name, err)
	}
	return exists, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.Name, &p.Category, &price, &p.Image)
	p.Price = price
	return p, err
}

func optText(o product.Opt[string]) *string {
	if v, ok := o.Get(); ok {
		return &v
	}
	return nil
}
