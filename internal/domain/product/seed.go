package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// SampleCatalog is the catalog written into an empty store on first start.
func SampleCatalog() []Product {
	return []Product{
		{
			Name:     "Chicken Burger",
			Category: "Fast Food",
			Price:    decimal.NewFromInt(250),
			Image:    "https://images.unsplash.com/photo-1568901346375-23c9450c58cd?w=500&auto=format&fit=crop&q=60&ixlib=rb-4.0.3",
		},
		{
			Name:     "Veg Pizza",
			Category: "Pizza",
			Price:    decimal.NewFromInt(400),
			Image:    "https://images.unsplash.com/photo-1513104890138-7c749659a591?w=500&auto=format&fit=crop&q=60&ixlib=rb-4.0.3",
		},
		{
			Name:     "Cola",
			Category: "Beverage",
			Price:    decimal.NewFromInt(60),
			Image:    "https://images.unsplash.com/photo-1622483767028-3f66f32aef97?w=500&auto=format&fit=crop&q=60&ixlib=rb-4.0.3",
		},
	}
}

// SeedIfEmpty inserts SampleCatalog when the repository holds no products.
// It reports whether anything was written.
func SeedIfEmpty(ctx context.Context, repo Repository) (bool, error) {
	n, err := repo.Count(ctx)
	if err != nil {
		return false, errors.Wrap(err, "count products")
	}
	if n > 0 {
		return false, nil
	}
	for _, p := range SampleCatalog() {
		if err := repo.Create(ctx, &p); err != nil {
			return false, errors.Wrapf(err, "seed %q", p.Name)
		}
	}
	return true, nil
}
