package product

import "github.com/shopspring/decimal"

// Opt is an optional value: either unspecified or set to Value.
type Opt[T any] struct {
	Value T
	Set   bool
}

// NewOpt returns an Opt set to v.
func NewOpt[T any](v T) Opt[T] {
	return Opt[T]{Value: v, Set: true}
}

// Get returns the value and whether it was set.
func (o Opt[T]) Get() (v T, ok bool) {
	return o.Value, o.Set
}

// Or returns the value if set, otherwise fallback.
func (o Opt[T]) Or(fallback T) T {
	if o.Set {
		return o.Value
	}
	return fallback
}

// Update is a partial product update. Unset fields keep their stored value.
type Update struct {
	Name     Opt[string]
	Category Opt[string]
	Price    Opt[decimal.Decimal]
	Image    Opt[string]
}

// IsEmpty reports whether no field is set.
func (u Update) IsEmpty() bool {
	return !u.Name.Set && !u.Category.Set && !u.Price.Set && !u.Image.Set
}

// Validate rejects set fields holding invalid values.
func (u Update) Validate() error {
	if v, ok := u.Name.Get(); ok && v == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if v, ok := u.Category.Get(); ok && v == "" {
		return &ValidationError{Field: "category", Reason: "must not be empty"}
	}
	for _, f := range []struct {
		field string
		opt   Opt[string]
		limit int
	}{
		{"name", u.Name, MaxNameLen},
		{"category", u.Category, MaxCategoryLen},
		{"image", u.Image, MaxImageLen},
	} {
		if v, ok := f.opt.Get(); ok {
			if err := checkLen(f.field, v, f.limit); err != nil {
				return err
			}
		}
	}
	if v, ok := u.Price.Get(); ok {
		if reason := CheckPrice(v); reason != "" {
			return &ValidationError{Field: "price", Reason: reason}
		}
	}
	return nil
}

// Apply returns p with every set field of u applied.
func (u Update) Apply(p Product) Product {
	p.Name = u.Name.Or(p.Name)
	p.Category = u.Category.Or(p.Category)
	p.Price = u.Price.Or(p.Price)
	p.Image = u.Image.Or(p.Image)
	return p
}
