package order

import (
	"context"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/pos-billing/internal/domain/product"
)

const (
	// DefaultPaymentMethod is recorded when the request names none.
	DefaultPaymentMethod = "Cash"
	// UnknownProductName is captured for cart entries whose product does
	// not exist.
	UnknownProductName = "Unknown Product"

	// MaxPaymentMethodLen is the longest payment method the orders table holds.
	MaxPaymentMethodLen = 20
	// MaxQuantity is the largest quantity of a single cart line.
	MaxQuantity = math.MaxInt32

	maxNumberAttempts = 5
	instrumentation   = "github.com/xenking/pos-billing/internal/domain/order"
)

// ErrEmptyItems is returned when a cart has no entries.
var ErrEmptyItems = errors.New("items required")

// MaxTotal is the largest order total a NUMERIC(14,2) column holds.
var MaxTotal = decimal.RequireFromString("999999999999.99")

// InvalidQuantityError indicates a cart entry whose quantity is not positive
// or too large.
type InvalidQuantityError struct {
	Index     int
	ProductID int64
	Reason    string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("item %d: quantity %s for product %d", e.Index, e.Reason, e.ProductID)
}

// InvalidPriceError indicates a cart entry with a price that cannot be
// stored: negative, finer than a cent or too large.
type InvalidPriceError struct {
	Index     int
	ProductID int64
	Reason    string
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("item %d: price %s for product %d", e.Index, e.Reason, e.ProductID)
}

// ValidationError reports an order-level field that cannot be stored.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// CartEntry is one client-supplied line of a cart. Price is trusted as sent,
// which allows point-of-sale overrides.
type CartEntry struct {
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	PaymentMethod string
	Items         []CartEntry
}

// ProductLookup resolves catalog products by identifier.
type ProductLookup interface {
	GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error)
}

// Service assembles orders from carts.
type Service struct {
	products ProductLookup
	orders   Repository
	now      func() time.Time

	tracer  trace.Tracer
	created metric.Int64Counter
	revenue metric.Float64Counter
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	now            func() time.Time
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithClock overrides the time source used for order numbers and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) { o.now = now }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *serviceOptions) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *serviceOptions) { o.meterProvider = mp }
}

// NewService creates an order Service.
func NewService(products ProductLookup, orders Repository, opts ...Option) *Service {
	o := serviceOptions{
		now:            time.Now,
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	meter := o.meterProvider.Meter(instrumentation)
	created, err := meter.Int64Counter("billing.orders.created",
		metric.WithDescription("Number of orders placed"),
	)
	if err != nil {
		created = noop.Int64Counter{}
	}
	revenue, err := meter.Float64Counter("billing.orders.revenue",
		metric.WithDescription("Sum of placed order totals"),
	)
	if err != nil {
		revenue = noop.Float64Counter{}
	}

	return &Service{
		products: products,
		orders:   orders,
		now:      o.now,
		tracer:   o.tracerProvider.Tracer(instrumentation),
		created:  created,
		revenue:  revenue,
	}
}

// Validate checks a request before anything is written. Prices are limited
// to whole cents so the stored total always equals the sum of its items.
func Validate(req PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	if utf8.RuneCountInString(req.PaymentMethod) > MaxPaymentMethodLen {
		return &ValidationError{
			Field:  "payment_method",
			Reason: fmt.Sprintf("must be at most %d characters", MaxPaymentMethodLen),
		}
	}
	for i, item := range req.Items {
		switch {
		case item.Quantity <= 0:
			return &InvalidQuantityError{Index: i, ProductID: item.ProductID, Reason: "must be greater than 0"}
		case item.Quantity > MaxQuantity:
			return &InvalidQuantityError{Index: i, ProductID: item.ProductID, Reason: fmt.Sprintf("must not exceed %d", MaxQuantity)}
		}
		if reason := product.CheckPrice(item.Price); reason != "" {
			return &InvalidPriceError{Index: i, ProductID: item.ProductID, Reason: reason}
		}
	}
	if Total(req.Items).GreaterThan(MaxTotal) {
		return &ValidationError{
			Field:  "total_amount",
			Reason: "must not exceed " + MaxTotal.StringFixed(2),
		}
	}
	return nil
}

// Total returns the sum of price × quantity over the cart.
func Total(items []CartEntry) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// PlaceOrder validates the cart, computes the total, captures product names
// and persists the order with its items in one step.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.Int("billing.order.items", len(req.Items))),
	)
	defer span.End()

	o, err := s.placeOrder(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("billing.order.id", o.ID),
		attribute.String("billing.order.number", o.Number),
	)
	return o, nil
}

func (s *Service) placeOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	names, err := s.productNames(ctx, req.Items)
	if err != nil {
		return nil, errors.Wrap(err, "resolve products")
	}

	items := make([]Item, len(req.Items))
	for i, entry := range req.Items {
		item := Item{
			ProductName: UnknownProductName,
			Quantity:    entry.Quantity,
			Price:       entry.Price,
		}
		if name, ok := names[entry.ProductID]; ok {
			id := entry.ProductID
			item.ProductID = &id
			item.ProductName = name
		}
		items[i] = item
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}

	createdAt := s.now().UTC()
	o := &Order{
		CreatedAt:     createdAt,
		Total:         Total(req.Items),
		PaymentMethod: paymentMethod,
		Items:         items,
		ItemCount:     len(items),
	}

	for attempt := 1; ; attempt++ {
		o.Number = Number(createdAt, attempt)
		err := s.orders.Create(ctx, o)
		if err == nil {
			break
		}
		if errors.Is(err, ErrDuplicateNumber) && attempt < maxNumberAttempts {
			zctx.From(ctx).Debug("Order number taken, retrying",
				zap.String("number", o.Number),
				zap.Int("attempt", attempt),
			)
			continue
		}
		return nil, errors.Wrap(err, "create order")
	}

	attrs := metric.WithAttributes(attribute.String("payment_method", o.PaymentMethod))
	s.created.Add(ctx, 1, attrs)
	s.revenue.Add(ctx, o.Total.InexactFloat64(), attrs)

	zctx.From(ctx).Info("Order placed",
		zap.Int64("id", o.ID),
		zap.String("number", o.Number),
		zap.String("total", o.Total.StringFixed(2)),
		zap.Int("items", len(o.Items)),
	)
	return o, nil
}

// productNames returns the current catalog name of every referenced product
// that still exists.
func (s *Service) productNames(ctx context.Context, items []CartEntry) (map[int64]string, error) {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names, nil
}
