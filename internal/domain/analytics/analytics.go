// Package analytics computes the revenue chart series and the filtered
// dashboard metrics.
package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/pos-billing/internal/domain/order"
)

const (
	// SeriesDays is the maximum number of days in the revenue series.
	SeriesDays = 7
	// RecentOrders is the number of orders listed on the dashboard.
	RecentOrders = 5
	// NoDataLabel labels the single point returned when there are no orders.
	NoDataLabel = "No Data"
	// DateLayout is the calendar date format of labels and filter bounds.
	DateLayout = "2006-01-02"

	// filterLayout parses filter bounds; months and days may omit the
	// leading zero.
	filterLayout = "2006-1-2"
)

// DailyRevenue is the summed order total of one calendar day.
type DailyRevenue struct {
	Day   time.Time
	Total decimal.Decimal
}

// Series is a chart-ready revenue series.
type Series struct {
	Labels []string
	Data   []decimal.Decimal
}

// Dashboard holds the metrics shown on the dashboard.
type Dashboard struct {
	Range         *DateRange
	TotalOrders   int
	TotalRevenue  decimal.Decimal
	TotalProducts int64
	Recent        []order.Order
}

// Repository provides the read queries the aggregator needs.
type Repository interface {
	// DailyRevenue groups orders by UTC calendar day in ascending order and
	// returns at most limit days.
	DailyRevenue(ctx context.Context, limit int) ([]DailyRevenue, error)
	// Orders returns orders created within r, or all orders when r is nil,
	// newest first.
	Orders(ctx context.Context, r *DateRange) ([]order.Order, error)
}

// ProductCounter counts catalog products.
type ProductCounter interface {
	Count(ctx context.Context) (int64, error)
}
