package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pos-billing/internal/domain/analytics"
	"github.com/xenking/pos-billing/internal/domain/order"
)

const (
	dailyRevenueSQL = `SELECT (created_at AT TIME ZONE 'UTC')::date AS day, SUM(total_amount)
		FROM orders GROUP BY day ORDER BY day LIMIT $1`

	listOrdersInRangeSQL = `SELECT ` + orderSummaryColumns + ` FROM orders o
		WHERE o.created_at BETWEEN $1 AND $2
		ORDER BY o.created_at DESC, o.id DESC`
)

var _ analytics.Repository = (*AnalyticsRepository)(nil)

// AnalyticsRepository implements analytics.Repository backed by PostgreSQL.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository returns an AnalyticsRepository that uses the given pool.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// DailyRevenue sums order totals per UTC day, earliest days first.
func (r *AnalyticsRepository) DailyRevenue(ctx context.Context, limit int) ([]analytics.DailyRevenue, error) {
	rows, err := r.pool.Query(ctx, dailyRevenueSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("querying daily revenue: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (analytics.DailyRevenue, error) {
		var d analytics.DailyRevenue
		err := row.Scan(&d.Day, &d.Total)
		return d, err
	})
}

// Orders returns the orders created within dr (all orders when dr is nil),
// newest first.
func (r *AnalyticsRepository) Orders(ctx context.Context, dr *analytics.DateRange) ([]order.Order, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if dr == nil {
		rows, err = r.pool.Query(ctx, listOrdersSQL)
	} else {
		rows, err = r.pool.Query(ctx, listOrdersInRangeSQL, dr.From, dr.To)
	}
	if err != nil {
		return nil, fmt.Errorf("listing orders for dashboard: %w", err)
	}
	return pgx.CollectRows(rows, scanOrderSummary)
}
