package analytics

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DashboardQuery carries the raw, optional date filter.
type DashboardQuery struct {
	StartDate string
	EndDate   string
}

// Service aggregates order data for charts and the dashboard.
type Service struct {
	repo     Repository
	products ProductCounter
}

// NewService creates an analytics Service.
func NewService(repo Repository, products ProductCounter) *Service {
	return &Service{repo: repo, products: products}
}

// RevenueSeries returns revenue per day for the earliest SeriesDays days in
// ascending date order. With no orders it returns a single NoDataLabel
// point valued zero.
func (s *Service) RevenueSeries(ctx context.Context) (*Series, error) {
	days, err := s.repo.DailyRevenue(ctx, SeriesDays)
	if err != nil {
		return nil, errors.Wrap(err, "daily revenue")
	}
	if len(days) == 0 {
		return &Series{
			Labels: []string{NoDataLabel},
			Data:   []decimal.Decimal{decimal.Zero},
		}, nil
	}

	out := &Series{
		Labels: make([]string, len(days)),
		Data:   make([]decimal.Decimal, len(days)),
	}
	for i, d := range days {
		out.Labels[i] = d.Day.Format(DateLayout)
		out.Data[i] = d.Total
	}
	return out, nil
}

// Dashboard computes order count, revenue and recent orders over the
// filtered set, plus the catalog-wide product count. An unusable date filter
// is ignored.
func (s *Service) Dashboard(ctx context.Context, q DashboardQuery) (*Dashboard, error) {
	var dr *DateRange
	if r, ok := ParseRange(q.StartDate, q.EndDate); ok {
		dr = &r
	}

	out := &Dashboard{Range: dr}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orders, err := s.repo.Orders(gctx, dr)
		if err != nil {
			return errors.Wrap(err, "filtered orders")
		}
		out.TotalOrders = len(orders)
		out.TotalRevenue = decimal.Zero
		for _, o := range orders {
			out.TotalRevenue = out.TotalRevenue.Add(o.Total)
		}
		if len(orders) > RecentOrders {
			orders = orders[:RecentOrders]
		}
		out.Recent = orders
		return nil
	})
	g.Go(func() error {
		n, err := s.products.Count(gctx)
		if err != nil {
			return errors.Wrap(err, "count products")
		}
		out.TotalProducts = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
