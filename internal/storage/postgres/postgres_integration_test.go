//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/pos-billing/internal/domain/analytics"
	"github.com/xenking/pos-billing/internal/domain/order"
	"github.com/xenking/pos-billing/internal/domain/product"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "billing",
				"POSTGRES_PASSWORD": "billing",
				"POSTGRES_DB":       "billing",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() { _ = c.Terminate(context.Background()) }()

	host, err := c.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://billing:billing@%s:%s/billing?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	// Schema must be re-runnable on every start.
	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations rerun: %v", err)
	}

	return m.Run()
}

func resetDB(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`TRUNCATE order_items, orders, products RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func mustCreateProduct(t *testing.T, repo *ProductRepository, name, price string) product.Product {
	t.Helper()
	p := product.Product{
		Name:     name,
		Category: "Test",
		Price:    decimal.RequireFromString(price),
		Image:    product.DefaultImage,
	}
	require.NoError(t, repo.Create(context.Background(), &p))
	return p
}

func placeOrder(t *testing.T, svc *order.Service, entries ...order.CartEntry) *order.Order {
	t.Helper()
	o, err := svc.PlaceOrder(context.Background(), order.PlaceOrderRequest{Items: entries})
	require.NoError(t, err)
	return o
}

func newOrderService(products *ProductRepository, orders *OrderRepository, at time.Time) *order.Service {
	return order.NewService(products, orders, order.WithClock(func() time.Time { return at }))
}

func TestProductRepository_CRUD(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := NewProductRepository(testPool)

	p := mustCreateProduct(t, repo, "Veg Pizza", "400")
	assert.NotZero(t, p.ID)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Veg Pizza", got.Name)
	assert.True(t, decimal.NewFromInt(400).Equal(got.Price))

	// Partial update: only the price changes.
	updated, err := repo.Update(ctx, p.ID, product.Update{
		Price: product.NewOpt(decimal.RequireFromString("425.50")),
	})
	require.NoError(t, err)
	assert.Equal(t, "Veg Pizza", updated.Name)
	assert.Equal(t, "Test", updated.Category)
	assert.Equal(t, product.DefaultImage, updated.Image)
	assert.True(t, decimal.RequireFromString("425.50").Equal(updated.Price))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, product.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), product.ErrNotFound)

	_, err = repo.Update(ctx, p.ID, product.Update{Name: product.NewOpt("x")})
	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestProductRepository_Seed(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := NewProductRepository(testPool)

	seeded, err := product.SeedIfEmpty(ctx, repo)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = product.SeedIfEmpty(ctx, repo)
	require.NoError(t, err)
	assert.False(t, seeded)

	names, err := repo.Names(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Chicken Burger", "Veg Pizza", "Cola"}, names)

	exists, err := repo.NameExists(ctx, "cola")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestOrderRepository_CreateAndDelete(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	products := NewProductRepository(testPool)
	orders := NewOrderRepository(testPool)

	burger := mustCreateProduct(t, products, "Chicken Burger", "250")
	cola := mustCreateProduct(t, products, "Cola", "60")

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newOrderService(products, orders, at)

	first := placeOrder(t, svc,
		order.CartEntry{ProductID: burger.ID, Quantity: 2, Price: decimal.NewFromInt(250)},
		order.CartEntry{ProductID: cola.ID, Quantity: 1, Price: decimal.NewFromInt(60)},
	)
	// Same second: the number collides and is retried with a suffix.
	second := placeOrder(t, svc,
		order.CartEntry{ProductID: cola.ID, Quantity: 3, Price: decimal.NewFromInt(55)},
	)
	assert.Equal(t, "ORD-1704110400", first.Number)
	assert.Equal(t, "ORD-1704110400-2", second.Number)

	got, err := orders.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(560).Equal(got.Total))
	assert.True(t, at.Equal(got.CreatedAt), "created at: %s", got.CreatedAt)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 2, got.ItemCount)

	// Deleting a product keeps the captured name and drops the reference.
	require.NoError(t, products.Delete(ctx, burger.ID))
	got, err = orders.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chicken Burger", got.Items[0].ProductName)
	assert.Nil(t, got.Items[0].ProductID)

	// Deleting an order cascades to its items only.
	require.NoError(t, orders.Delete(ctx, first.ID))
	_, err = orders.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, order.ErrNotFound)
	assert.ErrorIs(t, orders.Delete(ctx, first.ID), order.ErrNotFound)

	var remaining int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT count(*) FROM order_items`).Scan(&remaining))
	assert.Equal(t, 1, remaining)

	list, err := orders.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, 1, list[0].ItemCount)
}

func TestOrderRepository_UnknownProduct(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	products := NewProductRepository(testPool)
	orders := NewOrderRepository(testPool)
	svc := newOrderService(products, orders, time.Now())

	o := placeOrder(t, svc,
		order.CartEntry{ProductID: 12345, Quantity: 1, Price: decimal.NewFromInt(10)},
	)

	got, err := orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, order.UnknownProductName, got.Items[0].ProductName)
	assert.Nil(t, got.Items[0].ProductID)
}

func TestAnalyticsRepository(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	products := NewProductRepository(testPool)
	orders := NewOrderRepository(testPool)
	repo := NewAnalyticsRepository(testPool)

	cola := mustCreateProduct(t, products, "Cola", "60")
	for d := 1; d <= 9; d++ {
		at := time.Date(2024, 1, d, 23, 59, 59, 0, time.UTC)
		placeOrder(t, newOrderService(products, orders, at),
			order.CartEntry{ProductID: cola.ID, Quantity: d, Price: decimal.NewFromInt(10)},
		)
	}
	// A second order on the first day.
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	placeOrder(t, newOrderService(products, orders, at),
		order.CartEntry{ProductID: cola.ID, Quantity: 1, Price: decimal.NewFromInt(5)},
	)

	days, err := repo.DailyRevenue(ctx, analytics.SeriesDays)
	require.NoError(t, err)
	require.Len(t, days, analytics.SeriesDays)
	assert.Equal(t, "2024-01-01", days[0].Day.Format(analytics.DateLayout))
	assert.True(t, decimal.NewFromInt(15).Equal(days[0].Total))
	assert.Equal(t, "2024-01-07", days[6].Day.Format(analytics.DateLayout))

	dr, ok := analytics.ParseRange("2024-01-01", "2024-01-01")
	require.True(t, ok)
	filtered, err := repo.Orders(ctx, &dr)
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.True(t, filtered[0].CreatedAt.After(filtered[1].CreatedAt))

	all, err := repo.Orders(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 10)

	svc := analytics.NewService(repo, products)
	dash, err := svc.Dashboard(ctx, analytics.DashboardQuery{StartDate: "2024-01-01", EndDate: "2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, 2, dash.TotalOrders)
	assert.True(t, decimal.NewFromInt(15).Equal(dash.TotalRevenue))
	assert.Equal(t, int64(1), dash.TotalProducts)
}
