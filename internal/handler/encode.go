package handler

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-billing/internal/domain/analytics"
	"github.com/xenking/pos-billing/internal/domain/order"
	"github.com/xenking/pos-billing/internal/domain/product"
)

// timestampLayout formats order creation times in responses.
const timestampLayout = "2006-01-02 15:04:05"

func money(e *jx.Encoder, d decimal.Decimal) {
	e.Float64(d.Round(2).InexactFloat64())
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.Field("id", func(e *jx.Encoder) { e.Int64(p.ID) })
	e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
	e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
	e.Field("price", func(e *jx.Encoder) { money(e, p.Price) })
	e.Field("image", func(e *jx.Encoder) { e.Str(p.Image) })
	e.ObjEnd()
}

func itemCount(o order.Order) int {
	if o.Items != nil {
		return len(o.Items)
	}
	return o.ItemCount
}

// encodeOrderFields writes the summary fields of o into an open object.
func encodeOrderFields(e *jx.Encoder, o order.Order) {
	e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
	e.Field("order_number", func(e *jx.Encoder) { e.Str(o.Number) })
	e.Field("date_created", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(timestampLayout)) })
	e.Field("total_amount", func(e *jx.Encoder) { money(e, o.Total) })
	e.Field("payment_method", func(e *jx.Encoder) { e.Str(o.PaymentMethod) })
	e.Field("item_count", func(e *jx.Encoder) { e.Int(itemCount(o)) })
}

func encodeOrderSummary(e *jx.Encoder, o order.Order) {
	e.ObjStart()
	encodeOrderFields(e, o)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.ObjStart()
	encodeOrderFields(e, o)
	e.Field("items", func(e *jx.Encoder) {
		e.ArrStart()
		for _, it := range o.Items {
			e.ObjStart()
			e.Field("id", func(e *jx.Encoder) { e.Int64(it.ID) })
			e.Field("product_id", func(e *jx.Encoder) {
				if it.ProductID == nil {
					e.Null()
					return
				}
				e.Int64(*it.ProductID)
			})
			e.Field("product_name", func(e *jx.Encoder) { e.Str(it.ProductName) })
			e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
			e.Field("price", func(e *jx.Encoder) { money(e, it.Price) })
			e.Field("subtotal", func(e *jx.Encoder) { money(e, it.Subtotal()) })
			e.ObjEnd()
		}
		e.ArrEnd()
	})
	e.ObjEnd()
}

func encodeSeries(e *jx.Encoder, s analytics.Series) {
	e.ObjStart()
	e.Field("labels", func(e *jx.Encoder) {
		e.ArrStart()
		for _, l := range s.Labels {
			e.Str(l)
		}
		e.ArrEnd()
	})
	e.Field("data", func(e *jx.Encoder) {
		e.ArrStart()
		for _, v := range s.Data {
			money(e, v)
		}
		e.ArrEnd()
	})
	e.ObjEnd()
}

func encodeDashboard(e *jx.Encoder, d analytics.Dashboard) {
	e.ObjStart()
	if d.Range != nil {
		e.Field("start_date", func(e *jx.Encoder) { e.Str(d.Range.From.Format(analytics.DateLayout)) })
		e.Field("end_date", func(e *jx.Encoder) { e.Str(d.Range.To.Format(analytics.DateLayout)) })
	}
	e.Field("total_orders", func(e *jx.Encoder) { e.Int(d.TotalOrders) })
	e.Field("total_revenue", func(e *jx.Encoder) { money(e, d.TotalRevenue) })
	e.Field("total_products", func(e *jx.Encoder) { e.Int64(d.TotalProducts) })
	e.Field("recent_orders", func(e *jx.Encoder) {
		e.ArrStart()
		for _, o := range d.Recent {
			encodeOrderSummary(e, o)
		}
		e.ArrEnd()
	})
	e.ObjEnd()
}

// formatTime renders t for the dashboard table.
func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
