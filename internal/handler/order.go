package handler

import (
	"io"
	"math"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pos-billing/internal/domain/order"
)

// CreateOrder places an order from a JSON cart:
//
//	{"items":[{"product_id":1,"quantity":2,"price":250}],"payment_method":"Card"}
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	req, err := decodePlaceOrder(r.Body)
	if err != nil {
		fail(w, r, err)
		return
	}

	o, err := h.placer.PlaceOrder(r.Context(), req)
	if err != nil {
		fail(w, r, errors.Wrap(err, "place order"))
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.Field("message", func(e *jx.Encoder) { e.Str("Order created") })
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("order_number", func(e *jx.Encoder) { e.Str(o.Number) })
		e.Field("total_amount", func(e *jx.Encoder) { money(e, o.Total) })
		e.ObjEnd()
	})
}

// ListOrders returns all orders newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		fail(w, r, errors.Wrap(err, "list orders"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, o := range orders {
			encodeOrderSummary(e, o)
		}
		e.ArrEnd()
	})
}

// GetOrder returns one order with its items.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		fail(w, r, errors.Wrapf(err, "get order %d", id))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, *o) })
}

// DeleteOrder removes an order and its items.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.orders.Delete(r.Context(), id); err != nil {
		fail(w, r, errors.Wrapf(err, "delete order %d", id))
		return
	}
	writeMessage(w, http.StatusOK, "Order deleted")
}

func decodePlaceOrder(body io.Reader) (order.PlaceOrderRequest, error) {
	var (
		req      order.PlaceOrderRequest
		hasItems bool
	)
	d := jx.Decode(body, 1024)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "items":
			hasItems = true
			if d.Next() != jx.Array {
				return invalid("items must be an array")
			}
			return d.Arr(func(d *jx.Decoder) error {
				entry, err := decodeCartEntry(d, len(req.Items))
				if err != nil {
					return err
				}
				req.Items = append(req.Items, entry)
				return nil
			})
		case "payment_method":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return invalid("payment_method must be a string")
			}
			req.PaymentMethod = v
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		var bad *badRequest
		if errors.As(err, &bad) {
			return req, err
		}
		return req, invalid("malformed JSON: %v", err)
	}
	if !hasItems {
		return req, invalid("items required")
	}
	return req, nil
}

// decodeCartEntry reads one cart line. product_id, quantity and price are
// all required.
func decodeCartEntry(d *jx.Decoder, idx int) (order.CartEntry, error) {
	var (
		entry                  order.CartEntry
		hasID, hasQty, hasCost bool
	)
	if d.Next() != jx.Object {
		return entry, invalid("item %d: must be an object", idx)
	}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "product_id":
			id, err := d.Int64()
			if err != nil {
				return invalid("item %d: product_id must be an integer", idx)
			}
			entry.ProductID, hasID = id, true
		case "quantity":
			qty, err := d.Float64()
			if err != nil || qty != math.Trunc(qty) || math.Abs(qty) > math.MaxInt32 {
				return invalid("item %d: quantity must be an integer", idx)
			}
			entry.Quantity, hasQty = int(qty), true
		case "price":
			price, err := decodeDecimal(d)
			if err != nil {
				return invalid("item %d: price must be a number", idx)
			}
			entry.Price, hasCost = price, true
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return entry, err
	}
	switch {
	case !hasID:
		return entry, invalid("item %d: product_id required", idx)
	case !hasQty:
		return entry, invalid("item %d: quantity required", idx)
	case !hasCost:
		return entry, invalid("item %d: price required", idx)
	}
	return entry, nil
}
