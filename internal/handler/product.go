package handler

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/pos-billing/internal/domain/product"
)

// ListProducts returns every product in the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		fail(w, r, errors.Wrap(err, "list products"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			encodeProduct(e, p)
		}
		e.ArrEnd()
	})
}

// CreateProduct adds a product from an urlencoded or multipart form. A
// multipart "image" file is stored as the product image once the fields
// are valid.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	u, up, err := h.decodeProductForm(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	for _, f := range []struct {
		name string
		set  bool
	}{
		{"name", u.Name.Set},
		{"category", u.Category.Set},
		{"price", u.Price.Set},
	} {
		if !f.set {
			fail(w, r, &product.ValidationError{Field: f.name, Reason: "required"})
			return
		}
	}

	p := u.Apply(product.Product{})
	if err := p.Validate(); err != nil {
		fail(w, r, err)
		return
	}
	if err := h.storeUpload(up); err != nil {
		fail(w, r, err)
		return
	}
	if err := h.products.Create(r.Context(), &p); err != nil {
		h.discardUpload(r, up)
		fail(w, r, errors.Wrap(err, "create product"))
		return
	}

	zctx.From(r.Context()).Info("Product created",
		zap.Int64("product_id", p.ID),
		zap.String("name", p.Name),
	)
	writeProduct(w, http.StatusCreated, "Product added!", p)
}

// UpdateProduct applies a partial update from a form or a JSON object.
// Fields that are not sent keep their stored value.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	var (
		u  product.Update
		up *upload
	)
	if isJSON(r) {
		u, err = decodeProductJSON(r.Body)
	} else {
		u, up, err = h.decodeProductForm(r)
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := u.Validate(); err != nil {
		fail(w, r, err)
		return
	}
	if err := h.storeUpload(up); err != nil {
		fail(w, r, err)
		return
	}

	p, err := h.products.Update(r.Context(), id, u)
	if err != nil {
		h.discardUpload(r, up)
		fail(w, r, errors.Wrapf(err, "update product %d", id))
		return
	}
	writeProduct(w, http.StatusOK, "Product updated", *p)
}

// DeleteProduct removes a product. Order items keep their captured name.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		fail(w, r, errors.Wrapf(err, "delete product %d", id))
		return
	}
	writeMessage(w, http.StatusOK, "Product deleted")
}

func writeProduct(w http.ResponseWriter, status int, msg string, p product.Product) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		e.Field("product", func(e *jx.Encoder) { encodeProduct(e, p) })
		e.ObjEnd()
	})
}

// decodeProductForm reads product fields from a form body. Only fields
// present in the form are set. A multipart image is returned unwritten and
// its public path is set as the image.
func (h *Handler) decodeProductForm(r *http.Request) (product.Update, *upload, error) {
	var u product.Update

	multipart := strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
	if multipart {
		r.Body = http.MaxBytesReader(nil, r.Body, h.maxUploadSize)
		if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
			return u, nil, invalid("malformed form: %v", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return u, nil, invalid("malformed form: %v", err)
	}

	form := r.PostForm
	if vs, ok := form["name"]; ok {
		u.Name = product.NewOpt(strings.TrimSpace(vs[0]))
	}
	if vs, ok := form["category"]; ok {
		u.Category = product.NewOpt(strings.TrimSpace(vs[0]))
	}
	if vs, ok := form["price"]; ok {
		price, err := parsePrice(vs[0])
		if err != nil {
			return u, nil, err
		}
		u.Price = product.NewOpt(price)
	}
	if vs, ok := form["image"]; ok && strings.TrimSpace(vs[0]) != "" {
		u.Image = product.NewOpt(strings.TrimSpace(vs[0]))
	}

	if !multipart {
		return u, nil, nil
	}
	up, err := h.formUpload(r, "image")
	if err != nil {
		return u, nil, err
	}
	if up != nil {
		u.Image = product.NewOpt(up.URL())
	}
	return u, up, nil
}

// decodeProductJSON reads a partial product object. Unknown keys are ignored
// and null leaves the field unchanged.
func decodeProductJSON(body io.Reader) (product.Update, error) {
	var u product.Update

	d := jx.Decode(body, 512)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		switch string(key) {
		case "name", "category", "image":
			v, err := d.Str()
			if err != nil {
				return invalid("%s must be a string", key)
			}
			v = strings.TrimSpace(v)
			switch string(key) {
			case "name":
				u.Name = product.NewOpt(v)
			case "category":
				u.Category = product.NewOpt(v)
			default:
				u.Image = product.NewOpt(v)
			}
		case "price":
			price, err := decodeDecimal(d)
			if err != nil {
				return err
			}
			u.Price = product.NewOpt(price)
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		var bad *badRequest
		if errors.As(err, &bad) {
			return u, err
		}
		return u, invalid("malformed JSON: %v", err)
	}
	return u, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, &product.ValidationError{Field: "price", Reason: "must be a number"}
	}
	return price, nil
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number:
		f, err := d.Float64()
		if err != nil {
			return decimal.Decimal{}, invalid("price must be a number")
		}
		return decimal.NewFromFloat(f), nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, invalid("price must be a number")
		}
		return parsePrice(s)
	default:
		return decimal.Decimal{}, invalid("price must be a number")
	}
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, invalid("invalid id %q", mux.Vars(r)["id"])
	}
	return id, nil
}
