package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pos-billing/internal/domain/order"
	"github.com/xenking/pos-billing/internal/domain/product"
)

// badRequest reports a malformed request body or parameter.
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

// fail maps err to a JSON error response. Unexpected errors are logged and
// reported as 500 without details.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	if msg, ok := clientMessage(err); ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	switch {
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, product.ErrNotFound.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, order.ErrNotFound.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// clientMessage returns the message of a validation error in err's chain
// without the wrapping context.
func clientMessage(err error) (string, bool) {
	var (
		bad      *badRequest
		field    *product.ValidationError
		quantity *order.InvalidQuantityError
		price    *order.InvalidPriceError
		request  *order.ValidationError
	)
	switch {
	case errors.As(err, &bad):
		return bad.Error(), true
	case errors.As(err, &field):
		return field.Error(), true
	case errors.As(err, &quantity):
		return quantity.Error(), true
	case errors.As(err, &price):
		return price.Error(), true
	case errors.As(err, &request):
		return request.Error(), true
	case errors.Is(err, order.ErrEmptyItems):
		return order.ErrEmptyItems.Error(), true
	}
	return "", false
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		e.ObjEnd()
	})
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		e.ObjEnd()
	})
}
