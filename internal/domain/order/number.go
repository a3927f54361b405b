package order

import (
	"strconv"
	"time"
)

// NumberPrefix starts every order number.
const NumberPrefix = "ORD-"

// Number derives the order number for t. The first attempt yields
// ORD-<unix seconds>; later attempts append -<attempt> so that orders placed
// within the same second still get distinct numbers.
func Number(t time.Time, attempt int) string {
	n := NumberPrefix + strconv.FormatInt(t.Unix(), 10)
	if attempt <= 1 {
		return n
	}
	return n + "-" + strconv.Itoa(attempt)
}
