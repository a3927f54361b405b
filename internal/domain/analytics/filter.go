package analytics

import "time"

// DateRange is an inclusive range of order creation timestamps.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls within the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// ParseRange builds the range [start 00:00:00, end 23:59:59] in UTC from two
// YYYY-MM-DD dates. Single-digit months and days are accepted. It returns false when either bound is missing or fails to
// parse; callers then apply no filter at all.
func ParseRange(start, end string) (DateRange, bool) {
	if start == "" || end == "" {
		return DateRange{}, false
	}
	from, err := time.ParseInLocation(filterLayout, start, time.UTC)
	if err != nil {
		return DateRange{}, false
	}
	to, err := time.ParseInLocation(filterLayout, end, time.UTC)
	if err != nil {
		return DateRange{}, false
	}
	return DateRange{
		From: from,
		To:   to.Add(23*time.Hour + 59*time.Minute + 59*time.Second),
	}, true
}
