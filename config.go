package weathermart

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RequestConfig is the config-driven request form: one source with its
// variable list, the dates, and any source-specific extra options.
type RequestConfig struct {
	Source    string   `json:"source" validate:"required"`
	Variables []string `json:"variables" validate:"required,min=1,dive,required"`
	Dates     []string `json:"dates" validate:"required,min=1,dive,required"`
	Kwargs    Kwargs   `json:"kwargs" validate:"-"`
}

// dateLayouts are accepted textual date forms, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a calendar timestamp in one of the accepted layouts.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q (want YYYY-MM-DD or RFC3339)", s)
}

// ParseDates parses a list of textual dates.
func ParseDates(ss []string) ([]time.Time, error) {
	out := make([]time.Time, len(ss))
	for i, s := range ss {
		t, err := ParseDate(s)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// normalizeDates deduplicates to unique UTC calendar days, sorted ascending.
// One cache entry exists per day, so two timestamps on the same day resolve
// to the same entry.
func normalizeDates(dates []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		u := d.UTC()
		day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
