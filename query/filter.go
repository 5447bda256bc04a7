// Package query turns submission search filters into a boolean predicate tree and
// translates that tree into SQL.
package query

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxLabelFilters bounds the number of label clauses in one search.
const MaxLabelFilters = 5

const dateLayout = "2006-01-02"

var (
	ErrInvalidFilter = errors.New("invalid filter")
	ErrInvalidPage   = errors.New("invalid page")
)

// LabelFilter matches submissions holding a score whose label text contains Label
// (case-insensitive) and whose value lies within the optional bounds.
type LabelFilter struct {
	Label string   `json:"label"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// Filters is the validated search input. Zero values mean "no constraint".
type Filters struct {
	MinDate       *time.Time
	MaxDate       *time.Time // inclusive
	ExpectedLabel string
	Labels        []LabelFilter
}

// ActiveLabels returns the label clauses with a non-blank label, trimmed.
func (f Filters) ActiveLabels() []LabelFilter {
	var out []LabelFilter
	for _, lf := range f.Labels {
		text := strings.TrimSpace(lf.Label)
		if text == "" {
			continue
		}
		lf.Label = text
		out = append(out, lf)
	}
	return out
}

// Validate checks the bounds of every clause.
func (f Filters) Validate() error {
	if f.MinDate != nil && f.MaxDate != nil && f.MinDate.After(*f.MaxDate) {
		return fmt.Errorf("%w: min_date is after max_date", ErrInvalidFilter)
	}

	active := f.ActiveLabels()
	if len(active) > MaxLabelFilters {
		return fmt.Errorf("%w: at most %d label filters are allowed", ErrInvalidFilter, MaxLabelFilters)
	}
	for _, lf := range active {
		if lf.Min != nil && (*lf.Min < 0 || *lf.Min > 1) {
			return fmt.Errorf("%w: min for %q must be between 0 and 1", ErrInvalidFilter, lf.Label)
		}
		if lf.Max != nil && (*lf.Max < 0 || *lf.Max > 1) {
			return fmt.Errorf("%w: max for %q must be between 0 and 1", ErrInvalidFilter, lf.Label)
		}
		if lf.Min != nil && lf.Max != nil && *lf.Min > *lf.Max {
			return fmt.Errorf("%w: min for %q is greater than max", ErrInvalidFilter, lf.Label)
		}
	}
	return nil
}

// ParseDate accepts YYYY-MM-DD or RFC3339. A date-only upper bound (endOfDay) covers the
// whole day. Blank input returns nil.
func ParseDate(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a date (expected YYYY-MM-DD or RFC3339)", ErrInvalidFilter, s)
	}
	t = t.UTC()
	return &t, nil
}
