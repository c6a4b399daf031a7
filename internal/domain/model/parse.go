package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Placeholders that mean "no measurement" in the source sheet.
var missingTokens = map[string]struct{}{ //nolint:gochecknoglobals // lookup table
	"":    {},
	"nan": {},
	"n/a": {},
	"na":  {},
	"-":   {},
}

// Date layouts accepted by ParseDate, most specific first.
var dateLayouts = []string{ //nolint:gochecknoglobals // lookup table
	time.RFC3339,
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
}

// ParseValue coerces a raw cell to a metric value. Missing placeholders
// yield an absent value and no error; anything else that is not a number
// yields an error wrapping ErrInvalidMetricValue.
func ParseValue(field, raw string) (Optional[float64], error) {
	s := strings.TrimSpace(raw)
	if _, ok := missingTokens[strings.ToLower(s)]; ok {
		return None[float64](), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return None[float64](), fmt.Errorf("%w: %s=%q", ErrInvalidMetricValue, field, raw)
	}
	return Measure(f), nil
}

// ParseDate parses an observation date.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}
