package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexInt decodes a JSON number or numeric string. Empty strings and null
// decode to 0; fractional values are truncated.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*f = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	if raw == "" {
		*f = 0
		return nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		*f = FlexInt(n)
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %q is not a number", ErrValidation, raw)
	}
	v = math.Trunc(v)
	if v >= float64(math.MaxInt) || v < float64(math.MinInt) {
		return fmt.Errorf("%w: %q is out of range", ErrValidation, raw)
	}
	*f = FlexInt(v)
	return nil
}

// Int returns the value as a plain int.
func (f FlexInt) Int() int { return int(f) }
