package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexInt accepts a JSON number or a numeric string; form-backed clients send both.
// Use *FlexInt where an absent or null value must be told apart from zero.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" {
		return errors.New("empty number")
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", raw)
	}
	if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return fmt.Errorf("%q is not an integer", raw)
	}
	*f = FlexInt(n)
	return nil
}
