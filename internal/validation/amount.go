package validation

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount accepts a JSON number or a numeric string. Anything else decodes to NaN
// so the "finite" rule reports it as a field error instead of a body error.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = Amount(math.NaN())
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*a = Amount(math.NaN())
			return nil
		}
		*a = Amount(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*a = Amount(math.NaN())
		return nil
	}
	*a = Amount(f)
	return nil
}

// Float64 returns the amount, 0 for a nil receiver.
func (a *Amount) Float64() float64 {
	if a == nil {
		return 0
	}
	return float64(*a)
}
