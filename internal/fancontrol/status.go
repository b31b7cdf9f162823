package fancontrol

import (
	"encoding/json"
	"math"
	"strconv"
)

// StatusFloat is a float64 that survives JSON: critical-mode outputs can
// overflow to ±Inf, which encoding/json refuses. Non-finite values encode as
// the strings "+Inf", "-Inf" and "NaN".
type StatusFloat float64

func (f StatusFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *StatusFloat) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = StatusFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = StatusFloat(v)
	return nil
}
