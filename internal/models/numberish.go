package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Numberish is an identifier the hub may send either as a JSON number or as
// a numeric string. It keeps the textual form and coerces on demand.
type Numberish string

func (n *Numberish) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		*n = ""
		return nil
	}
	*n = Numberish(s)
	return nil
}

func (n Numberish) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return []byte(n), nil
	}
	return json.Marshal(string(n))
}

// Int64 coerces to an integer, truncating a fractional textual form.
func (n Numberish) Int64() (int64, error) {
	if v, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func (n Numberish) String() string { return string(n) }
