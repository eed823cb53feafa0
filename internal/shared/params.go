package shared

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ErrInvalidID is returned for a route id that is not a positive integer.
var ErrInvalidID = errors.New("invalid id")

// URLParamID reads a positive integer chi route parameter.
func URLParamID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// FormInt64 parses an optional integer form value; blank or junk reads as 0.
func FormInt64(r *http.Request, key string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(r.PostFormValue(key)), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormInt parses an optional integer form value; blank or junk reads as 0.
func FormInt(r *http.Request, key string) int {
	return int(FormInt64(r, key))
}

// FormFloat parses an optional decimal form value with ParseAmount.
func FormFloat(r *http.Request, key string) float64 {
	return ParseAmount(r.PostFormValue(key))
}

// ParseAmount parses a typed amount. Thousands separators ("1.250.000") are
// dropped and a comma is read as the decimal mark. Blank or junk reads as 0.
func ParseAmount(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if strings.Count(raw, ".") > 1 || (strings.Contains(raw, ".") && strings.Contains(raw, ",")) {
		raw = strings.ReplaceAll(raw, ".", "")
	}
	raw = strings.ReplaceAll(raw, ",", ".")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}
