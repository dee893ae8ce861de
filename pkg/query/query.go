package query

import (
	"strconv"
	"strings"
)

// Int parses a single integer query value. It returns (0, false) when the
// value is empty or not a valid integer.
func Int(val string) (int, bool) {
	if val == "" {
		return 0, false
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Bool parses a single boolean query value ("true"/"false", "1"/"0").
// Empty or unrecognised values return the provided default.
func Bool(val string, fallback bool) bool {
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

// StringSlice parses a single comma-separated query string
// into a trimmed slice of strings.
func StringSlice(val string) []string {
	if val == "" {
		return nil
	}
	var res []string
	for _, v := range strings.Split(val, ",") {
		clean := strings.TrimSpace(v)
		if clean != "" {
			res = append(res, clean)
		}
	}
	return res
}
