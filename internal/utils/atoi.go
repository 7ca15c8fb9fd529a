// Package utils holds tiny helpers with no domain knowledge.
package utils

import "strconv"

// AtoiDefault parses s as an int, falling back to def when s is empty or
// not a plain integer. Handlers use it for optional numeric query
// parameters such as limit, where absent and malformed both mean
// "use the default":
//
//	limit := utils.AtoiDefault(c.Query("limit"), 0)
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
