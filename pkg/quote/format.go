package quote

import (
	"strconv"
	"strings"
)

// Format renders a successful quote as "<name> price is <value>".
func Format(name string, price float64) string {
	return name + " price is " + FormatValue(price)
}

// FormatValue prints the shortest decimal that round-trips to v and always
// keeps a fractional part, so 1 prints as "1.0" and 162.24388753441644
// prints unchanged.
func FormatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if strings.ContainsAny(s, ".NI") {
		return s
	}
	return s + ".0"
}
