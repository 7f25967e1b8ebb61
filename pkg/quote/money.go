package quote

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vnykmshr/fanout/pkg/common/errors"
)

// Convert multiplies price by an exchange rate and rounds to cents.
func Convert(price, rate float64) float64 {
	return decimal.NewFromFloat(price).
		Mul(decimal.NewFromFloat(rate)).
		Round(2).
		InexactFloat64()
}

// Code is a discount tier. Its value is the percentage taken off.
type Code int

const (
	None     Code = 0
	Silver   Code = 5
	Gold     Code = 10
	Platinum Code = 15
	Diamond  Code = 20
)

var codeNames = map[Code]string{
	None:     "NONE",
	Silver:   "SILVER",
	Gold:     "GOLD",
	Platinum: "PLATINUM",
	Diamond:  "DIAMOND",
}

// Codes lists every discount code from smallest to largest.
var Codes = []Code{None, Silver, Gold, Platinum, Diamond}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// Percentage returns the discount in percent.
func (c Code) Percentage() int {
	return int(c)
}

// ParseCode parses a code name, case-insensitively.
func ParseCode(s string) (Code, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, code := range Codes {
		if codeNames[code] == upper {
			return code, nil
		}
	}
	return None, errors.NewValidationError("quote", "code", s, "unknown discount code").
		WithHint("use one of NONE, SILVER, GOLD, PLATINUM, DIAMOND")
}

// Apply takes the code's percentage off price and rounds to cents.
func Apply(price float64, code Code) float64 {
	factor := decimal.NewFromInt(int64(100 - code.Percentage())).Div(decimal.NewFromInt(100))
	return decimal.NewFromFloat(price).Mul(factor).Round(2).InexactFloat64()
}
