// Package currency normalizes Indian-format money strings into rupee amounts.
// The same parser is used by the extractor and the enrichment engine.
package currency

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Magnitude multipliers in rupees
var (
	Crore    = decimal.NewFromInt(10_000_000)
	Lakh     = decimal.NewFromInt(100_000)
	Thousand = decimal.NewFromInt(1_000)
)

var (
	// strips symbols, grouping separators and whitespace
	cleanPattern  = regexp.MustCompile(`[₹$,\s]`)
	prefixPattern = regexp.MustCompile(`^(INR|RS\.?)`)
	amountPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)(CRORES?|CR|LAKHS?|LACS?|THOUSAND|K)?`)
)

// ParseDecimal returns the normalized amount, or false when the string holds no number
func ParseDecimal(value string) (decimal.Decimal, bool) {
	if strings.TrimSpace(value) == "" {
		return decimal.Zero, false
	}

	clean := cleanPattern.ReplaceAllString(strings.ToUpper(value), "")
	clean = prefixPattern.ReplaceAllString(clean, "")

	match := amountPattern.FindStringSubmatch(clean)
	if match == nil {
		return decimal.Zero, false
	}

	number, err := decimal.NewFromString(match[1])
	if err != nil {
		return decimal.Zero, false
	}

	switch unit := match[2]; {
	case strings.HasPrefix(unit, "CR"):
		number = number.Mul(Crore)
	case strings.HasPrefix(unit, "LAKH"), strings.HasPrefix(unit, "LAC"):
		number = number.Mul(Lakh)
	case unit == "THOUSAND", unit == "K":
		number = number.Mul(Thousand)
	}

	return number, true
}

// Parse returns the amount in rupees, or nil when no number is present
func Parse(value string) *float64 {
	amount, ok := ParseDecimal(value)
	if !ok {
		return nil
	}
	f := amount.InexactFloat64()
	return &f
}

// ToCrore converts rupees to crore
func ToCrore(rupees float64) float64 {
	return decimal.NewFromFloat(rupees).Div(Crore).InexactFloat64()
}

// Sum adds the parsed amounts of the given strings, skipping unparseable ones
func Sum(values ...string) float64 {
	total := decimal.Zero
	for _, v := range values {
		if amount, ok := ParseDecimal(v); ok {
			total = total.Add(amount)
		}
	}
	return total.InexactFloat64()
}
