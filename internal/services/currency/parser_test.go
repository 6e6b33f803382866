package currency

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "crore short form", input: "₹1.5 Cr", want: 15_000_000},
		{name: "plain rupees", input: "15000000", want: 15_000_000},
		{name: "crore long form", input: "₹1 Crore", want: 10_000_000},
		{name: "lakh", input: "₹50 Lakh", want: 5_000_000},
		{name: "lakhs plural", input: "2.5 lakhs", want: 250_000},
		{name: "indian grouping", input: "₹ 5,00,000", want: 500_000},
		{name: "rs prefix", input: "Rs. 10,000", want: 10_000},
		{name: "inr prefix", input: "INR 3 crore", want: 30_000_000},
		{name: "thousand", input: "12 thousand", want: 12_000},
		{name: "k suffix", input: "$25K", want: 25_000},
		{name: "decimals kept", input: "₹1,234.50", want: 1234.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			require.NotNil(t, got)
			if math.Abs(*got-tt.want) > 0.0001 {
				t.Errorf("Parse(%q) = %f, want %f", tt.input, *got, tt.want)
			}
		})
	}
}

func TestParse_NoNumber(t *testing.T) {
	for _, input := range []string{"", "   ", "-", "N/A", "₹ Cr", "Lakh"} {
		assert.Nil(t, Parse(input), "input %q", input)
	}
}

func TestParse_Consistent(t *testing.T) {
	a := Parse("₹1.5 Cr")
	b := Parse("15000000")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, *a, *b)

	// same input, same output
	for i := 0; i < 5; i++ {
		assert.Equal(t, *a, *Parse("₹1.5 Cr"))
	}
}

func TestToCrore(t *testing.T) {
	assert.InDelta(t, 1.5, ToCrore(15_000_000), 1e-9)
	assert.InDelta(t, 0, ToCrore(0), 1e-9)
}

func TestSum(t *testing.T) {
	assert.InDelta(t, 5_100_000, Sum("₹50 Lakh", "1 lakh", "-", ""), 1e-6)
}
