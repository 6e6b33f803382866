package portfolio

import "math"

// Mean calculates the arithmetic mean
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Stddev calculates the population standard deviation
func Stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))

	return math.Sqrt(variance)
}

// HHI is the Herfindahl index: the sum of squared shares
func HHI(shares []float64) float64 {
	sum := 0.0
	for _, s := range shares {
		sum += s * s
	}
	return sum
}

// Shares converts counts to fractions of their total
func Shares(counts []float64) []float64 {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	shares := make([]float64, len(counts))
	if total == 0 {
		return shares
	}
	for i, c := range counts {
		shares[i] = c / total
	}
	return shares
}

// LinearRegression fits y = slope*x + intercept by least squares and returns
// the slope and the coefficient of determination
func LinearRegression(xs, ys []float64) (slope, r2 float64) {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0, 0
	}

	meanX, meanY := Mean(xs), Mean(ys)
	var sxx, syy, sxy float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 {
		return 0, 0
	}

	slope = sxy / sxx
	if syy == 0 {
		return slope, 0
	}
	r := sxy / math.Sqrt(sxx*syy)
	return slope, r * r
}

// ClampFloat64 constrains a value to a range
func ClampFloat64(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// percent returns part/total*100, or zero for an empty total
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
