package models

import "math"

// Hours is an amount of collaboration time in hours. Amounts are quantized
// to quarter-hour granularity: the fractional part must be one of
// 0, 0.25, 0.50 or 0.75.
type Hours float64

// Quantized reports whether the amount is non-negative and falls on a
// quarter-hour boundary.
func (h Hours) Quantized() bool {
	if h < 0 {
		return false
	}
	q := float64(h) * 4
	return q == math.Trunc(q)
}

// Float64 returns the amount as a plain float64.
func (h Hours) Float64() float64 {
	return float64(h)
}
