package utils

import (
	"math"
	"strings"
)

// Clamp bounds value to [lo, hi]. NaN collapses to lo.
func Clamp(value, lo, hi float64) float64 {
	if math.IsNaN(value) {
		return lo
	}
	return math.Min(math.Max(value, lo), hi)
}

// Clamp01 bounds value to [0, 1].
func Clamp01(value float64) float64 {
	return Clamp(value, 0, 1)
}

// Mean returns the arithmetic mean of values and false when values is empty.
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values)), true
}

// TrimList trims each entry, drops empty ones and keeps at most limit items.
func TrimList(items []string, limit int) []string {
	out := make([]string, 0, min(len(items), limit))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, item)
	}
	return out
}
