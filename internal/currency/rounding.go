// Package currency holds the rupiah rounding primitives every persisted
// amount flows through. Intermediate math may use floats or decimals; the
// final assignment to a stored field always passes one of these helpers.
package currency

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundToNearestThousand rounds half-up to the nearest 1,000 rupiah.
func RoundToNearestThousand(amount int64) int64 {
	if amount < 0 {
		return -RoundToNearestThousand(-amount)
	}
	return ((amount + 500) / 1000) * 1000
}

// Py2Round rounds half away from zero at the given number of decimal
// places. Rate-level arithmetic depends on this tie-break, not the
// round-half-even behavior of math.Round on intermediate representations.
func Py2Round(value float64, places int32) float64 {
	out, _ := decimal.NewFromFloat(value).Round(places).Float64()
	return out
}

// FloorInt truncates a non-negative float amount down to integer rupiah.
func FloorInt(value float64) int64 {
	return int64(math.Floor(value))
}

// FloorToNearestThousand floors to the nearest 1,000 rupiah. Used for
// display amounts that must never overstate what the customer pays.
func FloorToNearestThousand(amount int64) int64 {
	if amount < 0 {
		return -((-amount + 999) / 1000) * 1000
	}
	return (amount / 1000) * 1000
}
