package loan

import "math"

// TenureRange caps the offered duration for an amount band. Ranges come from
// the tenure-option feature setting, sorted ascending by amount.
type TenureRange struct {
	MinAmount   int64
	MaxAmount   int64
	MaxDuration int
}

// DurationOptions derives the offered tenor for a requested amount: the
// amount's share of the set limit scaled to the product-line maximum, clamped
// to the product-line bounds, then capped by the first matching tenure range.
// The first range's lower bound is inclusive; later ranges are exclusive
// below. First match wins.
func DurationOptions(amount, setLimit int64, minDuration, maxDuration int, ranges []TenureRange) int {
	if minDuration < 1 {
		minDuration = 1
	}
	duration := maxDuration
	if setLimit > 0 {
		duration = int(math.Ceil(float64(amount) * float64(maxDuration) / float64(setLimit)))
	}
	if duration < minDuration {
		duration = minDuration
	}
	if duration > maxDuration {
		duration = maxDuration
	}

	for index, r := range ranges {
		matched := false
		if index == 0 {
			matched = amount >= r.MinAmount && amount <= r.MaxAmount
		} else {
			matched = amount > r.MinAmount && amount <= r.MaxAmount
		}
		if matched {
			if r.MaxDuration > 0 && duration > r.MaxDuration {
				duration = r.MaxDuration
			}
			break
		}
	}

	if duration < minDuration {
		duration = minDuration
	}
	return duration
}

// AvailableDurations lists every offerable tenor from the minimum up to the
// capped duration for the amount.
func AvailableDurations(amount, setLimit int64, minDuration, maxDuration int, ranges []TenureRange) []int {
	top := DurationOptions(amount, setLimit, minDuration, maxDuration, ranges)
	if minDuration < 1 {
		minDuration = 1
	}
	out := make([]int, 0, top-minDuration+1)
	for d := minDuration; d <= top; d++ {
		out = append(out, d)
	}
	return out
}
