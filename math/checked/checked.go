/*
Package checked implements int64 arithmetic with overflow checks.
The gas meter uses it so that a hostile price or limit can never
wrap a counter around.
*/
package checked

import "math"

// AddInt64 returns a + b
// with an integer overflow check.
func AddInt64(a, b int64) (sum int64, ok bool) {
	if (b > 0 && a > math.MaxInt64-b) ||
		(b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

// SubInt64 returns a - b
// with an integer overflow check.
func SubInt64(a, b int64) (diff int64, ok bool) {
	if (b > 0 && a < math.MinInt64+b) ||
		(b < 0 && a > math.MaxInt64+b) {
		return 0, false
	}
	return a - b, true
}

// SatAddInt64 returns a + b clamped to the int64 range.
func SatAddInt64(a, b int64) int64 {
	if sum, ok := AddInt64(a, b); ok {
		return sum
	}
	if b > 0 {
		return math.MaxInt64
	}
	return math.MinInt64
}

// SatSubInt64 returns a - b clamped to the int64 range.
func SatSubInt64(a, b int64) int64 {
	if diff, ok := SubInt64(a, b); ok {
		return diff
	}
	if b > 0 {
		return math.MinInt64
	}
	return math.MaxInt64
}

// MinInt64 returns the smaller of a and b.
func MinInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
