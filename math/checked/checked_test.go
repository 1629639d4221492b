package checked

import (
	"math"
	"testing"
)

func TestInt64(t *testing.T) {
	cases := []struct {
		name       string
		f          func(a, b int64) (int64, bool)
		a, b, want int64
		wantOk     bool
	}{
		{"add", AddInt64, 2, 3, 5, true},
		{"add", AddInt64, 2, -3, -1, true},
		{"add", AddInt64, math.MaxInt64, 1, 0, false},
		{"add", AddInt64, math.MinInt64, -1, 0, false},
		{"sub", SubInt64, 2, 3, -1, true},
		{"sub", SubInt64, -2, -3, 1, true},
		{"sub", SubInt64, math.MinInt64, 1, 0, false},
		{"sub", SubInt64, 0, math.MinInt64, 0, false},
	}

	for _, c := range cases {
		got, gotOk := c.f(c.a, c.b)
		if got != c.want || gotOk != c.wantOk {
			t.Errorf("%s(%d, %d) = %d, %v want %d, %v", c.name, c.a, c.b, got, gotOk, c.want, c.wantOk)
		}
	}
}

func TestSaturating(t *testing.T) {
	cases := []struct {
		name       string
		f          func(a, b int64) int64
		a, b, want int64
	}{
		{"satadd", SatAddInt64, 2, 3, 5},
		{"satadd", SatAddInt64, math.MaxInt64, 1, math.MaxInt64},
		{"satadd", SatAddInt64, math.MinInt64, -1, math.MinInt64},
		{"satsub", SatSubInt64, 100, 30, 70},
		{"satsub", SatSubInt64, math.MinInt64, 1, math.MinInt64},
		{"satsub", SatSubInt64, math.MaxInt64, -1, math.MaxInt64},
		{"min", MinInt64, 3, -1, -1},
	}
	for _, c := range cases {
		if got := c.f(c.a, c.b); got != c.want {
			t.Errorf("%s(%d, %d) = %d want %d", c.name, c.a, c.b, got, c.want)
		}
	}
}
