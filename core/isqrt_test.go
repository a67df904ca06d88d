package core

import "testing"

func TestIsqrtPerfectSquares(t *testing.T) {
	cases := []struct{ n, want uint32 }{
		{0, 0},
		{1, 1},
		{4, 2},
		{9, 3},
		{10000, 100},
		{1 << 20, 1 << 10},
	}
	for _, c := range cases {
		if got := isqrt(c.n); got != c.want {
			t.Errorf("isqrt(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestIsqrtFloorsNonPerfectSquares(t *testing.T) {
	cases := []struct{ n, want uint32 }{
		{2, 1},
		{8, 2},
		{99, 9},
		{1000001, 1000},
	}
	for _, c := range cases {
		if got := isqrt(c.n); got != c.want {
			t.Errorf("isqrt(%d) = %d, want %d", c.n, got, c.want)
		}
		if got := isqrt(c.n); got*got > c.n {
			t.Errorf("isqrt(%d) = %d, but result squared exceeds n", c.n, got)
		}
	}
}
