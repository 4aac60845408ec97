package flickr

import (
	"math/rand/v2"
	"testing"
)

func TestClampPages(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{500, 190},
		{190, 190},
		{191, 190},
		{50, 50},
		{1, 1},
		{0, 0},
	}
	for _, tt := range tests {
		if got := ClampPages(tt.in); got != tt.want {
			t.Errorf("ClampPages(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRandomPage(t *testing.T) {
	t.Run("stays within bounds", func(t *testing.T) {
		r := rand.New(rand.NewPCG(1, 2))
		for _, maxPage := range []int{1, 2, 50, MaxPage} {
			for range 1000 {
				p := RandomPage(maxPage, r.IntN)
				if p < 1 || p > maxPage {
					t.Fatalf("RandomPage(%d) = %d, want within [1, %d]", maxPage, p, maxPage)
				}
			}
		}
	})

	t.Run("reaches both ends", func(t *testing.T) {
		if got := RandomPage(190, func(int) int { return 0 }); got != 1 {
			t.Errorf("lowest pick = %d, want 1", got)
		}
		if got := RandomPage(190, func(n int) int { return n - 1 }); got != 190 {
			t.Errorf("highest pick = %d, want 190", got)
		}
	})

	t.Run("no pages", func(t *testing.T) {
		called := false
		got := RandomPage(0, func(int) int { called = true; return 0 })
		if got != 0 || called {
			t.Errorf("RandomPage(0) = %d, picker called = %v; want 0 without picking", got, called)
		}
	})
}
