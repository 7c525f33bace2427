package geo

import (
	"math"
	"testing"
)

func TestBoxOverlap(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Box
		dx, dy float64
		hit    bool
	}{
		{"disjoint", Box{0, 0, 10, 10}, Box{20, 0, 10, 10}, -10, 10, false},
		{"touching", Box{0, 0, 10, 10}, Box{10, 0, 10, 10}, 0, 10, false},
		{"partial", Box{0, 0, 10, 10}, Box{5, 8, 10, 10}, 5, 2, true},
		{"nested", Box{0, 0, 100, 100}, Box{10, 10, 5, 5}, 5, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dx, dy := tt.a.Overlap(tt.b)
			if dx != tt.dx || dy != tt.dy {
				t.Errorf("Overlap() = (%v, %v), want (%v, %v)", dx, dy, tt.dx, tt.dy)
			}
			if got := tt.a.Intersects(tt.b); got != tt.hit {
				t.Errorf("Intersects() = %v, want %v", got, tt.hit)
			}
		})
	}
}

func TestBoxUnionAndContains(t *testing.T) {
	a := Box{0, 0, 10, 10}
	b := Box{20, 5, 10, 10}
	u := a.Union(b)
	if u != (Box{0, 0, 30, 15}) {
		t.Errorf("Union() = %v, want {0 0 30 15}", u)
	}
	if !u.Contains(a, 0) || !u.Contains(b, 0) {
		t.Error("union should contain both inputs")
	}
	if u.Contains(Box{-1, 0, 5, 5}, 0) {
		t.Error("box sticking out on the left should not be contained")
	}
	if !u.Contains(Box{-1, 0, 5, 5}, 1) {
		t.Error("tolerance should absorb a 1 unit overhang")
	}
}

func TestInflate(t *testing.T) {
	got := Box{10, 10, 20, 20}.Inflate(5)
	if got != (Box{5, 5, 30, 30}) {
		t.Errorf("Inflate(5) = %v", got)
	}
}

func TestBounds(t *testing.T) {
	if _, ok := Bounds(nil); ok {
		t.Error("Bounds(nil) should report false")
	}
	b, ok := Bounds([]Box{{0, 0, 1, 1}, {-5, 3, 1, 1}})
	if !ok || b != (Box{-5, 0, 6, 4}) {
		t.Errorf("Bounds() = %v, %v", b, ok)
	}
}

func TestFinite(t *testing.T) {
	if Finite(math.NaN(), 3) != 3 {
		t.Error("NaN should fall back")
	}
	if Finite(math.Inf(-1), 4) != 4 {
		t.Error("-Inf should fall back")
	}
	if Finite(2, 4) != 2 {
		t.Error("finite values pass through")
	}
	p := Point{X: math.Inf(1), Y: 7}.Sanitize()
	if p != (Point{0, 7}) {
		t.Errorf("Sanitize() = %v", p)
	}
}
