package ticksize

import "testing"

func TestBithumbFloor(t *testing.T) {
	cases := []struct {
		name  string
		in    float64
		want  float64
	}{
		{"sub-unit uses 0.00001", 0.123456789, 0.12345},
		{"under 10 uses 0.001", 2.7726, 2.772},
		{"under 100 uses 0.01", 99.999, 99.99},
		{"under 5000 uses 1", 2772.9, 2772},
		{"under 10000 uses 5", 9383, 9380},
		{"under 50000 uses 10", 10397, 10390},
		{"under 100000 uses 50", 99949, 99900},
		{"under 500000 uses 100", 123456, 123400},
		{"under 1000000 uses 500", 999999, 999500},
		{"top bracket uses 1000", 1234567, 1234000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Bithumb.Floor(tc.in); got != tc.want {
				t.Errorf("Floor(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestBitgetFloor(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.98765, 0.9876},
		{5.4321, 5.432},
		{55.555, 55.55},
		{1234.56, 1234},
	}
	for _, tc := range cases {
		if got := Bitget.Floor(tc.in); got != tc.want {
			t.Errorf("Floor(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFloorProperties(t *testing.T) {
	inputs := []float64{0.000017, 0.5, 1.0015, 9.9999, 42.42, 4999.99, 5001, 49999, 123456.78, 2000000.5}

	for _, table := range []Table{Bithumb, Bitget} {
		for _, in := range inputs {
			floored := table.Floor(in)
			if floored > in {
				t.Errorf("Floor(%v) = %v exceeds input", in, floored)
			}
			if again := table.Floor(floored); again != floored {
				t.Errorf("Floor not idempotent: Floor(%v) = %v, Floor(Floor) = %v", in, floored, again)
			}
		}
	}
}

func TestFloorMonotonic(t *testing.T) {
	// Larger inputs never floor below a smaller input's floor, including
	// across bracket boundaries.
	inputs := []float64{0.9, 0.99999, 1, 1.001, 9.999, 10, 4999, 5000, 5004, 9999, 10000, 49999, 50000}
	prev := 0.0
	for _, in := range inputs {
		got := Bithumb.Floor(in)
		if got < prev {
			t.Fatalf("Floor(%v) = %v < previous floor %v", in, got, prev)
		}
		prev = got
	}
}

func TestFloorNonPositive(t *testing.T) {
	if got := Bithumb.Floor(0); got != 0 {
		t.Errorf("Floor(0) = %v, want 0", got)
	}
	if got := Bitget.Floor(-5); got != 0 {
		t.Errorf("Floor(-5) = %v, want 0", got)
	}
}
