package sampling

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

var box = []r1.Interval{{Min: -1, Max: 1}, {Min: 0, Max: 2}, {Min: 0, Max: 0.5}}

func inBox(t *testing.T, x *mat.Dense) {
	t.Helper()
	rows, cols := x.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := x.At(i, j); v < box[j].Min || v > box[j].Max {
				t.Fatalf("point %d coordinate %d = %v outside [%v, %v]", i, j, v, box[j].Min, box[j].Max)
			}
		}
	}
}

func TestDrawSamplers(t *testing.T) {
	for _, name := range []string{Halton, LatinHypercube, Uniform} {
		t.Run(name, func(t *testing.T) {
			x, err := Draw(name, 64, box, 3)
			if err != nil {
				t.Fatalf("Draw returned an unexpected error: %v", err)
			}
			if r, c := x.Dims(); r != 64 || c != len(box) {
				t.Fatalf("Dims = (%d, %d); want (64, %d)", r, c, len(box))
			}
			inBox(t, x)

			again, _ := Draw(name, 64, box, 3)
			if !mat.Equal(x, again) {
				t.Error("same seed produced different points")
			}
		})
	}
}

func TestDrawRejectsBadInput(t *testing.T) {
	tests := []struct {
		description string
		sampler     string
		n           int
		ranges      []r1.Interval
	}{
		{"unknown sampler", "Sobol", 4, box},
		{"zero points", Halton, 0, box},
		{"empty domain", Halton, 4, nil},
		{"degenerate range", Halton, 4, []r1.Interval{{Min: 1, Max: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			if _, err := Draw(tt.sampler, tt.n, tt.ranges, 1); err == nil {
				t.Error("Draw did not return error")
			}
		})
	}
}

func TestDensity(t *testing.T) {
	w := Density([]float64{1, -3, 0, 0}, 1, 1)
	// mean |r| = 1
	want := []float64{2, 4, 1, 1}
	if !floats.EqualApprox(w, want, 1e-12) {
		t.Errorf("Density = %v; want %v", w, want)
	}
	if w := Density([]float64{0, 0}, 2, 0); !floats.Equal(w, []float64{1, 1}) {
		t.Errorf("Density of vanishing residual = %v; want uniform", w)
	}
}

func TestResidualBasedAdaptiveConcentratesOnLargeResidual(t *testing.T) {
	// Residual is large only where the first coordinate is positive.
	res := func(x *mat.Dense) ([]float64, error) {
		rows, _ := x.Dims()
		r := make([]float64, rows)
		for i := range r {
			if x.At(i, 0) > 0 {
				r[i] = 100
			}
		}
		return r, nil
	}
	opts := Options{Sampler: Halton, K: 2, C: 0, PoolFactor: 10, Seed: 5}
	x, err := ResidualBasedAdaptive(res, 50, box, opts)
	if err != nil {
		t.Fatalf("ResidualBasedAdaptive returned an unexpected error: %v", err)
	}
	inBox(t, x)
	for i := 0; i < 50; i++ {
		if x.At(i, 0) <= 0 {
			t.Fatalf("point %d has x0 = %v; want only high-residual points", i, x.At(i, 0))
		}
	}
}

func TestResidualBasedAdaptiveErrors(t *testing.T) {
	boom := errors.New("boom")
	failing := func(*mat.Dense) ([]float64, error) { return nil, boom }
	if _, err := ResidualBasedAdaptive(failing, 4, box, DefaultOptions()); !errors.Is(err, boom) {
		t.Errorf("error = %v; want wrapped %v", err, boom)
	}
	short := func(*mat.Dense) ([]float64, error) { return []float64{1}, nil }
	if _, err := ResidualBasedAdaptive(short, 4, box, DefaultOptions()); err == nil {
		t.Error("mismatched residual length did not return error")
	}
	if _, err := ResidualBasedAdaptive(nil, 4, box, DefaultOptions()); err == nil {
		t.Error("nil residual did not return error")
	}
}

func TestResidualBasedAdaptiveDistinctPoints(t *testing.T) {
	res := func(x *mat.Dense) ([]float64, error) {
		rows, _ := x.Dims()
		r := make([]float64, rows)
		for i := range r {
			r[i] = math.Sin(x.At(i, 0) * 3)
		}
		return r, nil
	}
	x, err := ResidualBasedAdaptive(res, 20, box, DefaultOptions())
	if err != nil {
		t.Fatalf("ResidualBasedAdaptive returned an unexpected error: %v", err)
	}
	seen := make(map[[3]float64]bool)
	for i := 0; i < 20; i++ {
		var p [3]float64
		copy(p[:], x.RawRowView(i))
		if seen[p] {
			t.Fatalf("point %v drawn twice", p)
		}
		seen[p] = true
	}
}
