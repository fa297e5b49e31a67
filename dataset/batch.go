package dataset

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Mask columns. Asset i owns columns TopColumn(i) and BottomColumn(i).
const (
	InteriorColumn = 0
	InitialColumn  = 1
)

// TopColumn is the mask column of the top (x_i = XMax) boundary of asset i.
func TopColumn(i int) int { return 2 + 2*i }

// BottomColumn is the mask column of the bottom (x_i = XMin) boundary of asset i.
func BottomColumn(i int) int { return 3 + 2*i }

// MaskWidth is the number of point types for n assets.
func MaskWidth(nAssets int) int { return 2 + 2*nAssets }

// Batch is a set of collocation points with their targets and point types.
// X is [batch, NAssets+1] float64, Y is [batch] float64 and Mask is
// [batch, 2+2*NAssets] bool.
type Batch struct {
	X    *tensor.Dense
	Y    *tensor.Dense
	Mask *tensor.Dense
}

// NewBatch copies rows into a Batch, checking that all shapes agree.
func NewBatch(x [][]float64, y []float64, mask [][]bool) (*Batch, error) {
	n := len(x)
	if n == 0 {
		return nil, fmt.Errorf("dataset: empty batch")
	}
	if len(y) != n || len(mask) != n {
		return nil, fmt.Errorf("dataset: %d points, %d targets, %d mask rows", n, len(y), len(mask))
	}
	dim, width := len(x[0]), len(mask[0])
	if dim < 2 {
		return nil, fmt.Errorf("dataset: points need at least one asset and time, got width %d", dim)
	}
	if width != MaskWidth(dim-1) {
		return nil, fmt.Errorf("dataset: mask width %d, want %d", width, MaskWidth(dim-1))
	}
	xs := make([]float64, 0, n*dim)
	ms := make([]bool, 0, n*width)
	for i := 0; i < n; i++ {
		if len(x[i]) != dim || len(mask[i]) != width {
			return nil, fmt.Errorf("dataset: ragged row %d", i)
		}
		xs = append(xs, x[i]...)
		ms = append(ms, mask[i]...)
	}
	return &Batch{
		X:    tensor.New(tensor.WithShape(n, dim), tensor.WithBacking(xs)),
		Y:    tensor.New(tensor.WithShape(n), tensor.WithBacking(append([]float64(nil), y...))),
		Mask: tensor.New(tensor.WithShape(n, width), tensor.WithBacking(ms)),
	}, nil
}

// Len is the number of points.
func (b *Batch) Len() int {
	return b.X.Shape()[0]
}

// Dim is the width of one point.
func (b *Batch) Dim() int {
	return b.X.Shape()[1]
}

// NAssets is Dim()-1.
func (b *Batch) NAssets() int {
	return b.Dim() - 1
}

// Point returns a view of row i of X.
func (b *Batch) Point(i int) []float64 {
	d := b.Dim()
	return b.X.Float64s()[i*d : (i+1)*d]
}

// SetPoint overwrites row i of X.
func (b *Batch) SetPoint(i int, p []float64) {
	copy(b.Point(i), p)
}

// Target returns Y[i].
func (b *Batch) Target(i int) float64 {
	return b.Y.Float64s()[i]
}

// Is reports whether point i is marked in the given mask column.
func (b *Batch) Is(i, column int) bool {
	w := b.Mask.Shape()[1]
	return b.Mask.Bools()[i*w+column]
}

// Rows returns the indices of the points marked in column.
func (b *Batch) Rows(column int) []int {
	var rows []int
	for i := 0; i < b.Len(); i++ {
		if b.Is(i, column) {
			rows = append(rows, i)
		}
	}
	return rows
}

// Clone deep-copies the batch.
func (b *Batch) Clone() *Batch {
	return &Batch{
		X:    b.X.Clone().(*tensor.Dense),
		Y:    b.Y.Clone().(*tensor.Dense),
		Mask: b.Mask.Clone().(*tensor.Dense),
	}
}

// Slice copies the points in rows into a new batch.
func (b *Batch) Slice(rows []int) *Batch {
	d, w := b.Dim(), b.Mask.Shape()[1]
	xs := make([]float64, 0, len(rows)*d)
	ys := make([]float64, 0, len(rows))
	ms := make([]bool, 0, len(rows)*w)
	for _, i := range rows {
		xs = append(xs, b.Point(i)...)
		ys = append(ys, b.Target(i))
		ms = append(ms, b.Mask.Bools()[i*w:(i+1)*w]...)
	}
	return &Batch{
		X:    tensor.New(tensor.WithShape(len(rows), d), tensor.WithBacking(xs)),
		Y:    tensor.New(tensor.WithShape(len(rows)), tensor.WithBacking(ys)),
		Mask: tensor.New(tensor.WithShape(len(rows), w), tensor.WithBacking(ms)),
	}
}
