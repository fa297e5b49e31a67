package closure

import (
	"fmt"

	"derpinns/autograd"
	"derpinns/dataset"
)

// SubsetKind labels a point type of the mask.
type SubsetKind int

const (
	InteriorSubset SubsetKind = iota
	InitialSubset
	TopSubset
	BottomSubset
)

func (k SubsetKind) String() string {
	switch k {
	case InteriorSubset:
		return "interior"
	case InitialSubset:
		return "initial"
	case TopSubset:
		return "top"
	case BottomSubset:
		return "bottom"
	}
	return fmt.Sprintf("SubsetKind(%d)", int(k))
}

// Subset is the set of rows selected by one mask column.
type Subset struct {
	Kind SubsetKind
	// Asset is the boundary's asset; unused for interior and initial subsets.
	Asset int
	Rows  []int
}

// Column is the mask column the subset was read from.
func (s Subset) Column() int {
	switch s.Kind {
	case InteriorSubset:
		return dataset.InteriorColumn
	case InitialSubset:
		return dataset.InitialColumn
	case TopSubset:
		return dataset.TopColumn(s.Asset)
	default:
		return dataset.BottomColumn(s.Asset)
	}
}

// Slot is the subset's index in Losses.Boundary: bottom before top for each asset.
func (s Subset) Slot() int {
	if s.Kind == TopSubset {
		return 2*s.Asset + 1
	}
	return 2 * s.Asset
}

func (s Subset) Empty() bool {
	return len(s.Rows) == 0
}

func (s Subset) String() string {
	if s.Kind == TopSubset || s.Kind == BottomSubset {
		return fmt.Sprintf("%s-%d(%d)", s.Kind, s.Asset, len(s.Rows))
	}
	return fmt.Sprintf("%s(%d)", s.Kind, len(s.Rows))
}

// Partition splits a batch into its 2+2n labeled subsets, in mask column
// order. Rows with no column set belong to none of them.
func Partition(b *dataset.Batch) []Subset {
	n := b.NAssets()
	subsets := make([]Subset, 0, dataset.MaskWidth(n))
	subsets = append(subsets,
		Subset{Kind: InteriorSubset, Rows: b.Rows(dataset.InteriorColumn)},
		Subset{Kind: InitialSubset, Rows: b.Rows(dataset.InitialColumn)})
	for i := 0; i < n; i++ {
		subsets = append(subsets,
			Subset{Kind: TopSubset, Asset: i, Rows: b.Rows(dataset.TopColumn(i))},
			Subset{Kind: BottomSubset, Asset: i, Rows: b.Rows(dataset.BottomColumn(i))})
	}
	return subsets
}

// RowResidual evaluates the residual of one batch row.
type RowResidual func(row int) *autograd.Var

// MeanSquare reduces the subset's residuals to their mean square. An empty
// subset, or a nil residual, contributes a zero constant without evaluating anything.
func (s Subset) MeanSquare(residual RowResidual) *autograd.Var {
	if s.Empty() || residual == nil {
		return autograd.Zero()
	}
	rs := make([]*autograd.Var, len(s.Rows))
	for k, row := range s.Rows {
		rs[k] = residual(row)
	}
	return autograd.MeanSquare(rs)
}

// Losses are the loss components of one step.
type Losses struct {
	Interior *autograd.Var
	Initial  *autograd.Var
	// Boundary has 2n entries: bottom-0, top-0, bottom-1, top-1, ...
	Boundary []*autograd.Var
	// Compatibility is nil unless the model predicts its own derivatives.
	Compatibility *autograd.Var
}

// BoundarySum adds all boundary losses.
func (l Losses) BoundarySum() *autograd.Var {
	return autograd.Sum(l.Boundary...)
}

// Vector lays the terms out as [interior, initial, boundary...], the order
// loss balancing weighs them in. Compatibility is not included.
func (l Losses) Vector() []*autograd.Var {
	v := make([]*autograd.Var, 0, 2+len(l.Boundary))
	v = append(v, l.Interior, l.Initial)
	return append(v, l.Boundary...)
}

// checkFinite reports the first loss term that is NaN.
func (l Losses) checkFinite() error {
	for k, v := range l.Vector() {
		if v.IsNaN() {
			switch k {
			case 0:
				return &NumericalError{Quantity: "interior_loss"}
			case 1:
				return &NumericalError{Quantity: "initial_loss"}
			default:
				return &NumericalError{Quantity: fmt.Sprintf("boundary_loss[%d]", k-2)}
			}
		}
	}
	if l.Compatibility != nil && l.Compatibility.IsNaN() {
		return &NumericalError{Quantity: "compatibility_loss"}
	}
	return nil
}

// SubsetRule picks the residual for a subset, or nil to leave it at zero.
type SubsetRule func(s Subset) RowResidual

// Aggregate evaluates rule on every subset of b and collects the mean squares.
func Aggregate(b *dataset.Batch, rule SubsetRule) Losses {
	n := b.NAssets()
	l := Losses{
		Interior: autograd.Zero(),
		Initial:  autograd.Zero(),
		Boundary: make([]*autograd.Var, 2*n),
	}
	for i := range l.Boundary {
		l.Boundary[i] = autograd.Zero()
	}
	for _, s := range Partition(b) {
		loss := s.MeanSquare(rule(s))
		switch s.Kind {
		case InteriorSubset:
			l.Interior = loss
		case InitialSubset:
			l.Initial = loss
		default:
			l.Boundary[s.Slot()] = loss
		}
	}
	return l
}
