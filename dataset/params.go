// Package dataset holds the parameters of the dimensionless multi-asset
// Black-Scholes problem and produces collocation batches for it.
//
// Coordinates are log-moneyness x_i = ln(S_i/K) for every asset followed by
// the time to maturity tau, so a point has NAssets+1 columns.
package dataset

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// Params are the PDE constants shared by a dataset and every closure built on it.
type Params struct {
	NAssets int
	Sigma   []float64
	R       float64
	// Rho is the asset correlation matrix. Only off-diagonal entries are read.
	Rho *mat.SymDense
	// XMin and XMax bound every spatial coordinate.
	XMin, XMax float64
	// TauMax is the (dimensionless) maturity.
	TauMax float64
}

// NewParams builds Params on the default domain x in [-3, 3], tau in [0, 1].
// A nil rho means uncorrelated assets.
func NewParams(sigma []float64, r float64, rho *mat.SymDense) (*Params, error) {
	n := len(sigma)
	if rho == nil {
		rho = Identity(n)
	}
	p := &Params{
		NAssets: n,
		Sigma:   append([]float64(nil), sigma...),
		R:       r,
		Rho:     rho,
		XMin:    -3,
		XMax:    3,
		TauMax:  1,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Identity is the correlation matrix of n independent assets.
func Identity(n int) *mat.SymDense {
	if n == 0 {
		return &mat.SymDense{}
	}
	rho := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		rho.SetSym(i, i, 1)
	}
	return rho
}

// UniformCorrelation is the n×n correlation matrix with every off-diagonal entry equal to c.
func UniformCorrelation(n int, c float64) *mat.SymDense {
	rho := Identity(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			rho.SetSym(i, j, c)
		}
	}
	return rho
}

func (p *Params) Validate() error {
	if p.NAssets <= 0 {
		return errors.New("dataset: at least one asset is required")
	}
	if len(p.Sigma) != p.NAssets {
		return fmt.Errorf("dataset: %d volatilities for %d assets", len(p.Sigma), p.NAssets)
	}
	for i, s := range p.Sigma {
		if s <= 0 {
			return fmt.Errorf("dataset: non-positive volatility sigma[%d] = %v", i, s)
		}
	}
	if p.Rho == nil || p.Rho.SymmetricDim() != p.NAssets {
		return fmt.Errorf("dataset: correlation matrix must be %d×%d", p.NAssets, p.NAssets)
	}
	for i := 0; i < p.NAssets; i++ {
		for j := i + 1; j < p.NAssets; j++ {
			if c := p.Rho.At(i, j); c < -1 || c > 1 {
				return fmt.Errorf("dataset: correlation rho[%d][%d] = %v outside [-1, 1]", i, j, c)
			}
		}
	}
	if !(p.XMin < p.XMax) || !(p.TauMax > 0) {
		return fmt.Errorf("dataset: empty domain x in [%v, %v], tau in [0, %v]", p.XMin, p.XMax, p.TauMax)
	}
	return nil
}

// Dim is the width of one coordinate row.
func (p *Params) Dim() int {
	return p.NAssets + 1
}

// DomainRanges returns one interval per coordinate, spatial first, time last.
func (p *Params) DomainRanges() []r1.Interval {
	ranges := make([]r1.Interval, p.Dim())
	for i := 0; i < p.NAssets; i++ {
		ranges[i] = r1.Interval{Min: p.XMin, Max: p.XMax}
	}
	ranges[p.NAssets] = r1.Interval{Min: 0, Max: p.TauMax}
	return ranges
}

// Reduced drops asset i. It describes the problem solved on the bottom
// boundary of asset i when that solution is reused.
func (p *Params) Reduced(i int) (*Params, error) {
	if i < 0 || i >= p.NAssets || p.NAssets == 1 {
		return nil, fmt.Errorf("dataset: cannot drop asset %d of %d", i, p.NAssets)
	}
	keep := make([]int, 0, p.NAssets-1)
	for j := 0; j < p.NAssets; j++ {
		if j != i {
			keep = append(keep, j)
		}
	}
	sigma := make([]float64, len(keep))
	rho := mat.NewSymDense(len(keep), nil)
	for a, j := range keep {
		sigma[a] = p.Sigma[j]
		for b := a; b < len(keep); b++ {
			rho.SetSym(a, b, p.Rho.At(j, keep[b]))
		}
	}
	return &Params{
		NAssets: len(keep),
		Sigma:   sigma,
		R:       p.R,
		Rho:     rho,
		XMin:    p.XMin,
		XMax:    p.XMax,
		TauMax:  p.TauMax,
	}, nil
}
