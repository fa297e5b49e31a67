package closure

import (
	"gonum.org/v1/gonum/mat"

	"derpinns/autograd"
	"derpinns/dataset"
)

// Point is the derivative tuple of one collocation point.
type Point struct {
	U    *autograd.Var
	UTau *autograd.Var
	UX   []*autograd.Var
	UXX  [][]*autograd.Var
}

// Residuals is the set of residual functions a loss computer evaluates on
// each subset of a batch.
type Residuals interface {
	Interior(p Point) *autograd.Var
	TopBoundary(p Point, i int) *autograd.Var
	BottomBoundary(p Point, i int) *autograd.Var
	Initial(u, y *autograd.Var) *autograd.Var
}

// PDE holds the constants of the dimensionless Black-Scholes equation
//
//	u_tau = sum_i sigma_i^2/2 u_ii + sum_{i<j} sigma_i sigma_j rho_ij u_ij
//	        + sum_i (r - sigma_i^2/2) u_i - r u
//
// and evaluates its residuals.
type PDE struct {
	nAssets int
	sigma   []float64
	r       float64
	rho     *mat.SymDense
}

func NewPDE(params *dataset.Params) *PDE {
	return &PDE{
		nAssets: params.NAssets,
		sigma:   append([]float64(nil), params.Sigma...),
		r:       params.R,
		rho:     params.Rho,
	}
}

// Interior is u_tau - diffusion - drift + r u.
func (pde *PDE) Interior(p Point) *autograd.Var {
	terms := make([]*autograd.Var, 0, 2+pde.nAssets*(pde.nAssets+3)/2)
	terms = append(terms, p.UTau, autograd.Scale(p.U, pde.r))
	for i := 0; i < pde.nAssets; i++ {
		si := pde.sigma[i]
		terms = append(terms,
			autograd.Scale(p.UXX[i][i], -0.5*si*si),
			autograd.Scale(p.UX[i], -(pde.r - 0.5*si*si)))
		for j := i + 1; j < pde.nAssets; j++ {
			terms = append(terms, autograd.Scale(p.UXX[i][j], -si*pde.sigma[j]*pde.rho.At(i, j)))
		}
	}
	return autograd.Sum(terms...)
}

// degenerate is the equation with every derivative along asset i dropped,
// which is what remains when S_i reaches 0 or grows without bound:
//
//	-u_tau + r sum_{j!=i} u_j + (cross + pure)/2 - r u
func (pde *PDE) degenerate(p Point, i int) *autograd.Var {
	terms := []*autograd.Var{autograd.Neg(p.UTau), autograd.Scale(p.U, -pde.r)}
	for j := 0; j < pde.nAssets; j++ {
		if j == i {
			continue
		}
		sj := pde.sigma[j]
		// r u_j + sigma_j^2 (u_jj - u_j) / 2
		terms = append(terms,
			autograd.Scale(p.UX[j], pde.r-0.5*sj*sj),
			autograd.Scale(p.UXX[j][j], 0.5*sj*sj))
		for k := 0; k < j; k++ {
			if k == i {
				continue
			}
			// half of 2 sigma_k sigma_j rho_kj u_kj
			terms = append(terms, autograd.Scale(p.UXX[k][j], pde.sigma[k]*sj*pde.rho.At(k, j)))
		}
	}
	return autograd.Sum(terms...)
}

// TopBoundary is the residual on x_i = XMax.
func (pde *PDE) TopBoundary(p Point, i int) *autograd.Var {
	return pde.degenerate(p, i)
}

// BottomBoundary is the residual on x_i = XMin. It has the same form as the
// top one; both sides are kept so either can change independently.
func (pde *PDE) BottomBoundary(p Point, i int) *autograd.Var {
	return pde.degenerate(p, i)
}

// Initial is the mismatch against the payoff.
func (pde *PDE) Initial(u, y *autograd.Var) *autograd.Var {
	return autograd.Sub(u, y)
}

// ValueMatch is target - u, the residual of a directly supervised boundary.
func ValueMatch(u, target *autograd.Var) *autograd.Var {
	return autograd.Sub(target, u)
}
