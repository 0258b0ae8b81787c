package solve

import (
	"gonum.org/v1/gonum/floats"

	"github.com/matzehuels/pdnroute/pkg/errors"
)

// cgResult reports how a conjugate-gradient solve ended.
type cgResult struct {
	X          []float64
	Iterations int
	Residual   float64 // ||b - Ax|| / ||b||
}

// pcg solves A·x = b for symmetric positive definite A with the Jacobi
// preconditioned conjugate gradient method, starting from x = 0. It stops
// once the relative residual is at most tol and fails with NOT_CONVERGED
// after maxIter iterations.
func pcg(a *CSR, b []float64, tol float64, maxIter int) (*cgResult, error) {
	n := a.N
	res := &cgResult{X: make([]float64, n)}
	bnorm := floats.Norm(b, 2)
	if bnorm == 0 {
		return res, nil
	}

	minv := a.Diag()
	for i, d := range minv {
		if d <= 0 {
			return nil, errors.New(errors.ErrCodeSingularSystem, "row %d has non-positive diagonal %g", i, d)
		}
		minv[i] = 1 / d
	}

	r := append([]float64(nil), b...)
	z := make([]float64, n)
	floats.MulTo(z, minv, r)
	p := append([]float64(nil), z...)
	ap := make([]float64, n)
	rz := floats.Dot(r, z)

	for k := 0; k < maxIter; k++ {
		a.MulVec(ap, p)
		pap := floats.Dot(p, ap)
		if pap <= 0 {
			return nil, errors.New(errors.ErrCodeSingularSystem, "matrix not positive definite (pAp = %g at iteration %d)", pap, k)
		}
		alpha := rz / pap
		floats.AddScaled(res.X, alpha, p)
		floats.AddScaled(r, -alpha, ap)

		res.Iterations = k + 1
		res.Residual = floats.Norm(r, 2) / bnorm
		if res.Residual <= tol {
			return res, nil
		}

		floats.MulTo(z, minv, r)
		rzNext := floats.Dot(r, z)
		floats.AddScaledTo(p, z, rzNext/rz, p)
		rz = rzNext
	}
	return nil, errors.New(errors.ErrCodeNotConverged, "residual %.3g above %.3g after %d iterations", res.Residual, tol, maxIter)
}
