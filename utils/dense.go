package utils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DenseSolver factors and solves small dense systems, keeping the LU
// storage between calls.
type DenseSolver struct {
	lu mat.LU
}

// SolveInPlace overwrites b with the solution of A x = b. Singular and
// ill-conditioned systems and non-finite results are errors.
func (ds *DenseSolver) SolveInPlace(A mat.Matrix, b []float64) (err error) {
	n, nc := A.Dims()
	if n != nc || len(b) != n {
		return fmt.Errorf("dimension mismatch: A is %dx%d, len(b) = %d", n, nc, len(b))
	}
	ds.lu.Factorize(A)
	bv := mat.NewVecDense(n, b)
	if err = ds.lu.SolveVecTo(bv, false, bv); err != nil {
		return
	}
	if !IsFinite(b) {
		err = fmt.Errorf("non-finite solution")
	}
	return
}
