package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// DOK is a named, write-once sparse matrix used to assemble data before it
// is frozen into CSR form.
type DOK struct {
	M    *sparse.DOK
	name string
}

func NewDOK(nr, nc int, name ...string) (R DOK) {
	R = DOK{M: sparse.NewDOK(nr, nc), name: "unnamed"}
	if len(name) != 0 {
		R.name = name[0]
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

func (m DOK) Set(i, j int, v float64) {
	nr, nc := m.Dims()
	if i < 0 || i >= nr || j < 0 || j >= nc {
		panic(fmt.Errorf("index (%d,%d) out of range for %dx%d matrix named: \"%v\"",
			i, j, nr, nc, m.name))
	}
	m.M.Set(i, j, v)
}

func (m DOK) ToCSR() CSR {
	return CSR{M: m.M.ToCSR()}
}

// CSR is a read-only compressed sparse row matrix
type CSR struct {
	M *sparse.CSR
}

func (m CSR) Dims() (r, c int)    { return m.M.Dims() }
func (m CSR) At(i, j int) float64 { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix       { return m.M.T() }

// DoRowNonZero calls fn for every stored entry of row i
func (m CSR) DoRowNonZero(i int, fn func(i, j int, v float64)) {
	m.M.DoRowNonZero(i, fn)
}

// ColSum returns the sum of column j
func (m CSR) ColSum(j int) (sum float64) {
	nr, _ := m.Dims()
	for i := 0; i < nr; i++ {
		sum += m.M.At(i, j)
	}
	return
}
