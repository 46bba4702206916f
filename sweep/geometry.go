package sweep

import (
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gosn/fem"
	"github.com/notargets/gosn/fluxes"
	"github.com/notargets/gosn/mesh"
	"github.com/notargets/gosn/quadrature"
)

// geometry carries the coordinate-system specific parts of a cell solve
type geometry interface {
	beginDirection(d int)
	// assemble adds angular redistribution terms to the cell system
	assemble(c int, A *mat.Dense, b [][]float64, gs GroupSubset)
	isSymmetry(f *mesh.Face) bool
	// startFlux is the level start flux at node i of cell c
	startFlux(c, i int, gs GroupSubset) []float64
	finish(c int, b [][]float64, gs GroupSubset)
}

func newGeometry(q *quadrature.Quadrature, m *mesh.Mesh, ucm []fem.UnitCellMatrices,
	nm fluxes.NodeMap, nGroups int) geometry {
	if !q.System.IsCurvilinear() {
		return cartesian{}
	}
	cv := &curvilinear{
		q:         q,
		ucm:       ucm,
		nodeMap:   nm,
		nGroups:   nGroups,
		dimension: m.Dimension,
		psiStart:  make([][]float64, len(q.Levels)),
		psiSweep:  make([]float64, nm.NumNodes*nGroups),
	}
	for l := range cv.psiStart {
		cv.psiStart[l] = make([]float64, nm.NumNodes*nGroups)
	}
	return cv
}

type cartesian struct{}

func (cartesian) beginDirection(int) {}

func (cartesian) assemble(int, *mat.Dense, [][]float64, GroupSubset) {}

func (cartesian) isSymmetry(*mesh.Face) bool { return false }

func (cartesian) startFlux(int, int, GroupSubset) []float64 { return nil }

func (cartesian) finish(int, [][]float64, GroupSubset) {}

// curvilinear sweeps each polar level from its start to its final
// direction. psiSweep is the azimuthal recurrence state of the level being
// swept and psiStart keeps the start direction flux of every level.
type curvilinear struct {
	q         *quadrature.Quadrature
	ucm       []fem.UnitCellMatrices
	nodeMap   fluxes.NodeMap
	nGroups   int
	dimension int

	level      int
	start      bool
	tau, alpha float64
	psiStart   [][]float64
	psiSweep   []float64
}

func (cv *curvilinear) beginDirection(d int) {
	var pos int
	cv.level, pos = cv.q.LevelOf(d)
	pl := cv.q.Levels[cv.level]
	cv.tau, cv.alpha = pl.DiamondDifference[pos], pl.StreamingOperator[pos]
	cv.start = pos == 0
	if cv.start {
		for i := range cv.psiSweep {
			cv.psiSweep[i] = 0
		}
	}
}

func (cv *curvilinear) dof(c, i int, gs GroupSubset) int {
	return cv.nodeMap.Node(c, i)*cv.nGroups + gs.First
}

func (cv *curvilinear) assemble(c int, A *mat.Dense, b [][]float64, gs GroupSubset) {
	var (
		Maux = cv.ucm[c].SecondaryMass
		n    = cv.ucm[c].NumNodes
	)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sm := cv.alpha * Maux.At(i, j)
			A.Set(i, j, A.At(i, j)+sm)
			jr := cv.dof(c, j, gs)
			for gsg := 0; gsg < gs.Count; gsg++ {
				b[gsg][i] += sm * cv.psiSweep[jr+gsg]
			}
		}
	}
}

func (cv *curvilinear) isSymmetry(f *mesh.Face) bool { return mesh.IsSymmetryFace(f, cv.dimension) }

func (cv *curvilinear) startFlux(c, i int, gs GroupSubset) []float64 {
	ir := cv.dof(c, i, gs)
	return cv.psiStart[cv.level][ir : ir+gs.Count]
}

func (cv *curvilinear) finish(c int, b [][]float64, gs GroupSubset) {
	var (
		f0 = 1 / cv.tau
		f1 = f0 - 1
	)
	for i := 0; i < cv.ucm[c].NumNodes; i++ {
		ir := cv.dof(c, i, gs)
		for gsg := 0; gsg < gs.Count; gsg++ {
			if cv.start {
				cv.psiStart[cv.level][ir+gsg] = b[gsg][i]
			}
			cv.psiSweep[ir+gsg] = f0*b[gsg][i] - f1*cv.psiSweep[ir+gsg]
		}
	}
}
