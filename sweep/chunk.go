package sweep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gosn/boundary"
	"github.com/notargets/gosn/fem"
	"github.com/notargets/gosn/fluxes"
	"github.com/notargets/gosn/mesh"
	"github.com/notargets/gosn/quadrature"
	"github.com/notargets/gosn/types"
	"github.com/notargets/gosn/utils"
	"github.com/notargets/gosn/xs"
)

// GroupSubset is a contiguous range of energy groups swept together
type GroupSubset struct {
	First, Count int
}

// Boundaries serves incident flux on physical boundaries and owns the
// reflecting boundary buffers
type Boundaries interface {
	boundary.Provider
	Condition(bid int) boundary.Condition
	Swap()
}

// FaceStore exchanges face fluxes between neighboring cells. Face flux
// slices are laid out by face node, in the publishing cell's face node
// order, then by group of the current subset.
type FaceStore interface {
	Upwind(c *mesh.Cell, f int) []float64
	Publish(c *mesh.Cell, f int, psi []float64)
}

// Chunk solves the transport equation on one cell for one direction and
// one group subset. A chunk owns its scratch storage and is used by a single
// goroutine.
type Chunk struct {
	mesh       *mesh.Mesh
	q          *quadrature.Quadrature
	ops        *quadrature.Operators
	ucm        []fem.UnitCellMatrices
	xs         xs.Provider
	boundaries Boundaries
	nodeMap    fluxes.NodeMap
	geom       geometry
	// SurfaceSourceActive switches isotropic boundary sources on
	SurfaceSourceActive bool

	A, Atemp map[int]*mat.Dense
	b        [][]float64
	source   []float64
	faceBuf  []float64
	incident []bool
	solver   utils.DenseSolver
}

func NewChunk(m *mesh.Mesh, q *quadrature.Quadrature, ucm []fem.UnitCellMatrices,
	xsp xs.Provider, bcs Boundaries) (ch *Chunk, err error) {
	if len(ucm) != len(m.Cells) {
		err = fmt.Errorf("%w: %d cell matrices for %d cells", types.ErrConfiguration, len(ucm), len(m.Cells))
		return
	}
	ch = &Chunk{
		mesh:       m,
		q:          q,
		ucm:        ucm,
		xs:         xsp,
		boundaries: bcs,
		nodeMap:    fluxes.NewNodeMap(m.NodesPerCell()),
		A:          make(map[int]*mat.Dense),
		Atemp:      make(map[int]*mat.Dense),
	}
	if ch.ops, err = q.Operators(); err != nil {
		return nil, err
	}
	var maxNodes, maxFaces int
	for id := range m.Cells {
		maxNodes = max(maxNodes, m.Cells[id].NumNodes())
		maxFaces = max(maxFaces, len(m.Cells[id].Faces))
		if m.Cells[id].NumNodes() != ucm[id].NumNodes {
			return nil, fmt.Errorf("%w: cell %d has %d nodes but its matrices have %d",
				types.ErrConfiguration, id, m.Cells[id].NumNodes(), ucm[id].NumNodes)
		}
	}
	G := xsp.NumGroups()
	ch.b = make([][]float64, G)
	for g := range ch.b {
		ch.b[g] = make([]float64, maxNodes)
	}
	ch.source = make([]float64, maxNodes)
	ch.faceBuf = make([]float64, maxNodes*G)
	ch.incident = make([]bool, maxFaces)
	ch.geom = newGeometry(q, m, ucm, ch.nodeMap, G)
	return
}

func (ch *Chunk) scratch(n int) (A, Atemp *mat.Dense) {
	var ok bool
	if A, ok = ch.A[n]; !ok {
		A, Atemp = mat.NewDense(n, n, nil), mat.NewDense(n, n, nil)
		ch.A[n], ch.Atemp[n] = A, Atemp
		return
	}
	return A, ch.Atemp[n]
}

// BeginDirection must be called before the first cell of direction d
func (ch *Chunk) BeginDirection(d int) { ch.geom.beginDirection(d) }

// Solve sweeps cell id in direction d, adding the cell's contribution to phi
// and storing its angular flux in psi when psi is not nil. Upwind flux comes
// from faces, the boundary conditions or the level start flux.
func (ch *Chunk) Solve(id, d int, gs GroupSubset, src, phi *fluxes.MomentVector,
	psi *fluxes.AngularVector, faces FaceStore) (err error) {
	var (
		c      = &ch.mesh.Cells[id]
		um     = &ch.ucm[id]
		n      = um.NumNodes
		omega  = ch.q.Directions[d].Omega
		A, At  = ch.scratch(n)
		b      = ch.b[:gs.Count]
		sigmaT = ch.xs.SigmaT(id)
	)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			A.Set(i, j, r3.Dot(omega, um.Gradient[i][j]))
		}
	}
	for gsg := range b {
		for i := 0; i < n; i++ {
			b[gsg][i] = 0
		}
	}
	ch.geom.assemble(id, A, b, gs)

	for fn := range c.Faces {
		f := &c.Faces[fn]
		mu := r3.Dot(omega, f.Normal)
		ch.incident[fn] = mu < 0
		if mu >= 0 {
			continue
		}
		var (
			SM       = um.SurfaceMass[fn]
			upwind   []float64
			symmetry = !f.HasNeighbor() && ch.geom.isSymmetry(f)
		)
		if f.HasNeighbor() {
			upwind = faces.Upwind(c, fn)
		}
		for _, i := range f.Nodes {
			for fj, j := range f.Nodes {
				var psiUp []float64
				switch {
				case f.HasNeighbor():
					k := f.NeighborNodes[fj] * gs.Count
					psiUp = upwind[k : k+gs.Count]
				case symmetry:
					psiUp = ch.geom.startFlux(id, j, gs)
				default:
					psiUp = ch.boundaries.IncidentFlux(boundary.Query{
						BoundaryID:          f.BoundaryID,
						Direction:           d,
						Cell:                id,
						Face:                fn,
						FaceNode:            fj,
						GroupFirst:          gs.First,
						GroupCount:          gs.Count,
						SurfaceSourceActive: ch.SurfaceSourceActive,
					})
				}
				muNij := -mu * SM.At(i, j)
				A.Set(i, j, A.At(i, j)+muNij)
				for gsg := range b {
					b[gsg][i] += psiUp[gsg] * muNij
				}
			}
		}
	}

	var (
		M      = um.Mass
		nm     = ch.ops.NumMoments()
		source = ch.source[:n]
	)
	for gsg := range b {
		g := gs.First + gsg
		for i := 0; i < n; i++ {
			node := ch.nodeMap.Node(id, i)
			source[i] = 0
			for m := 0; m < nm; m++ {
				source[i] += ch.ops.M2D.At(m, d) * src.At(node, m, g)
			}
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				At.Set(i, j, A.At(i, j)+M.At(i, j)*sigmaT[g])
				b[gsg][i] += M.At(i, j) * source[j]
			}
		}
		if err = ch.solver.SolveInPlace(At, b[gsg][:n]); err != nil {
			return fmt.Errorf("%w: cell %d direction %d group %d: %v",
				types.ErrNumericalDegeneracy, id, d, g, err)
		}
	}

	for m := 0; m < nm; m++ {
		wnD2M := ch.ops.D2M.At(m, d)
		for i := 0; i < n; i++ {
			node := ch.nodeMap.Node(id, i)
			for gsg := range b {
				phi.Data[phi.Index(node, m, gs.First+gsg)] += wnD2M * b[gsg][i]
			}
		}
	}
	if psi != nil {
		for i := 0; i < n; i++ {
			node := ch.nodeMap.Node(id, i)
			for gsg := range b {
				psi.Set(node, d, gs.First+gsg, b[gsg][i])
			}
		}
	}

	for fn := range c.Faces {
		f := &c.Faces[fn]
		if ch.incident[fn] || r3.Dot(omega, f.Normal) == 0 {
			continue
		}
		faceBuf := ch.faceBuf[:len(f.Nodes)*gs.Count]
		for fi, i := range f.Nodes {
			for gsg := range b {
				faceBuf[fi*gs.Count+gsg] = b[gsg][i]
			}
		}
		if f.HasNeighbor() {
			faces.Publish(c, fn, faceBuf)
			continue
		}
		if out, ok := ch.boundaries.Condition(f.BoundaryID).(boundary.Outgoing); ok {
			for fi := range f.Nodes {
				out.Store(id, fn, d, fi, gs.First, faceBuf[fi*gs.Count:(fi+1)*gs.Count])
			}
		}
	}
	ch.geom.finish(id, b, gs)
	return
}
