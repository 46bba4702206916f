package sweep

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/notargets/gosn/boundary"
	"github.com/notargets/gosn/fem"
	"github.com/notargets/gosn/fluxes"
	"github.com/notargets/gosn/mesh"
	"github.com/notargets/gosn/quadrature"
	"github.com/notargets/gosn/types"
	"github.com/notargets/gosn/utils"
	"github.com/notargets/gosn/xs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func linspace(a, b float64, n int) (x []float64) {
	for i := 0; i <= n; i++ {
		x = append(x, a+(b-a)*float64(i)/float64(n))
	}
	return
}

type problem struct {
	m   *mesh.Mesh
	q   *quadrature.Quadrature
	ucm []fem.UnitCellMatrices
	lib *xs.Library
	bcs *boundary.Set
}

func newProblem(t *testing.T, m *mesh.Mesh, q *quadrature.Quadrature, cs types.CoordinateSystem,
	mats []xs.Material, specs map[int]boundary.Spec) (pb problem) {
	var err error
	pb.m, pb.q = m, q
	pb.ucm, err = fem.Build(m, cs)
	require.NoError(t, err)
	pb.lib, err = xs.NewLibrary(m, mats)
	require.NoError(t, err)
	pb.bcs, err = boundary.NewSet(m, q, pb.lib.NumGroups(), specs)
	require.NoError(t, err)
	return
}

// isotropicSource sets moment zero of every node to the value whose
// angular source is s per direction
func isotropicSource(src *fluxes.MomentVector, W float64, s ...float64) {
	for node := 0; node < src.NumNodes; node++ {
		for g, v := range s {
			src.Set(node, 0, g, v*W)
		}
	}
}

func TestChunkSingleCell(t *testing.T) {
	const (
		h     = 0.5
		psiIn = 1.3
	)
	m, err := mesh.NewOrthogonal([]float64{0, h})
	require.NoError(t, err)
	q, err := quadrature.NewProductGaussLegendre(1)
	require.NoError(t, err)
	_, err = q.BuildOperators(0, 1)
	require.NoError(t, err)
	// direction 0 moves toward +z and enters through zmin
	d := 0
	mu := q.Directions[d].Omega.Z
	require.Greater(t, mu, 0.)
	right := func(sigma, s, incident float64) (psiR, phi0 float64) {
		mt, err := xs.NewMaterial("m", []float64{sigma})
		require.NoError(t, err)
		pb := newProblem(t, m, q, types.Cartesian, []xs.Material{mt}, map[int]boundary.Spec{
			mesh.ZMin: {Type: types.BoundaryIsotropic, Values: []float64{incident}},
		})
		ch, err := NewChunk(pb.m, pb.q, pb.ucm, pb.lib, pb.bcs)
		require.NoError(t, err)
		ch.SurfaceSourceActive = true
		var (
			src = fluxes.NewMomentVector(2, 1, 1)
			phi = fluxes.NewMomentVector(2, 1, 1)
			psi = fluxes.NewAngularVector(2, 2, 1)
		)
		isotropicSource(src, q.WeightSum(), s)
		ch.BeginDirection(d)
		require.NoError(t, ch.Solve(0, d, GroupSubset{0, 1}, src, phi, psi, nil))
		assert.InDelta(t, q.Directions[d].Weight*psi.At(1, d, 0), phi.At(1, 0, 0), 1.e-14)
		return psi.At(1, d, 0), phi.At(1, 0, 0)
	}
	{ // optically thick, no incident flux and no source
		psiR, _ := right(1.e4, 0, 0)
		assert.Equal(t, 0., psiR)
	}
	for _, sigma := range []float64{0.1, 1, 10, 1.e3} {
		tau := sigma * h / mu
		psiR, _ := right(sigma, 0, psiIn)
		assert.InDelta(t, psiIn*2*(3-tau)/(tau*tau+4*tau+6), psiR, 1.e-12, "tau = %g", tau)
	}
	{ // optically thick incident flux is attenuated
		psiR, _ := right(1.e4, 0, psiIn)
		assert.Less(t, math.Abs(psiR), 1.e-3*psiIn)
	}
	{ // optically thin, exact streaming solution
		s := 0.7
		psiR, _ := right(0, s, psiIn)
		assert.InDelta(t, psiIn+s*h/mu, psiR, 1.e-12)
	}
}

func slabProblem(t *testing.T, nCells int) problem {
	m, err := mesh.NewOrthogonal(linspace(-1, 1, nCells))
	require.NoError(t, err)
	q, err := quadrature.NewProductGaussLegendre(2)
	require.NoError(t, err)
	_, err = q.BuildOperators(1, 1)
	require.NoError(t, err)
	mt, err := xs.NewMaterial("slab", []float64{0.2, 1.5})
	require.NoError(t, err)
	return newProblem(t, m, q, types.Cartesian, []xs.Material{mt}, nil)
}

func boxProblem(t *testing.T) problem {
	m, err := mesh.NewOrthogonal(linspace(0, 1, 4), linspace(0, 2, 3))
	require.NoError(t, err)
	q, err := quadrature.NewProductGaussLegendreChebyshev(1, 2)
	require.NoError(t, err)
	_, err = q.BuildOperators(1, 2)
	require.NoError(t, err)
	mt, err := xs.NewMaterial("box", []float64{1, 0.25})
	require.NoError(t, err)
	return newProblem(t, m, q, types.Cartesian, []xs.Material{mt}, map[int]boundary.Spec{
		mesh.XMin: {Type: types.BoundaryIsotropic, Values: []float64{0.5, 2}},
	})
}

func runSweep(t *testing.T, pb problem, np int, cfg Config) (phi *fluxes.MomentVector, psi *fluxes.AngularVector) {
	require.NoError(t, pb.m.Partition(np))
	o, err := NewOrchestrator(pb.m, pb.q, pb.ucm, pb.lib, pb.bcs, cfg)
	require.NoError(t, err)
	src := o.NewMoments()
	isotropicSource(src, pb.q.WeightSum(), 1, 0.5)
	phi, psi = o.NewMoments(), o.NewAngular()
	require.NoError(t, o.Sweep(context.Background(), src, phi, psi))
	assert.True(t, utils.IsFinite(phi.Data))
	return
}

func TestSweepPartitionInvariance(t *testing.T) {
	for _, pb := range []problem{slabProblem(t, 10), boxProblem(t)} {
		cfg := Config{Aggregation: types.AggregateSingle, SurfaceSourceActive: true}
		phi1, psi1 := runSweep(t, pb, 1, cfg)
		assert.Greater(t, phi1.MaxAbs(), 0.)
		for _, np := range []int{2, 3, 5} {
			phiN, psiN := runSweep(t, pb, np, cfg)
			assert.InDeltaSlice(t, phi1.Data, phiN.Data, 1.e-12, "%d partitions", np)
			assert.InDeltaSlice(t, psi1.Data, psiN.Data, 1.e-12, "%d partitions", np)
		}
		{ // one group at a time, directions aggregated by polar level
			cfg := Config{Aggregation: types.AggregatePolar, GroupSubsetSize: 1, SurfaceSourceActive: true}
			phiS, _ := runSweep(t, pb, 3, cfg)
			assert.InDeltaSlice(t, phi1.Data, phiS.Data, 1.e-12)
		}
		{ // topological ordering on a mesh treated as unstructured
			pb.m.Orthogonal = false
			phiT, _ := runSweep(t, pb, 2, cfg)
			assert.InDeltaSlice(t, phi1.Data, phiT.Data, 1.e-12)
			pb.m.Orthogonal = true
		}
	}
}

func TestSlabSymmetry(t *testing.T) {
	pb := slabProblem(t, 10)
	phi, _ := runSweep(t, pb, 2, Config{})
	N := phi.NumNodes
	for node := 0; node < N; node++ {
		for g := 0; g < 2; g++ {
			assert.InDelta(t, phi.At(node, 0, g), phi.At(N-1-node, 0, g), 1.e-12)
			// the current changes sign across the center
			assert.InDelta(t, phi.At(node, 1, g), -phi.At(N-1-node, 1, g), 1.e-12)
		}
	}
}

func TestOrderings(t *testing.T) {
	m, err := mesh.NewOrthogonal(linspace(0, 1, 3), linspace(0, 1, 2))
	require.NoError(t, err)
	q, err := quadrature.NewProductGaussLegendreChebyshev(1, 1)
	require.NoError(t, err)
	for _, dir := range q.Directions {
		ax := axisRanks(m, dir.Omega)
		topo, err := topologicalRanks(m, dir.Omega)
		require.NoError(t, err)
		for _, rank := range [][]int{ax, topo} {
			for id := range m.Cells {
				c := &m.Cells[id]
				for fn := range c.Faces {
					f := &c.Faces[fn]
					if f.HasNeighbor() && dir.Omega.X*f.Normal.X+dir.Omega.Y*f.Normal.Y < 0 {
						assert.Less(t, rank[f.Neighbor], rank[id])
					}
				}
			}
		}
	}
	// flipping one interior normal creates a two cell cycle
	m.Orthogonal = false
	m.Cells[1].Faces[0].Normal.X = 1
	q1, err := quadrature.NewProductGaussLegendreChebyshev(1, 1)
	require.NoError(t, err)
	_, err = topologicalRanks(m, q1.Directions[0].Omega)
	assert.ErrorIs(t, err, types.ErrTopology)
}

func TestOrchestratorConfiguration(t *testing.T) {
	pb := slabProblem(t, 4)
	{
		q, err := quadrature.NewProductGaussLegendre(1)
		require.NoError(t, err)
		_, err = NewOrchestrator(pb.m, q, pb.ucm, pb.lib, pb.bcs, Config{})
		assert.ErrorIs(t, err, types.ErrConfiguration, "operators not built")
		_, err = q.BuildOperators(0, 2)
		require.NoError(t, err)
		_, err = NewOrchestrator(pb.m, q, pb.ucm, pb.lib, pb.bcs, Config{})
		assert.ErrorIs(t, err, types.ErrConfiguration, "operators for another dimension")
	}
	{
		q, err := quadrature.NewCylindricalUniform(quadrature.GaussLegendre(2), quadrature.GaussChebyshev(2), 1)
		require.NoError(t, err)
		_, err = q.BuildOperators(0, 1)
		require.NoError(t, err)
		_, err = NewOrchestrator(pb.m, q, pb.ucm, pb.lib, pb.bcs, Config{Aggregation: types.AggregateSingle})
		assert.ErrorIs(t, err, types.ErrTopology)
		// the slab extends to negative radius
		_, err = NewOrchestrator(pb.m, q, pb.ucm, pb.lib, pb.bcs, Config{Aggregation: types.AggregateAzimuthal})
		assert.ErrorIs(t, err, types.ErrTopology)
	}
	{
		o, err := NewOrchestrator(pb.m, pb.q, pb.ucm, pb.lib, pb.bcs, Config{})
		require.NoError(t, err)
		bad := fluxes.NewMomentVector(1, 1, 1)
		err = o.Sweep(context.Background(), bad, o.NewMoments(), nil)
		assert.ErrorIs(t, err, types.ErrConfiguration)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err = o.Sweep(ctx, o.NewMoments(), o.NewMoments(), nil)
		assert.ErrorIs(t, err, context.Canceled)
	}
}

// recordingBoundaries is a vacuum boundary set that remembers which
// boundaries were asked for incident flux
type recordingBoundaries struct {
	*boundary.Set
	mu      sync.Mutex
	queried map[int]int
}

func (rb *recordingBoundaries) IncidentFlux(q boundary.Query) []float64 {
	rb.mu.Lock()
	rb.queried[q.BoundaryID]++
	rb.mu.Unlock()
	return rb.Set.IncidentFlux(q)
}

// startFluxRecorder keeps the group 0 upwind value a chunk reads on the
// symmetry axis, keyed by direction, cell and local node
type startFluxRecorder struct {
	geometry
	d      int
	upwind map[[3]int]float64
}

func (sr *startFluxRecorder) beginDirection(d int) {
	sr.d = d
	sr.geometry.beginDirection(d)
}

func (sr *startFluxRecorder) startFlux(c, i int, gs GroupSubset) []float64 {
	psiUp := sr.geometry.startFlux(c, i, gs)
	sr.upwind[[3]int{sr.d, c, i}] = psiUp[0]
	return psiUp
}

func TestCylindricalSymmetryAxis(t *testing.T) {
	m, err := mesh.NewOrthogonal(linspace(0, 1, 6))
	require.NoError(t, err)
	q, err := quadrature.NewCylindricalUniform(quadrature.GaussLegendre(2), quadrature.GaussChebyshev(4), 1)
	require.NoError(t, err)
	_, err = q.BuildOperators(1, 1)
	require.NoError(t, err)
	mt, err := xs.NewMaterial("rod", []float64{1})
	require.NoError(t, err)
	pb := newProblem(t, m, q, types.Cylindrical, []xs.Material{mt}, nil)
	rb := &recordingBoundaries{Set: pb.bcs, queried: make(map[int]int)}
	nm := fluxes.NewNodeMap(m.NodesPerCell())
	for _, np := range []int{1, 2} {
		require.NoError(t, m.Partition(np))
		o, err := NewOrchestrator(m, q, pb.ucm, pb.lib, rb, Config{Aggregation: types.AggregateAzimuthal})
		require.NoError(t, err)
		recorders := make([]*startFluxRecorder, len(o.workers))
		for p, w := range o.workers {
			recorders[p] = &startFluxRecorder{geometry: w.chunk.geom, upwind: make(map[[3]int]float64)}
			w.chunk.geom = recorders[p]
		}
		src := o.NewMoments()
		isotropicSource(src, q.WeightSum(), 1)
		phi, psi := o.NewMoments(), o.NewAngular()
		require.NoError(t, o.Sweep(context.Background(), src, phi, psi))
		assert.Zero(t, rb.queried[mesh.ZMin], "the axis never asks the boundary conditions")
		assert.Positive(t, rb.queried[mesh.ZMax])
		for node := 0; node < phi.NumNodes; node++ {
			assert.Positive(t, phi.At(node, 0, 0))
			// a unit source in a purely absorbing medium bounds the scalar flux
			assert.Less(t, phi.At(node, 0, 0), q.WeightSum()*1.01)
		}
		{ // the axis feeds each outward direction the start flux of its level
			var axisReads int
			for _, rec := range recorders {
				for key, psiUp := range rec.upwind {
					d, c, i := key[0], key[1], key[2]
					assert.Equal(t, 0, c, "only the axis cell has a symmetry face")
					assert.Positive(t, q.Directions[d].Omega.Z, "direction %d moves away from the axis", d)
					l, pos := q.LevelOf(d)
					assert.Positive(t, pos)
					start := q.Levels[l].Start()
					assert.Equal(t, psi.At(nm.Node(c, i), start, 0), psiUp, "direction %d node %d", d, i)
					assert.Positive(t, psiUp)
					axisReads++
				}
			}
			// half of every level moves outward, one face node sits on the axis
			assert.Equal(t, q.NumDirections()/2, axisReads)
		}
	}
}
