package InputParameters

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gosn/mesh"
	"github.com/notargets/gosn/solver"
	"github.com/notargets/gosn/types"
)

var slabInput = `
########################################
Title: "Scattering slab"
CoordinateSystem: slab
Axes:
  - Min: -1
    Max: 1
    Cells: 10
Partitions: 2
Quadrature:
  Family: gl
  NPolar: 2
Materials:
  - Name: scatterer
    SigmaT: [0.2]
    Transfer: [[[0.1]]]
  - Name: source
    SigmaT: [0.2]
    Transfer: [[[0.1]]]
    Source: [1]
Regions:
  - Material: 1
    Min: [-0.55]
    Max: [0.55]
BCs:
  zmin:
    Type: vacuum
  ZMax:
    Type: Vacuum
Tolerance: 1.e-12
MaxIterations: 500
########################################
`

func TestParse(t *testing.T) {
	sp := &SlabParameters{}
	require.NoError(t, sp.Parse([]byte(slabInput)))
	assert.Equal(t, "Scattering slab", sp.Title)
	require.Len(t, sp.Axes, 1)
	assert.Equal(t, 10, sp.Axes[0].Cells)
	assert.Equal(t, 2, sp.Quadrature.NPolar)
	require.Len(t, sp.Materials, 2)
	assert.Equal(t, [][][]float64{{{0.1}}}, sp.Materials[1].Transfer)
	assert.Equal(t, []float64{1}, sp.Materials[1].Source)
	assert.Equal(t, 1.e-12, sp.Tolerance)
	{ // Defaults
		assert.Equal(t, 1, sp.ReflectingSweeps)
		assert.Equal(t, "", sp.Aggregation)
		empty := &SlabParameters{}
		require.NoError(t, empty.Parse([]byte("Title: empty\n")))
		assert.Equal(t, "cartesian", empty.CoordinateSystem)
		assert.Equal(t, 1, empty.Partitions)
		assert.Equal(t, "gl", empty.Quadrature.Family)
		assert.Equal(t, 1.e-6, empty.Tolerance)
		assert.Equal(t, 100, empty.MaxIterations)
	}
	{ // Malformed YAML
		bad := &SlabParameters{}
		assert.Error(t, bad.Parse([]byte("Axes: [1, 2\n")))
	}
}

func TestMesh(t *testing.T) {
	sp := &SlabParameters{}
	require.NoError(t, sp.Parse([]byte(slabInput)))
	m, err := sp.Mesh()
	require.NoError(t, err)
	assert.Equal(t, 1, m.Dimension)
	assert.Len(t, m.Cells, 10)
	assert.Equal(t, 2, m.NumPartitions)
	var nSource int
	for _, c := range m.Cells {
		if c.Material == 1 {
			nSource++
			assert.LessOrEqual(t, math.Abs(c.Centroid().Z), 0.55)
		}
	}
	assert.Equal(t, 6, nSource)
	{ // Explicit vertices
		sp.Axes = []AxisParameters{{Vertices: []float64{0, 0.5, 2}}, {Min: 0, Max: 1, Cells: 3}}
		sp.Regions = nil
		m, err = sp.Mesh()
		require.NoError(t, err)
		assert.Equal(t, 2, m.Dimension)
		assert.Len(t, m.Cells, 6)
	}
	{ // Region dimension mismatch and unknown material
		sp.Regions = []RegionParameters{{Material: 0, Min: []float64{0}, Max: []float64{1}}}
		_, err = sp.Mesh()
		assert.ErrorIs(t, err, types.ErrConfiguration)
		sp.Regions = []RegionParameters{{Material: 5, Min: []float64{0, 0}, Max: []float64{1, 1}}}
		_, err = sp.Mesh()
		assert.ErrorIs(t, err, types.ErrConfiguration)
	}
	{ // Degenerate axis
		sp.Regions = nil
		sp.Axes = []AxisParameters{{Min: 1, Max: 0, Cells: 4}}
		_, err = sp.Mesh()
		assert.ErrorIs(t, err, types.ErrConfiguration)
	}
}

func TestConfiguration(t *testing.T) {
	sp := &SlabParameters{}
	require.NoError(t, sp.Parse([]byte(slabInput)))
	{ // Boundary names are case insensitive
		specs, err := sp.BoundarySpecs()
		require.NoError(t, err)
		assert.Len(t, specs, 2)
		assert.Equal(t, types.BoundaryVacuum, specs[mesh.ZMin].Type)
		assert.Equal(t, types.BoundaryVacuum, specs[mesh.ZMax].Type)
		sp.BCs["top"] = BCParameters{Type: "vacuum"}
		_, err = sp.BoundarySpecs()
		assert.ErrorIs(t, err, types.ErrConfiguration)
		delete(sp.BCs, "top")
		sp.BCs["zmin"] = BCParameters{Type: "periodic"}
		_, err = sp.BoundarySpecs()
		assert.ErrorIs(t, err, types.ErrConfiguration)
	}
	{ // Aggregation follows the coordinate system unless given
		cfg, err := sp.SweepConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, types.AggregateSingle, cfg.Aggregation)
		assert.True(t, cfg.SurfaceSourceActive)
		sp.CoordinateSystem = "rz"
		cfg, err = sp.SweepConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, types.AggregateAzimuthal, cfg.Aggregation)
		sp.CoordinateSystem = "spherical"
		cfg, err = sp.SweepConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, types.AggregatePolar, cfg.Aggregation)
		sp.Aggregation = "polar"
		sp.CoordinateSystem = "rz"
		cfg, err = sp.SweepConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, types.AggregatePolar, cfg.Aggregation)
	}
	{ // Materials
		mats, err := sp.MaterialList()
		require.NoError(t, err)
		require.Len(t, mats, 2)
		assert.Equal(t, []float64{0}, mats[0].Source)
		assert.Equal(t, []float64{1}, mats[1].Source)
		assert.False(t, mats[1].IsFissile())
		sp.Materials[0].NuSigmaF, sp.Materials[0].Chi = []float64{0.05}, []float64{2}
		mats, err = sp.MaterialList()
		require.NoError(t, err)
		assert.True(t, mats[0].IsFissile())
		assert.Equal(t, []float64{1}, mats[0].Chi)
		sp.Materials[0].Chi = nil
		_, err = sp.MaterialList()
		assert.ErrorIs(t, err, types.ErrConfiguration)
		sp.Materials[0].NuSigmaF = nil
		sp.Materials[1].Source = []float64{1, 2}
		_, err = sp.MaterialList()
		assert.ErrorIs(t, err, types.ErrConfiguration)
		sp.Materials = nil
		_, err = sp.MaterialList()
		assert.ErrorIs(t, err, types.ErrConfiguration)
	}
	{ // Quadrature
		sp.Quadrature.Family = "lebedev"
		_, err := sp.QuadratureSpec()
		assert.ErrorIs(t, err, types.ErrConfiguration)
	}
}

func TestProblem(t *testing.T) {
	{ // Fixed source slab converges and balances
		sp := &SlabParameters{}
		require.NoError(t, sp.Parse([]byte(slabInput)))
		pb, err := sp.Problem(nil)
		require.NoError(t, err)
		r := sp.Richardson(pb, nil)
		res, err := r.Run(context.Background(), sp.MaxIterations, nil)
		require.NoError(t, err)
		assert.Equal(t, solver.StatusConverged, res.Status)
		b := pb.Balance(r.PhiOld, r.Psi)
		assert.InDelta(t, 1.2, b.Production, 1.e-12)
		assert.Less(t, math.Abs(b.Relative()), 1.e-9, b.String())
	}
	{ // Isotropic incident flux on a source free absorber
		sp := &SlabParameters{}
		require.NoError(t, sp.Parse([]byte(slabInput)))
		sp.Regions = nil
		sp.BCs["zmin"] = BCParameters{Type: "isotropic", Values: []float64{1}}
		pb, err := sp.Problem(nil)
		require.NoError(t, err)
		r := sp.Richardson(pb, nil)
		res, err := r.Run(context.Background(), sp.MaxIterations, nil)
		require.NoError(t, err)
		assert.Equal(t, solver.StatusConverged, res.Status)
		b := pb.Balance(r.PhiOld, r.Psi)
		assert.Zero(t, b.Production)
		assert.Positive(t, b.Inflow)
		assert.Less(t, math.Abs(b.Relative()), 1.e-9, b.String())
		// the flux decays away from the lit face
		assert.Greater(t, r.PhiOld.At(0, 0, 0), r.PhiOld.At(r.PhiOld.NumNodes-1, 0, 0))
	}
	{ // Reflecting boundary sets the sweep count
		sp := &SlabParameters{}
		require.NoError(t, sp.Parse([]byte(slabInput)))
		sp.BCs["zmin"] = BCParameters{Type: "reflecting"}
		sp.ReflectingSweeps = 4
		pb, err := sp.Problem(nil)
		require.NoError(t, err)
		assert.True(t, pb.HasReflecting())
		assert.Equal(t, 4, sp.Richardson(pb, nil).ReflectingSweeps)
	}
	{ // Bad coordinate system
		sp := &SlabParameters{}
		require.NoError(t, sp.Parse([]byte(slabInput)))
		sp.CoordinateSystem = "toroidal"
		_, err := sp.Problem(nil)
		assert.ErrorIs(t, err, types.ErrConfiguration)
	}
}
