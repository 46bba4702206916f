package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gosn/mesh"
	"github.com/notargets/gosn/quadrature"
	"github.com/notargets/gosn/types"
	"github.com/notargets/gosn/xs"
)

func setup(t *testing.T) (mod *Module, nNodes int) {
	m, err := mesh.NewOrthogonal([]float64{0, 1, 2})
	require.NoError(t, err)
	m.SetMaterials(func(c *mesh.Cell) int { return c.ID })
	q, err := quadrature.NewProductGaussLegendre(2)
	require.NoError(t, err)
	ops, err := q.BuildOperators(2, 1)
	require.NoError(t, err)
	// P1 scatterer with downscatter, and a pure absorber
	a, err := xs.NewMaterial("a", []float64{1, 2},
		[][]float64{{0.5, 0}, {0.25, 1}},
		[][]float64{{0.1, 0}, {0, 0.2}},
	)
	require.NoError(t, err)
	a.Source = []float64{1, 0}
	b, err := xs.NewMaterial("b", []float64{3, 3})
	require.NoError(t, err)
	b.Source = []float64{0, 2}
	lib, err := xs.NewLibrary(m, []xs.Material{a, b})
	require.NoError(t, err)
	return NewModule(m, ops, lib), 4
}

func TestBuild(t *testing.T) {
	mod, N := setup(t)
	mod.SetMaterialSources()
	phi := mod.Fixed().Clone()
	for i := range phi.Data {
		phi.Data[i] = float64(i%5) + 1
	}
	src := mod.Fixed().Clone()
	require.NoError(t, mod.Build(phi, src, All))
	for node := 0; node < N; node++ {
		for m := 0; m < 3; m++ {
			p0, p1 := phi.At(node, m, 0), phi.At(node, m, 1)
			var want [2]float64
			if m == 0 {
				// the fixed source is isotropic
				want = [2]float64{0, 2}
				if node < 2 {
					want = [2]float64{1, 0}
				}
			}
			if node < 2 {
				switch m {
				case 0:
					want[0] += 0.5 * p0
					want[1] += 0.25*p0 + p1
				case 1:
					want[0] += 0.1 * p0
					want[1] += 0.2 * p1
				}
			}
			assert.InDelta(t, want[0], src.At(node, m, 0), 1.e-13, "node %d moment %d", node, m)
			assert.InDelta(t, want[1], src.At(node, m, 1), 1.e-13, "node %d moment %d", node, m)
		}
	}
	{ // idempotent
		again := mod.Fixed().Clone()
		require.NoError(t, mod.Build(phi, again, All))
		assert.Equal(t, src.Data, again.Data)
	}
	{ // terms
		scat := mod.Fixed().Clone()
		require.NoError(t, mod.Build(phi, scat, Scattering))
		fixed := mod.Fixed().Clone()
		require.NoError(t, mod.Build(nil, fixed, Fixed))
		assert.Equal(t, mod.Fixed().Data, fixed.Data)
		for i := range src.Data {
			assert.InDelta(t, src.Data[i], scat.Data[i]+fixed.Data[i], 1.e-13)
		}
	}
	bad := mod.Fixed().Clone()
	bad.NumGroups = 1
	assert.ErrorIs(t, mod.Build(phi, bad, All), types.ErrConfiguration)
}

func TestFissionSource(t *testing.T) {
	mod, N := setup(t)
	lib := mod.xs.(*xs.Library)
	// material b fills cell 1, all fission neutrons are born in group 0
	require.NoError(t, lib.Materials[1].SetFission([]float64{0.5, 1}, []float64{1, 0}))
	mod.SetMaterialSources()
	phi := mod.Fixed().Clone()
	for i := range phi.Data {
		phi.Data[i] = float64(i%3) + 1
	}
	fission := mod.Fixed().Clone()
	require.NoError(t, mod.Build(phi, fission, Fission))
	for node := 0; node < N; node++ {
		for m := 0; m < 3; m++ {
			var want float64
			if node >= 2 && m == 0 {
				want = 0.5*phi.At(node, 0, 0) + phi.At(node, 0, 1)
			}
			assert.InDelta(t, want, fission.At(node, m, 0), 1.e-13, "node %d moment %d", node, m)
			assert.Zero(t, fission.At(node, m, 1))
		}
	}
	{ // All is the sum of its terms
		all := mod.Fixed().Clone()
		require.NoError(t, mod.Build(phi, all, All))
		rest := mod.Fixed().Clone()
		require.NoError(t, mod.Build(phi, rest, Fixed|Scattering))
		for i := range all.Data {
			assert.InDelta(t, all.Data[i], rest.Data[i]+fission.Data[i], 1.e-13)
		}
	}
	assert.ErrorIs(t, mod.Build(nil, fission, Fission), types.ErrConfiguration)
}
