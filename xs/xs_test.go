package xs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gosn/mesh"
	"github.com/notargets/gosn/types"
)

func TestMaterial(t *testing.T) {
	{ // two groups with downscatter and P1 self scatter
		mt, err := NewMaterial("fuel", []float64{1, 2},
			[][]float64{{0.5, 0}, {0.25, 1.5}},
			[][]float64{{0.1, 0}, {0, 0.2}},
		)
		require.NoError(t, err)
		assert.Equal(t, 2, mt.NumGroups())
		assert.Equal(t, 1, mt.ScatteringOrder())
		assert.Equal(t, 0.25, mt.Transfer[0].At(1, 0))
		assert.Equal(t, 0., mt.Transfer[0].At(0, 1))
		assert.InDelta(t, 1-0.75, mt.Absorption(0), 1.e-15)
		assert.InDelta(t, 0.5, mt.Absorption(1), 1.e-15)
		var row []float64
		mt.Transfer[0].DoRowNonZero(1, func(_, j int, v float64) { row = append(row, v) })
		assert.ElementsMatch(t, []float64{0.25, 1.5}, row)
	}
	{ // pure absorber
		mt, err := NewMaterial("absorber", []float64{3})
		require.NoError(t, err)
		assert.Equal(t, -1, mt.ScatteringOrder())
		assert.Equal(t, 3., mt.Absorption(0))
	}
	{
		_, err := NewMaterial("bad", nil)
		assert.ErrorIs(t, err, types.ErrConfiguration)
		_, err = NewMaterial("bad", []float64{-1})
		assert.ErrorIs(t, err, types.ErrConfiguration)
		_, err = NewMaterial("bad", []float64{1, 1}, [][]float64{{1, 0}})
		assert.ErrorIs(t, err, types.ErrConfiguration)
		_, err = NewMaterial("bad", []float64{1, 1}, [][]float64{{1, 0}, {1}})
		assert.ErrorIs(t, err, types.ErrConfiguration)
	}
}

func TestFission(t *testing.T) {
	mt, err := NewMaterial("fuel", []float64{1, 2})
	require.NoError(t, err)
	assert.False(t, mt.IsFissile())
	assert.Zero(t, mt.FissionRate([]float64{1, 1}))
	{ // the spectrum is normalized
		require.NoError(t, mt.SetFission([]float64{0.1, 0.4}, []float64{3, 1}))
		assert.True(t, mt.IsFissile())
		assert.Equal(t, []float64{0.75, 0.25}, mt.Chi)
		assert.InDelta(t, 0.1*2+0.4*3, mt.FissionRate([]float64{2, 3}), 1.e-15)
	}
	{
		fuel := mt
		assert.ErrorIs(t, fuel.SetFission([]float64{0.1}, []float64{1, 0}), types.ErrConfiguration)
		assert.ErrorIs(t, fuel.SetFission([]float64{0.1, -0.1}, []float64{1, 0}), types.ErrConfiguration)
		assert.ErrorIs(t, fuel.SetFission([]float64{0.1, 0.1}, []float64{0, 0}), types.ErrConfiguration)
		assert.Equal(t, []float64{0.75, 0.25}, fuel.Chi)
	}
	{ // a library rejects fission data of the wrong size
		m, err := mesh.NewOrthogonal([]float64{0, 1})
		require.NoError(t, err)
		bad := mt
		bad.Chi = []float64{1}
		_, err = NewLibrary(m, []Material{bad})
		assert.ErrorIs(t, err, types.ErrConfiguration)
		lib, err := NewLibrary(m, []Material{mt})
		require.NoError(t, err)
		assert.True(t, lib.Material(0).IsFissile())
	}
}

func TestLibrary(t *testing.T) {
	m, err := mesh.NewOrthogonal([]float64{0, 1, 2, 3})
	require.NoError(t, err)
	m.SetMaterials(func(c *mesh.Cell) int {
		if c.Centroid().Z > 2 {
			return 1
		}
		return 0
	})
	a, err := NewMaterial("a", []float64{1}, [][]float64{{0.5}})
	require.NoError(t, err)
	b, err := NewMaterial("b", []float64{4})
	require.NoError(t, err)
	lib, err := NewLibrary(m, []Material{a, b})
	require.NoError(t, err)
	assert.Equal(t, 1, lib.NumGroups())
	assert.Equal(t, []float64{1}, lib.SigmaT(1))
	assert.Equal(t, []float64{4}, lib.SigmaT(2))
	assert.Len(t, lib.Transfer(0), 1)
	assert.Len(t, lib.Transfer(2), 0)
	assert.Equal(t, "b", lib.Material(2).Name)

	c, err := NewMaterial("c", []float64{1, 1})
	require.NoError(t, err)
	_, err = NewLibrary(m, []Material{a, c})
	assert.ErrorIs(t, err, types.ErrConfiguration)
	_, err = NewLibrary(m, []Material{a})
	assert.ErrorIs(t, err, types.ErrConfiguration)
}
