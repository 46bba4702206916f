package cmd

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notargets/gosn/quadrature"
	"github.com/notargets/gosn/solver"
	"github.com/notargets/gosn/types"
)

func TestRunSlab(t *testing.T) {
	var (
		err error
	)
	path := filepath.Join(t.TempDir(), "slab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(exampleSlabFile), 0o644))
	sp, err := readSlabParameters(path)
	require.NoError(t, err)
	assert.Equal(t, "Source in a scattering slab", sp.Title)
	assert.Equal(t, 4, sp.ReflectingSweeps)
	sp.Print()

	res, b, err := RunSlab(context.Background(), sp, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, solver.StatusConverged, res.Status)
	assert.Less(t, res.Change, sp.Tolerance)
	assert.InDelta(t, 0.5, b.Production, 1.e-12)
	assert.Positive(t, b.Absorption)
	assert.Less(t, math.Abs(b.Relative()), 1.e-6, b.String())

	_, err = readSlabParameters(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunSlabCancelled(t *testing.T) {
	sp, err := readSlabParameters(writeTemp(t, exampleSlabFile))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = RunSlab(ctx, sp, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}

func writeTemp(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "input.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPrintQuadrature(t *testing.T) {
	reg := quadrature.NewRegistry(nil)
	{ // Cartesian slab quadrature with operators
		h, err := reg.Register(quadrature.Spec{
			Family: quadrature.FamilyGaussLegendre, CoordinateSystem: types.Cartesian,
			Dimension: 1, ScatteringOrder: 1, NPolar: 2,
		})
		require.NoError(t, err)
		q, err := reg.Get(h)
		require.NoError(t, err)
		op, err := reg.Operators(h)
		require.NoError(t, err)
		var buf bytes.Buffer
		PrintQuadrature(&buf, q, op, true)
		out := buf.String()
		assert.Contains(t, out, "4 directions")
		assert.Contains(t, out, "(0,0) (1,0)")
		assert.Contains(t, out, "M2D = ")
		assert.NotContains(t, out, "level 0")
	}
	{ // Spherical quadrature prints its polar level factors
		h, err := reg.Register(quadrature.Spec{
			Family: quadrature.FamilyGaussLegendre, CoordinateSystem: types.Spherical,
			Dimension: 1, NPolar: 4,
		})
		require.NoError(t, err)
		q, _ := reg.Get(h)
		var buf bytes.Buffer
		PrintQuadrature(&buf, q, nil, false)
		out := buf.String()
		assert.Contains(t, out, "level 0")
		assert.False(t, strings.Contains(out, "moments"))
	}
}
