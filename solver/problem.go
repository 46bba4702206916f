package solver

import (
	"go.uber.org/zap"

	"github.com/notargets/gosn/boundary"
	"github.com/notargets/gosn/fem"
	"github.com/notargets/gosn/mesh"
	"github.com/notargets/gosn/quadrature"
	"github.com/notargets/gosn/source"
	"github.com/notargets/gosn/sweep"
	"github.com/notargets/gosn/types"
	"github.com/notargets/gosn/xs"
)

// Problem is a fixed source transport problem ready to iterate
type Problem struct {
	Mesh       *mesh.Mesh
	Quadrature *quadrature.Quadrature
	Cells      []fem.UnitCellMatrices
	XS         *xs.Library
	Boundaries *boundary.Set
	Sweeper    *sweep.Orchestrator
	Source     *source.Module
	reflecting bool
}

// NewProblem wires a partitioned mesh, a quadrature with built operators
// and the materials into a sweep and a source module. The fixed source is
// taken from the materials.
func NewProblem(m *mesh.Mesh, q *quadrature.Quadrature, materials []xs.Material,
	specs map[int]boundary.Spec, cfg sweep.Config) (pb *Problem, err error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	pb = &Problem{Mesh: m, Quadrature: q}
	if pb.Cells, err = fem.Build(m, q.System); err != nil {
		return nil, err
	}
	if pb.XS, err = xs.NewLibrary(m, materials); err != nil {
		return nil, err
	}
	if pb.Boundaries, err = boundary.NewSet(m, q, pb.XS.NumGroups(), specs); err != nil {
		return nil, err
	}
	if pb.Sweeper, err = sweep.NewOrchestrator(m, q, pb.Cells, pb.XS, pb.Boundaries, cfg); err != nil {
		return nil, err
	}
	pb.Source = source.NewModule(m, pb.Sweeper.Operators, pb.XS)
	pb.Source.SetMaterialSources()
	for _, sp := range specs {
		if sp.Type == types.BoundaryReflecting {
			pb.reflecting = true
		}
	}
	cfg.Logger.Debug("problem assembled",
		zap.Int("cells", len(m.Cells)),
		zap.Int("partitions", m.NumPartitions),
		zap.String("quadrature", q.Name),
		zap.Int("directions", q.NumDirections()),
		zap.Int("moments", pb.Sweeper.Operators.NumMoments()),
		zap.Int("groups", pb.XS.NumGroups()),
		zap.Stringer("geometry", q.System))
	return
}

func (pb *Problem) HasReflecting() bool { return pb.reflecting }
