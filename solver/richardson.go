package solver

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/notargets/gosn/fluxes"
	"github.com/notargets/gosn/source"
	"github.com/notargets/gosn/utils"
)

type Status uint8

const (
	StatusConverged Status = iota
	StatusConvergenceFailure
	// StatusStopped means the callback ended the iteration
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "Converged"
	case StatusConvergenceFailure:
		return "ConvergenceFailure"
	case StatusStopped:
		return "Stopped"
	}
	return "Unknown"
}

// Iteration reports one completed outer iteration to the callback
type Iteration struct {
	Number int
	Change float64
	Sweeps int
}

type Result struct {
	Status     Status
	Iterations int
	Change     float64
}

// Sweeper runs one full transport sweep for a given source
type Sweeper interface {
	Sweep(ctx context.Context, src, phi *fluxes.MomentVector, psi *fluxes.AngularVector) error
	NewMoments() *fluxes.MomentVector
	NewAngular() *fluxes.AngularVector
}

type SourceBuilder interface {
	Build(phiOld, dst *fluxes.MomentVector, terms source.Terms) error
}

// Richardson is the source iteration: each iteration builds the source
// from the previous flux moments and sweeps it.
type Richardson struct {
	Tolerance float64
	// ReflectingSweeps caps the sweeps per iteration when reflecting
	// boundaries are present
	ReflectingSweeps int
	PhiOld, PhiNew   *fluxes.MomentVector
	Source           *fluxes.MomentVector
	Psi              *fluxes.AngularVector

	sweeper    Sweeper
	builder    SourceBuilder
	reflecting bool
	phiSweep   *fluxes.MomentVector
	logger     *zap.Logger
}

func NewRichardson(sw Sweeper, sb SourceBuilder, reflecting bool, tolerance float64, logger *zap.Logger) *Richardson {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Richardson{
		Tolerance:        tolerance,
		ReflectingSweeps: 1,
		PhiOld:           sw.NewMoments(),
		PhiNew:           sw.NewMoments(),
		Source:           sw.NewMoments(),
		Psi:              sw.NewAngular(),
		sweeper:          sw,
		builder:          sb,
		reflecting:       reflecting,
		logger:           logger,
	}
	if reflecting {
		r.phiSweep = sw.NewMoments()
	}
	return r
}

// NewProblemRichardson iterates a problem
func NewProblemRichardson(pb *Problem, tolerance float64, logger *zap.Logger) *Richardson {
	return NewRichardson(pb.Sweeper, pb.Source, pb.HasReflecting(), tolerance, logger)
}

// Run performs up to n iterations. The iteration stops once the pointwise
// change falls below the tolerance after the first iteration, or when
// callback returns false. Running out of iterations is reported in the
// result status, not as an error.
func (r *Richardson) Run(ctx context.Context, n int, callback func(Iteration) bool) (res Result, err error) {
	res.Status = StatusConvergenceFailure
	for it := 0; it < n; it++ {
		if err = r.builder.Build(r.PhiOld, r.Source, source.All); err != nil {
			return
		}
		var sweeps int
		if sweeps, err = r.sweep(ctx); err != nil {
			return
		}
		change := PointwiseChange(r.PhiNew, r.PhiOld)
		r.PhiOld.CopyFrom(r.PhiNew)
		res.Iterations, res.Change = it+1, change
		r.logger.Info("source iteration",
			zap.Int("iteration", it),
			zap.Float64("change", change),
			zap.Int("sweeps", sweeps))
		if callback != nil && !callback(Iteration{Number: it, Change: change, Sweeps: sweeps}) {
			res.Status = StatusStopped
			return
		}
		if change < r.Tolerance && it > 0 {
			res.Status = StatusConverged
			return
		}
	}
	r.logger.Warn("source iteration did not converge",
		zap.Int("iterations", res.Iterations),
		zap.Float64("change", res.Change),
		zap.Float64("tolerance", r.Tolerance))
	return
}

// sweep solves for PhiNew. With reflecting boundaries the sweep repeats,
// up to ReflectingSweeps times, until the reflected flux settles.
func (r *Richardson) sweep(ctx context.Context) (sweeps int, err error) {
	nSweeps := 1
	if r.reflecting {
		nSweeps = max(1, r.ReflectingSweeps)
	}
	for sweeps < nSweeps {
		if sweeps > 0 {
			r.phiSweep.CopyFrom(r.PhiNew)
		}
		r.PhiNew.Zero()
		if err = r.sweeper.Sweep(ctx, r.Source, r.PhiNew, r.Psi); err != nil {
			return
		}
		sweeps++
		if sweeps > 1 && PointwiseChange(r.PhiNew, r.phiSweep) < r.Tolerance {
			return
		}
	}
	return
}

// PointwiseChange is the largest change of any entry between two flux
// moment vectors, relative to the larger magnitude of the entry's two
// values. Where both values are below the smallest normal the change is
// absolute.
func PointwiseChange(phiNew, phiOld *fluxes.MomentVector) (change float64) {
	for i, vNew := range phiNew.Data {
		vOld := phiOld.Data[i]
		delta := math.Abs(vNew - vOld)
		if den := math.Max(math.Abs(vNew), math.Abs(vOld)); den >= utils.SmallestNormal {
			delta /= den
		}
		change = math.Max(change, delta)
	}
	return
}
