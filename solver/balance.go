package solver

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gosn/boundary"
	"github.com/notargets/gosn/fluxes"
	"github.com/notargets/gosn/mesh"
)

// Balance is the particle balance of a solution, summed over groups
type Balance struct {
	Absorption, Production float64
	Inflow, Outflow        float64
}

// Residual is gains less losses
func (b Balance) Residual() float64 {
	return b.Inflow + b.Production - b.Outflow - b.Absorption
}

// Relative scales the residual by the larger of gains and losses
func (b Balance) Relative() float64 {
	scale := math.Max(b.Inflow+b.Production, b.Outflow+b.Absorption)
	if scale == 0 {
		return 0
	}
	return b.Residual() / scale
}

func (b Balance) String() string {
	return fmt.Sprintf("absorption %.6e production %.6e inflow %.6e outflow %.6e residual %.3e",
		b.Absorption, b.Production, b.Inflow, b.Outflow, b.Residual())
}

func (b Balance) Log(logger *zap.Logger) {
	logger.Info("balance",
		zap.Float64("absorption", b.Absorption),
		zap.Float64("production", b.Production),
		zap.Float64("inflow", b.Inflow),
		zap.Float64("outflow", b.Outflow),
		zap.Float64("relative residual", b.Relative()))
}

// Balance integrates absorption and production (fixed source plus fission)
// over the domain and the angular flux crossing the boundary. Incident flux on
// reflecting boundaries is the flux the next sweep would receive.
func (pb *Problem) Balance(phi *fluxes.MomentVector, psi *fluxes.AngularVector) (b Balance) {
	var (
		m     = pb.Mesh
		q     = pb.Quadrature
		nm    = pb.Sweeper.NodeMap
		fixed = pb.Source.Fixed()
		G     = pb.XS.NumGroups()
	)
	for id := range m.Cells {
		var (
			c   = &m.Cells[id]
			um  = &pb.Cells[id]
			mat = pb.XS.Material(id)
		)
		for i := 0; i < um.NumNodes; i++ {
			node := nm.Node(id, i)
			for g := 0; g < G; g++ {
				b.Absorption += mat.Absorption(g) * phi.At(node, 0, g) * um.IntV[i]
				b.Production += fixed.At(node, 0, g) * um.IntV[i]
			}
			if mat.IsFissile() {
				b.Production += floats.Sum(mat.Chi) * mat.FissionRate(phi.Groups(node, 0)) * um.IntV[i]
			}
		}
		for fn := range c.Faces {
			f := &c.Faces[fn]
			if f.HasNeighbor() || (q.System.IsCurvilinear() && mesh.IsSymmetryFace(f, m.Dimension)) {
				continue
			}
			for d, dir := range q.Directions {
				mu := r3.Dot(dir.Omega, f.Normal)
				for fi, i := range f.Nodes {
					wS := dir.Weight * math.Abs(mu) * um.IntS[fn][i]
					switch {
					case mu > 0:
						node := nm.Node(id, i)
						for g := 0; g < G; g++ {
							b.Outflow += wS * psi.At(node, d, g)
						}
					case mu < 0:
						psiIn := pb.Boundaries.IncidentFlux(boundary.Query{
							BoundaryID:          f.BoundaryID,
							Direction:           d,
							Cell:                id,
							Face:                fn,
							FaceNode:            fi,
							GroupCount:          G,
							SurfaceSourceActive: pb.Sweeper.SurfaceSourceActive(),
						})
						for g := 0; g < G; g++ {
							b.Inflow += wS * psiIn[g]
						}
					}
				}
			}
		}
	}
	return
}
