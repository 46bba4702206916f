package source

import (
	"fmt"

	"github.com/notargets/gosn/fluxes"
	"github.com/notargets/gosn/mesh"
	"github.com/notargets/gosn/quadrature"
	"github.com/notargets/gosn/types"
	"github.com/notargets/gosn/xs"
)

// Terms selects the contributions Build adds to the source moments
type Terms uint8

const (
	Fixed Terms = 1 << iota
	Scattering
	// Fission adds chi_g sum_g' nu sigma_f,g' phi_0,g' to the zeroth moment
	Fission

	All = Fixed | Scattering | Fission
)

// Module assembles source moments from the fixed source and the
// scattering and fission of the previous flux iterate.
type Module struct {
	mesh     *mesh.Mesh
	nodeMap  fluxes.NodeMap
	ops      *quadrature.Operators
	xs       xs.Provider
	fixed    *fluxes.MomentVector
	nMoments int
}

func NewModule(m *mesh.Mesh, ops *quadrature.Operators, xsp xs.Provider) *Module {
	mod := &Module{
		mesh:     m,
		nodeMap:  fluxes.NewNodeMap(m.NodesPerCell()),
		ops:      ops,
		xs:       xsp,
		nMoments: ops.NumMoments(),
	}
	mod.fixed = fluxes.NewMomentVector(mod.nodeMap.NumNodes, mod.nMoments, xsp.NumGroups())
	return mod
}

// Fixed is the fixed source, callers may write it directly
func (mod *Module) Fixed() *fluxes.MomentVector { return mod.fixed }

// SetMaterialSources sets the fixed source of every node to the isotropic
// source density of its cell's material
func (mod *Module) SetMaterialSources() {
	mod.fixed.Zero()
	for id := range mod.mesh.Cells {
		S := mod.xs.Material(id).Source
		for i := 0; i < mod.mesh.Cells[id].NumNodes(); i++ {
			copy(mod.fixed.Groups(mod.nodeMap.Node(id, i), 0), S)
		}
	}
}

// Build overwrites dst with the selected source terms. Moments whose degree
// exceeds the scattering order of a cell's material get no scattering
// source.
func (mod *Module) Build(phiOld, dst *fluxes.MomentVector, terms Terms) (err error) {
	if !dst.SameShape(mod.fixed) || (terms&(Scattering|Fission) != 0 && !phiOld.SameShape(mod.fixed)) {
		return fmt.Errorf("%w: source moment shapes do not match", types.ErrConfiguration)
	}
	if terms&Fixed != 0 {
		dst.CopyFrom(mod.fixed)
	} else {
		dst.Zero()
	}
	if terms&Fission != 0 {
		mod.addFission(phiOld, dst)
	}
	if terms&Scattering == 0 {
		return
	}
	for id := range mod.mesh.Cells {
		transfer := mod.xs.Transfer(id)
		for i := 0; i < mod.mesh.Cells[id].NumNodes(); i++ {
			node := mod.nodeMap.Node(id, i)
			for _, mi := range mod.ops.MomentMap {
				if mi.Ell >= len(transfer) {
					continue
				}
				var (
					S     = transfer[mi.Ell]
					phi   = phiOld.Groups(node, mi.Index)
					q     = dst.Groups(node, mi.Index)
					nr, _ = S.Dims()
				)
				for g := 0; g < nr; g++ {
					S.DoRowNonZero(g, func(_, gp int, sigma float64) {
						q[g] += sigma * phi[gp]
					})
				}
			}
		}
	}
	return
}

func (mod *Module) addFission(phiOld, dst *fluxes.MomentVector) {
	for id := range mod.mesh.Cells {
		mat := mod.xs.Material(id)
		if !mat.IsFissile() {
			continue
		}
		for i := 0; i < mod.mesh.Cells[id].NumNodes(); i++ {
			var (
				node = mod.nodeMap.Node(id, i)
				F    = mat.FissionRate(phiOld.Groups(node, 0))
				q    = dst.Groups(node, 0)
			)
			for g, chi := range mat.Chi {
				q[g] += chi * F
			}
		}
	}
}
