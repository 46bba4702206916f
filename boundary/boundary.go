package boundary

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gosn/mesh"
	"github.com/notargets/gosn/quadrature"
	"github.com/notargets/gosn/types"
)

// Query identifies the incident flux wanted on one node of a boundary face
// for a contiguous range of groups.
type Query struct {
	BoundaryID          int
	Direction           int
	Cell, Face          int
	FaceNode            int
	GroupFirst          int
	GroupCount          int
	SurfaceSourceActive bool
}

// Provider returns incident angular flux on physical boundaries. The
// returned slice holds GroupCount values and must not be modified.
type Provider interface {
	IncidentFlux(q Query) []float64
}

// Condition is the incident flux rule attached to one boundary id
type Condition interface {
	Provider
	Type() types.BoundaryType
}

// Outgoing is implemented by conditions that record the flux leaving the
// domain through their faces
type Outgoing interface {
	Store(cell, face, d, faceNode, groupFirst int, psi []float64)
}

type Vacuum struct {
	zero []float64
}

func NewVacuum(numGroups int) *Vacuum { return &Vacuum{zero: make([]float64, numGroups)} }

func (v *Vacuum) Type() types.BoundaryType { return types.BoundaryVacuum }

func (v *Vacuum) IncidentFlux(q Query) []float64 {
	return v.zero[q.GroupFirst : q.GroupFirst+q.GroupCount]
}

// Isotropic is a uniform incident angular flux per group, switched off when
// the surface source is inactive.
type Isotropic struct {
	Values []float64
	zero   []float64
}

func NewIsotropic(values []float64) *Isotropic {
	return &Isotropic{Values: values, zero: make([]float64, len(values))}
}

func (iso *Isotropic) Type() types.BoundaryType { return types.BoundaryIsotropic }

func (iso *Isotropic) IncidentFlux(q Query) []float64 {
	if !q.SurfaceSourceActive {
		return iso.zero[q.GroupFirst : q.GroupFirst+q.GroupCount]
	}
	return iso.Values[q.GroupFirst : q.GroupFirst+q.GroupCount]
}

// Reflecting mirrors the outgoing flux of the previous sweep back into the
// domain. Outgoing flux is written to the current slot while incident flux
// is read from the previous slot, Swap exchanges the two between sweeps.
type Reflecting struct {
	Normal    r3.Vec
	reflected []int // reflected[d] is the direction d mirrors into
	faceSlot  map[[2]int]int
	nDirs     int
	nGroups   int
	prev, cur []float64
}

// NewReflecting allocates storage for every face of the mesh carrying
// boundaryID. The faces must be coplanar and the quadrature must contain
// the mirror image of each of its directions.
func NewReflecting(m *mesh.Mesh, q *quadrature.Quadrature, boundaryID, numGroups int) (rf *Reflecting, err error) {
	rf = &Reflecting{
		faceSlot: make(map[[2]int]int),
		nDirs:    q.NumDirections(),
		nGroups:  numGroups,
	}
	var (
		size  int
		found bool
	)
	for id := range m.Cells {
		c := &m.Cells[id]
		for fn := range c.Faces {
			f := &c.Faces[fn]
			if f.HasNeighbor() || f.BoundaryID != boundaryID {
				continue
			}
			if !found {
				rf.Normal, found = f.Normal, true
			} else if r3.Norm(r3.Sub(rf.Normal, f.Normal)) > 1.e-8 {
				return nil, fmt.Errorf("%w: reflecting boundary %d is not planar",
					types.ErrConfiguration, boundaryID)
			}
			rf.faceSlot[[2]int{id, fn}] = size
			size += len(f.Nodes) * rf.nDirs * numGroups
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: no faces carry reflecting boundary %d",
			types.ErrConfiguration, boundaryID)
	}
	if rf.reflected, err = ReflectedDirections(q, rf.Normal); err != nil {
		return nil, err
	}
	rf.prev, rf.cur = make([]float64, size), make([]float64, size)
	return
}

// ReflectedDirections maps each direction to the one satisfying
// Omega' = Omega - 2(Omega.n)n
func ReflectedDirections(q *quadrature.Quadrature, normal r3.Vec) (refl []int, err error) {
	const tol = 1.e-8
	refl = make([]int, q.NumDirections())
	for d, dir := range q.Directions {
		target := r3.Sub(dir.Omega, r3.Scale(2*r3.Dot(dir.Omega, normal), normal))
		refl[d] = -1
		for dd, cand := range q.Directions {
			if r3.Norm(r3.Sub(cand.Omega, target)) < tol {
				refl[d] = dd
				break
			}
		}
		if refl[d] < 0 {
			return nil, fmt.Errorf("%w: quadrature %q has no reflection of direction %d about %v",
				types.ErrConfiguration, q.Name, d, normal)
		}
	}
	return
}

func (rf *Reflecting) Type() types.BoundaryType { return types.BoundaryReflecting }

func (rf *Reflecting) offset(cell, face, d, faceNode, g int) int {
	base, ok := rf.faceSlot[[2]int{cell, face}]
	if !ok {
		panic(fmt.Errorf("face %d of cell %d is not on this reflecting boundary", face, cell))
	}
	return base + (faceNode*rf.nDirs+d)*rf.nGroups + g
}

func (rf *Reflecting) IncidentFlux(q Query) []float64 {
	i := rf.offset(q.Cell, q.Face, rf.reflected[q.Direction], q.FaceNode, q.GroupFirst)
	return rf.prev[i : i+q.GroupCount]
}

// Store writes outgoing flux for direction d into the current slot
func (rf *Reflecting) Store(cell, face, d, faceNode, groupFirst int, psi []float64) {
	i := rf.offset(cell, face, d, faceNode, groupFirst)
	copy(rf.cur[i:i+len(psi)], psi)
}

func (rf *Reflecting) Swap() { rf.prev, rf.cur = rf.cur, rf.prev }

// Spec describes the condition of one boundary in a problem description
type Spec struct {
	Type   types.BoundaryType
	Values []float64 // isotropic incident flux per group
}

// Set dispatches queries to the condition attached to each boundary id,
// boundaries without a condition are vacuum.
type Set struct {
	conditions map[int]Condition
	vacuum     *Vacuum
}

func NewSet(m *mesh.Mesh, q *quadrature.Quadrature, numGroups int, specs map[int]Spec) (s *Set, err error) {
	s = &Set{conditions: make(map[int]Condition), vacuum: NewVacuum(numGroups)}
	for bid, sp := range specs {
		switch sp.Type {
		case types.BoundaryVacuum:
			s.conditions[bid] = s.vacuum
		case types.BoundaryIsotropic:
			if len(sp.Values) != numGroups {
				return nil, fmt.Errorf("%w: boundary %d has %d incident values, need %d",
					types.ErrConfiguration, bid, len(sp.Values), numGroups)
			}
			s.conditions[bid] = NewIsotropic(sp.Values)
		case types.BoundaryReflecting:
			if s.conditions[bid], err = NewReflecting(m, q, bid, numGroups); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: boundary %d has unknown type %v", types.ErrConfiguration, bid, sp.Type)
		}
	}
	return
}

func (s *Set) Condition(bid int) Condition {
	if c, ok := s.conditions[bid]; ok {
		return c
	}
	return s.vacuum
}

func (s *Set) IncidentFlux(q Query) []float64 { return s.Condition(q.BoundaryID).IncidentFlux(q) }

// Reflecting returns the reflecting conditions ordered by boundary id
func (s *Set) Reflecting() (rfs []*Reflecting) {
	ids := make([]int, 0, len(s.conditions))
	for bid := range s.conditions {
		ids = append(ids, bid)
	}
	sort.Ints(ids)
	for _, bid := range ids {
		if rf, ok := s.conditions[bid].(*Reflecting); ok {
			rfs = append(rfs, rf)
		}
	}
	return
}

// Swap advances every reflecting boundary to the next sweep
func (s *Set) Swap() {
	for _, rf := range s.Reflecting() {
		rf.Swap()
	}
}
