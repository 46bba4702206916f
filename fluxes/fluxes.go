package fluxes

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// NodeMap gives the offset of each cell's first node in a flat node array
type NodeMap struct {
	Offsets  []int
	NumNodes int
}

func NewNodeMap(nodesPerCell []int) (nm NodeMap) {
	nm.Offsets = make([]int, len(nodesPerCell))
	for c, n := range nodesPerCell {
		nm.Offsets[c] = nm.NumNodes
		nm.NumNodes += n
	}
	return
}

// Node returns the flat index of node i of cell c
func (nm NodeMap) Node(c, i int) int { return nm.Offsets[c] + i }

// MomentVector stores flux or source moments by node, moment and group,
// with the group index running fastest.
type MomentVector struct {
	NumNodes, NumMoments, NumGroups int
	Data                            []float64
}

func NewMomentVector(nNodes, nMoments, nGroups int) *MomentVector {
	return &MomentVector{
		NumNodes:   nNodes,
		NumMoments: nMoments,
		NumGroups:  nGroups,
		Data:       make([]float64, nNodes*nMoments*nGroups),
	}
}

func (v *MomentVector) Index(node, m, g int) int { return (node*v.NumMoments+m)*v.NumGroups + g }

func (v *MomentVector) At(node, m, g int) float64 { return v.Data[v.Index(node, m, g)] }

func (v *MomentVector) Set(node, m, g int, val float64) { v.Data[v.Index(node, m, g)] = val }

// Groups returns the group values of (node, m) as a subslice of Data
func (v *MomentVector) Groups(node, m int) []float64 {
	i := v.Index(node, m, 0)
	return v.Data[i : i+v.NumGroups]
}

func (v *MomentVector) Zero() {
	for i := range v.Data {
		v.Data[i] = 0
	}
}

func (v *MomentVector) SameShape(o *MomentVector) bool {
	if v == nil || o == nil {
		return false
	}
	return v.NumNodes == o.NumNodes && v.NumMoments == o.NumMoments && v.NumGroups == o.NumGroups
}

func (v *MomentVector) CopyFrom(o *MomentVector) {
	if !v.SameShape(o) {
		panic(fmt.Errorf("moment vector shape mismatch: %dx%dx%d vs %dx%dx%d",
			v.NumNodes, v.NumMoments, v.NumGroups, o.NumNodes, o.NumMoments, o.NumGroups))
	}
	copy(v.Data, o.Data)
}

func (v *MomentVector) Clone() *MomentVector {
	R := NewMomentVector(v.NumNodes, v.NumMoments, v.NumGroups)
	copy(R.Data, v.Data)
	return R
}

// MaxAbs is the largest magnitude stored
func (v *MomentVector) MaxAbs() float64 {
	if len(v.Data) == 0 {
		return 0
	}
	return floats.Norm(v.Data, math.Inf(1))
}

// AngularVector stores the angular flux by node, direction and group, with
// the group index running fastest.
type AngularVector struct {
	NumNodes, NumDirections, NumGroups int
	Data                               []float64
}

func NewAngularVector(nNodes, nDirections, nGroups int) *AngularVector {
	return &AngularVector{
		NumNodes:      nNodes,
		NumDirections: nDirections,
		NumGroups:     nGroups,
		Data:          make([]float64, nNodes*nDirections*nGroups),
	}
}

func (v *AngularVector) Index(node, d, g int) int { return (node*v.NumDirections+d)*v.NumGroups + g }

func (v *AngularVector) At(node, d, g int) float64 { return v.Data[v.Index(node, d, g)] }

func (v *AngularVector) Set(node, d, g int, val float64) { v.Data[v.Index(node, d, g)] = val }

func (v *AngularVector) Zero() {
	for i := range v.Data {
		v.Data[i] = 0
	}
}
