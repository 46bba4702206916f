package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gosn/types"
	"github.com/notargets/gosn/utils"
)

// Boundary ids of the six faces of an orthogonal domain
const (
	XMin = iota
	XMax
	YMin
	YMax
	ZMin
	ZMax
)

var BoundaryNameMap = map[string]int{
	"xmin": XMin, "xmax": XMax,
	"ymin": YMin, "ymax": YMax,
	"zmin": ZMin, "zmax": ZMax,
}

type NeighborKind uint8

const (
	LocalInterior NeighborKind = iota
	CrossPartition
	PhysicalBoundary
)

func (nk NeighborKind) String() string {
	switch nk {
	case LocalInterior:
		return "LocalInterior"
	case CrossPartition:
		return "CrossPartition"
	case PhysicalBoundary:
		return "PhysicalBoundary"
	}
	return "Unknown"
}

type Face struct {
	Normal   r3.Vec
	Nodes    []int // cell-local nodes on the face
	Vertices []r3.Vec
	// Neighbor is the global id of the adjacent cell, -1 on the boundary
	Neighbor     int
	NeighborFace int
	// NeighborNodes[fi] is the position, in the neighbor face's node list,
	// of the node coincident with face node fi
	NeighborNodes []int
	BoundaryID    int
}

func (f *Face) HasNeighbor() bool { return f.Neighbor >= 0 }

type Cell struct {
	ID        int
	Partition int
	Material  int
	Index     [3]int // logical position on each spatial axis
	Lo, Hi    r3.Vec
	Nodes     []r3.Vec
	Faces     []Face
}

func (c *Cell) NumNodes() int { return len(c.Nodes) }

func (c *Cell) Centroid() r3.Vec { return r3.Scale(0.5, r3.Add(c.Lo, c.Hi)) }

// Mesh is a collection of cells with face connectivity, split into
// partitions that are swept concurrently.
type Mesh struct {
	Dimension     int
	Cells         []Cell
	Orthogonal    bool   // cells are axis-aligned boxes on a logical grid
	Axes          []int  // spatial axes spanned, z alone in 1D
	Extents       [3]int // cells along each spatial axis
	NumPartitions int
	partitionMap  *utils.PartitionMap
}

// RadialAxis is the spatial axis carrying the radius in curvilinear
// geometry: z for 1D meshes, x for 2D (r,z) meshes.
func RadialAxis(dimension int) int {
	if dimension == 1 {
		return 2
	}
	return 0
}

func axisVec(a int) (v r3.Vec) {
	switch a {
	case 0:
		v.X = 1
	case 1:
		v.Y = 1
	default:
		v.Z = 1
	}
	return
}

func component(v r3.Vec, a int) float64 {
	switch a {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

func setComponent(v *r3.Vec, a int, val float64) {
	switch a {
	case 0:
		v.X = val
	case 1:
		v.Y = val
	default:
		v.Z = val
	}
}

// NewOrthogonal builds a mesh from ascending vertex coordinates along each
// axis. One coordinate list makes a 1D mesh along z, two make an x-y mesh,
// three an x-y-z mesh. The mesh starts with a single partition.
func NewOrthogonal(coords ...[]float64) (m *Mesh, err error) {
	m = &Mesh{Dimension: len(coords), Orthogonal: true}
	switch m.Dimension {
	case 1:
		m.Axes = []int{2}
	case 2:
		m.Axes = []int{0, 1}
	case 3:
		m.Axes = []int{0, 1, 2}
	default:
		return nil, fmt.Errorf("%w: invalid mesh dimension %d", types.ErrConfiguration, m.Dimension)
	}
	for p, xs := range coords {
		if len(xs) < 2 || !utils.IsSortedAscending(xs) {
			return nil, fmt.Errorf("%w: axis %d needs at least two ascending vertices",
				types.ErrConfiguration, m.Axes[p])
		}
	}
	m.Extents = [3]int{1, 1, 1}
	for p, a := range m.Axes {
		m.Extents[a] = len(coords[p]) - 1
	}
	var (
		nCells   = m.Extents[0] * m.Extents[1] * m.Extents[2]
		nd       = m.Dimension
		nNodes   = 1 << nd
		coordsOf = make([][]float64, 3)
	)
	for p, a := range m.Axes {
		coordsOf[a] = coords[p]
	}
	m.Cells = make([]Cell, nCells)
	for id := range m.Cells {
		c := &m.Cells[id]
		c.ID = id
		c.Index = m.logical(id)
		for a := 0; a < 3; a++ {
			if coordsOf[a] == nil {
				continue
			}
			setComponent(&c.Lo, a, coordsOf[a][c.Index[a]])
			setComponent(&c.Hi, a, coordsOf[a][c.Index[a]+1])
		}
		c.Nodes = make([]r3.Vec, nNodes)
		for n := range c.Nodes {
			for p, a := range m.Axes {
				if n>>p&1 == 0 {
					setComponent(&c.Nodes[n], a, component(c.Lo, a))
				} else {
					setComponent(&c.Nodes[n], a, component(c.Hi, a))
				}
			}
		}
		c.Faces = make([]Face, 2*nd)
		for p, a := range m.Axes {
			for s := 0; s < 2; s++ {
				f := &c.Faces[2*p+s]
				f.Normal = r3.Scale(float64(2*s-1), axisVec(a))
				for n := 0; n < nNodes; n++ {
					if n>>p&1 == s {
						f.Nodes = append(f.Nodes, n)
						f.Vertices = append(f.Vertices, c.Nodes[n])
					}
				}
				f.Neighbor, f.NeighborFace, f.BoundaryID = -1, -1, -1
				nbr := c.Index
				nbr[a] += 2*s - 1
				if nbr[a] < 0 || nbr[a] >= m.Extents[a] {
					f.BoundaryID = 2*a + s
					continue
				}
				f.Neighbor = m.cellID(nbr)
				f.NeighborFace = 2*p + 1 - s
				f.NeighborNodes = make([]int, len(f.Nodes))
				for fi, n := range f.Nodes {
					// the coincident node differs in the bit of axis position p
					fj := 0
					for nn := 0; nn < nNodes; nn++ {
						if nn>>p&1 == 1-s {
							if nn == n^(1<<p) {
								break
							}
							fj++
						}
					}
					f.NeighborNodes[fi] = fj
				}
			}
		}
	}
	err = m.Partition(1)
	return
}

func (m *Mesh) logical(id int) (idx [3]int) {
	idx[0] = id % m.Extents[0]
	idx[1] = (id / m.Extents[0]) % m.Extents[1]
	idx[2] = id / (m.Extents[0] * m.Extents[1])
	return
}

func (m *Mesh) cellID(idx [3]int) int {
	return idx[0] + m.Extents[0]*(idx[1]+m.Extents[1]*idx[2])
}

// Partition splits the cells, in id order, into np contiguous blocks of
// nearly equal size.
func (m *Mesh) Partition(np int) (err error) {
	if np < 1 || np > len(m.Cells) {
		return fmt.Errorf("%w: cannot split %d cells into %d partitions",
			types.ErrConfiguration, len(m.Cells), np)
	}
	m.NumPartitions = np
	m.partitionMap = utils.NewPartitionMap(np, len(m.Cells))
	for id := range m.Cells {
		m.Cells[id].Partition, _, _ = m.partitionMap.GetBucket(id)
	}
	return
}

// LocalCells returns the ids of partition p's cells in ascending order
func (m *Mesh) LocalCells(p int) (ids []int) {
	kMin, kMax := m.partitionMap.GetBucketRange(p)
	ids = make([]int, 0, kMax-kMin)
	for id := kMin; id < kMax; id++ {
		ids = append(ids, id)
	}
	return
}

// Kind classifies face f of cell c relative to c's partition
func (m *Mesh) Kind(c *Cell, f *Face) NeighborKind {
	switch {
	case !f.HasNeighbor():
		return PhysicalBoundary
	case m.Cells[f.Neighbor].Partition == c.Partition:
		return LocalInterior
	}
	return CrossPartition
}

// SetMaterials assigns each cell the material id returned by fn
func (m *Mesh) SetMaterials(fn func(c *Cell) int) {
	for id := range m.Cells {
		m.Cells[id].Material = fn(&m.Cells[id])
	}
}

// BoundaryIDs lists the boundary ids present on the mesh
func (m *Mesh) BoundaryIDs() (ids []int) {
	seen := make(map[int]bool)
	for id := range m.Cells {
		for _, f := range m.Cells[id].Faces {
			if !f.HasNeighbor() && !seen[f.BoundaryID] {
				seen[f.BoundaryID] = true
				ids = append(ids, f.BoundaryID)
			}
		}
	}
	return
}

// NodesPerCell returns the node count of every cell in id order
func (m *Mesh) NodesPerCell() (n []int) {
	n = make([]int, len(m.Cells))
	for id := range m.Cells {
		n[id] = m.Cells[id].NumNodes()
	}
	return
}

// CheckCurvilinear verifies that a curvilinear sweep can run on the mesh:
// boundary faces must be axis-aligned, radial coordinates non-negative, and
// every face looking toward decreasing radius must lie on the axis.
func (m *Mesh) CheckCurvilinear(cs types.CoordinateSystem) (err error) {
	if !cs.IsCurvilinear() {
		return
	}
	if cs == types.Spherical && m.Dimension != 1 || cs == types.Cylindrical && m.Dimension > 2 {
		return fmt.Errorf("%w: %v geometry on a %dD mesh", types.ErrTopology, cs, m.Dimension)
	}
	var (
		ra  = RadialAxis(m.Dimension)
		eR  = axisVec(ra)
		tol = 1.e-12
	)
	for id := range m.Cells {
		c := &m.Cells[id]
		for _, v := range c.Nodes {
			if component(v, ra) < -tol {
				return fmt.Errorf("%w: cell %d has negative radial coordinate", types.ErrTopology, id)
			}
		}
		for fn := range c.Faces {
			f := &c.Faces[fn]
			if f.HasNeighbor() {
				continue
			}
			aligned := false
			for a := 0; a < 3; a++ {
				if math.Abs(r3.Dot(f.Normal, axisVec(a))) > 1-1.e-6 {
					aligned = true
				}
			}
			if !aligned {
				return fmt.Errorf("%w: boundary face %d of cell %d is not axis-aligned",
					types.ErrTopology, fn, id)
			}
			if r3.Dot(f.Normal, eR) < -0.999999 {
				for _, v := range f.Vertices {
					if math.Abs(component(v, ra)) > tol {
						return fmt.Errorf("%w: boundary face %d of cell %d faces the axis but lies at r = %g",
							types.ErrTopology, fn, id, component(v, ra))
					}
				}
			}
		}
	}
	return
}

// IsSymmetryFace is true for boundary faces on the axis of a curvilinear
// mesh, i.e. faces whose normal points toward decreasing radius.
func IsSymmetryFace(f *Face, dimension int) bool {
	return !f.HasNeighbor() && r3.Dot(f.Normal, axisVec(RadialAxis(dimension))) < -0.999999
}
