package sweep

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gosn/mesh"
	"github.com/notargets/gosn/types"
)

// directionRanks orders the cells of m so that every cell follows the
// upwind neighbors it depends on in direction omega.
func directionRanks(m *mesh.Mesh, omega r3.Vec) (rank []int, err error) {
	if m.Orthogonal {
		return axisRanks(m, omega), nil
	}
	return topologicalRanks(m, omega)
}

// axisRanks walks each axis of a logical grid upward when omega's component
// along it is non-negative and downward otherwise
func axisRanks(m *mesh.Mesh, omega r3.Vec) (rank []int) {
	comp := [3]float64{omega.X, omega.Y, omega.Z}
	rank = make([]int, len(m.Cells))
	for id := range m.Cells {
		var (
			idx    = m.Cells[id].Index
			stride = 1
		)
		for a := 0; a < 3; a++ {
			i := idx[a]
			if comp[a] < 0 {
				i = m.Extents[a] - 1 - i
			}
			rank[id] += i * stride
			stride *= m.Extents[a]
		}
	}
	return
}

const (
	white = iota
	gray
	black
)

// topologicalRanks is a depth first topological sort of the directed
// graph with an edge from each cell to every downwind neighbor
func topologicalRanks(m *mesh.Mesh, omega r3.Vec) (rank []int, err error) {
	var (
		N     = len(m.Cells)
		state = make([]int, N)
		order = make([]int, 0, N)
		visit func(id int) error
	)
	visit = func(id int) error {
		state[id] = gray
		c := &m.Cells[id]
		for fn := range c.Faces {
			f := &c.Faces[fn]
			if !f.HasNeighbor() || r3.Dot(omega, f.Normal) <= 0 {
				continue
			}
			switch state[f.Neighbor] {
			case gray:
				return fmt.Errorf("%w: dependency cycle through cells %d and %d in direction %v",
					types.ErrTopology, id, f.Neighbor, omega)
			case white:
				if err := visit(f.Neighbor); err != nil {
					return err
				}
			}
		}
		state[id] = black
		order = append(order, id)
		return nil
	}
	for id := 0; id < N; id++ {
		if state[id] == white {
			if err = visit(id); err != nil {
				return
			}
		}
	}
	rank = make([]int, N)
	for k, id := range order {
		rank[id] = N - 1 - k
	}
	return
}
