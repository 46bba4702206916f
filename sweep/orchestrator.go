// Package sweep solves the discrete ordinates transport equation for a
// given source by sweeping every direction across a partitioned mesh.
package sweep

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gosn/fem"
	"github.com/notargets/gosn/fluxes"
	"github.com/notargets/gosn/mesh"
	"github.com/notargets/gosn/quadrature"
	"github.com/notargets/gosn/types"
	"github.com/notargets/gosn/utils"
	"github.com/notargets/gosn/xs"
)

// FaceMessage carries the flux leaving one partition through a face into
// cell Cell of another partition, where it enters through face Face.
type FaceMessage struct {
	Subset    int
	Direction int
	Cell      int
	Face      int
	Psi       []float64
}

type Config struct {
	Aggregation types.AngleAggregation
	// GroupSubsetSize is the number of groups swept together, all groups
	// when zero
	GroupSubsetSize     int
	SurfaceSourceActive bool
	Logger              *zap.Logger
}

// Orchestrator runs full sweeps with one worker goroutine per mesh
// partition. Workers visit the directions of each angle aggregate in the
// same order and trade face fluxes through a mailbox.
type Orchestrator struct {
	Mesh       *mesh.Mesh
	Quadrature *quadrature.Quadrature
	Operators  *quadrature.Operators
	NodeMap    fluxes.NodeMap
	// Aggregates lists the directions of each angle aggregate in sweep order
	Aggregates [][]int
	Subsets    []GroupSubset
	NumGroups  int

	boundaries Boundaries
	surfaceSrc bool
	ranks      [][]int // ranks[d][cell]
	workers    []*worker
	mailBox    *utils.MailBox[FaceMessage]
	logger     *zap.Logger
}

func NewOrchestrator(m *mesh.Mesh, q *quadrature.Quadrature, ucm []fem.UnitCellMatrices,
	xsp xs.Provider, bcs Boundaries, cfg Config) (o *Orchestrator, err error) {
	o = &Orchestrator{
		Mesh:       m,
		Quadrature: q,
		NodeMap:    fluxes.NewNodeMap(m.NodesPerCell()),
		NumGroups:  xsp.NumGroups(),
		boundaries: bcs,
		surfaceSrc: cfg.SurfaceSourceActive,
		logger:     cfg.Logger,
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.Operators, err = q.Operators(); err != nil {
		return nil, err
	}
	if o.Operators.Dimension != m.Dimension {
		return nil, fmt.Errorf("%w: operators built for dimension %d, mesh has dimension %d",
			types.ErrConfiguration, o.Operators.Dimension, m.Dimension)
	}
	if !types.CompatibleAggregation(q.System, cfg.Aggregation) {
		return nil, fmt.Errorf("%w: %v angle aggregation cannot sweep %v geometry",
			types.ErrTopology, cfg.Aggregation, q.System)
	}
	if err = m.CheckCurvilinear(q.System); err != nil {
		return nil, err
	}
	if cfg.Aggregation == types.AggregateSingle {
		for d := range q.Directions {
			o.Aggregates = append(o.Aggregates, []int{d})
		}
	} else {
		for _, pl := range q.Levels {
			o.Aggregates = append(o.Aggregates, pl.Directions)
		}
	}
	size := cfg.GroupSubsetSize
	if size <= 0 || size > o.NumGroups {
		size = o.NumGroups
	}
	for g := 0; g < o.NumGroups; g += size {
		o.Subsets = append(o.Subsets, GroupSubset{First: g, Count: min(size, o.NumGroups-g)})
	}
	o.ranks = make([][]int, q.NumDirections())
	for d, dir := range q.Directions {
		if o.ranks[d], err = directionRanks(m, dir.Omega); err != nil {
			return nil, err
		}
	}
	for p := 0; p < m.NumPartitions; p++ {
		var w *worker
		if w, err = newWorker(o, p, ucm, xsp, cfg, size); err != nil {
			return nil, err
		}
		o.workers = append(o.workers, w)
	}
	return
}

func (o *Orchestrator) SurfaceSourceActive() bool { return o.surfaceSrc }

// NewMoments allocates a moment vector shaped for this sweep
func (o *Orchestrator) NewMoments() *fluxes.MomentVector {
	return fluxes.NewMomentVector(o.NodeMap.NumNodes, o.Operators.NumMoments(), o.NumGroups)
}

func (o *Orchestrator) NewAngular() *fluxes.AngularVector {
	return fluxes.NewAngularVector(o.NodeMap.NumNodes, o.Quadrature.NumDirections(), o.NumGroups)
}

// Sweep visits every (direction, cell) pair once, adding the flux moments
// of the solution driven by src to phi and storing the angular flux in psi
// when psi is not nil. Reflecting boundaries advance to the flux of this
// sweep on success.
func (o *Orchestrator) Sweep(ctx context.Context, src, phi *fluxes.MomentVector, psi *fluxes.AngularVector) (err error) {
	want := o.NewMoments()
	if !want.SameShape(src) || !want.SameShape(phi) {
		return fmt.Errorf("%w: moment vectors do not match the sweep's nodes, moments and groups",
			types.ErrConfiguration)
	}
	if psi != nil && (psi.NumNodes != o.NodeMap.NumNodes || psi.NumDirections != o.Quadrature.NumDirections() ||
		psi.NumGroups != o.NumGroups) {
		return fmt.Errorf("%w: angular vector does not match the sweep", types.ErrConfiguration)
	}
	start := time.Now()
	o.mailBox = utils.NewMailBox[FaceMessage](len(o.workers))
	eg, egCtx := errgroup.WithContext(ctx)
	for _, w := range o.workers {
		eg.Go(func() error { return w.sweep(egCtx, src, phi, psi) })
	}
	if err = eg.Wait(); err != nil {
		return
	}
	o.boundaries.Swap()
	o.logger.Debug("sweep complete",
		zap.Int("partitions", len(o.workers)),
		zap.Int("directions", o.Quadrature.NumDirections()),
		zap.Int("subsets", len(o.Subsets)),
		zap.Duration("elapsed", time.Since(start)))
	return
}

// readyQueue holds the cells whose upwind faces are all resolved, lowest
// rank first
type readyQueue struct {
	cells []int
	rank  []int
}

func (rq *readyQueue) Len() int           { return len(rq.cells) }
func (rq *readyQueue) Less(i, j int) bool { return rq.rank[rq.cells[i]] < rq.rank[rq.cells[j]] }
func (rq *readyQueue) Swap(i, j int)      { rq.cells[i], rq.cells[j] = rq.cells[j], rq.cells[i] }
func (rq *readyQueue) Push(x any)         { rq.cells = append(rq.cells, x.(int)) }
func (rq *readyQueue) Pop() any {
	n := len(rq.cells)
	id := rq.cells[n-1]
	rq.cells = rq.cells[:n-1]
	return id
}

// worker sweeps the cells of one partition
type worker struct {
	o        *Orchestrator
	p        int
	chunk    *Chunk
	cells    []int
	local    []int   // local[id] is the position of cell id in cells, -1 off partition
	slots    [][]int // slots[pos][face] is an offset into faceData, -1 on the boundary
	faceData []float64
	pending  []int
	ready    readyQueue
	early    []FaceMessage

	subset int
	d      int
}

func newWorker(o *Orchestrator, p int, ucm []fem.UnitCellMatrices, xsp xs.Provider,
	cfg Config, subsetSize int) (w *worker, err error) {
	m := o.Mesh
	w = &worker{
		o:     o,
		p:     p,
		cells: m.LocalCells(p),
		local: make([]int, len(m.Cells)),
	}
	if w.chunk, err = NewChunk(m, o.Quadrature, ucm, xsp, o.boundaries); err != nil {
		return nil, err
	}
	w.chunk.SurfaceSourceActive = cfg.SurfaceSourceActive
	for id := range w.local {
		w.local[id] = -1
	}
	var size int
	w.slots = make([][]int, len(w.cells))
	for pos, id := range w.cells {
		w.local[id] = pos
		c := &m.Cells[id]
		w.slots[pos] = make([]int, len(c.Faces))
		for fn := range c.Faces {
			w.slots[pos][fn] = -1
			if c.Faces[fn].HasNeighbor() {
				w.slots[pos][fn] = size
				size += len(c.Faces[fn].Nodes) * subsetSize
			}
		}
	}
	w.faceData = make([]float64, size)
	w.pending = make([]int, len(w.cells))
	return
}

func (w *worker) sweep(ctx context.Context, src, phi *fluxes.MomentVector, psi *fluxes.AngularVector) (err error) {
	w.early = w.early[:0]
	for s, gs := range w.o.Subsets {
		for _, agg := range w.o.Aggregates {
			for _, d := range agg {
				if err = ctx.Err(); err != nil {
					return
				}
				if err = w.sweepDirection(ctx, s, d, gs, src, phi, psi); err != nil {
					return
				}
			}
		}
	}
	return
}

func (w *worker) sweepDirection(ctx context.Context, s, d int, gs GroupSubset,
	src, phi *fluxes.MomentVector, psi *fluxes.AngularVector) (err error) {
	var (
		m     = w.o.Mesh
		mb    = w.o.mailBox
		omega = w.o.Quadrature.Directions[d].Omega
	)
	w.subset, w.d = s, d
	w.chunk.BeginDirection(d)
	w.ready = readyQueue{cells: w.ready.cells[:0], rank: w.o.ranks[d]}
	for pos, id := range w.cells {
		w.pending[pos] = 0
		c := &m.Cells[id]
		for fn := range c.Faces {
			f := &c.Faces[fn]
			if f.HasNeighbor() && r3.Dot(omega, f.Normal) < 0 {
				w.pending[pos]++
			}
		}
		if w.pending[pos] == 0 {
			heap.Push(&w.ready, id)
		}
	}
	early := w.early
	w.early = nil
	for _, msg := range early {
		w.accept(msg)
	}
	for done := 0; done < len(w.cells); {
		if w.ready.Len() == 0 {
			mb.DeliverMyMessages(w.p)
			var msgs []FaceMessage
			if msgs, err = mb.WaitMyMessages(ctx, w.p); err != nil {
				return
			}
			for _, msg := range msgs {
				w.accept(msg)
			}
			continue
		}
		id := heap.Pop(&w.ready).(int)
		if err = w.chunk.Solve(id, d, gs, src, phi, psi, w); err != nil {
			return
		}
		done++
	}
	mb.DeliverMyMessages(w.p)
	return
}

// accept stores the flux of a message for the current direction and
// subset, and holds on to messages for later ones
func (w *worker) accept(msg FaceMessage) {
	if msg.Subset != w.subset || msg.Direction != w.d {
		w.early = append(w.early, msg)
		return
	}
	pos := w.local[msg.Cell]
	off := w.slots[pos][msg.Face]
	copy(w.faceData[off:off+len(msg.Psi)], msg.Psi)
	w.resolve(pos)
}

func (w *worker) resolve(pos int) {
	if w.pending[pos]--; w.pending[pos] == 0 {
		heap.Push(&w.ready, w.cells[pos])
	}
}

func (w *worker) Upwind(c *mesh.Cell, f int) []float64 {
	var (
		face = &c.Faces[f]
		n    = len(face.Nodes) * w.o.Subsets[w.subset].Count
		off  int
	)
	if w.o.Mesh.Kind(c, face) == mesh.LocalInterior {
		off = w.slots[w.local[face.Neighbor]][face.NeighborFace]
	} else {
		off = w.slots[w.local[c.ID]][f]
	}
	return w.faceData[off : off+n]
}

func (w *worker) Publish(c *mesh.Cell, f int, psi []float64) {
	face := &c.Faces[f]
	if w.o.Mesh.Kind(c, face) == mesh.LocalInterior {
		off := w.slots[w.local[c.ID]][f]
		copy(w.faceData[off:off+len(psi)], psi)
		w.resolve(w.local[face.Neighbor])
		return
	}
	w.o.mailBox.PostMessage(w.p, w.o.Mesh.Cells[face.Neighbor].Partition, FaceMessage{
		Subset:    w.subset,
		Direction: w.d,
		Cell:      face.Neighbor,
		Face:      face.NeighborFace,
		Psi:       append([]float64(nil), psi...),
	})
}
