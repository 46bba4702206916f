package InputParameters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
	"go.uber.org/zap"

	"github.com/notargets/gosn/boundary"
	"github.com/notargets/gosn/mesh"
	"github.com/notargets/gosn/quadrature"
	"github.com/notargets/gosn/solver"
	"github.com/notargets/gosn/sweep"
	"github.com/notargets/gosn/types"
	"github.com/notargets/gosn/xs"
)

// AxisParameters describes one mesh axis, either as explicit vertices or as
// Cells uniform cells spanning [Min, Max]
type AxisParameters struct {
	Min      float64   `yaml:"Min"`
	Max      float64   `yaml:"Max"`
	Cells    int       `yaml:"Cells"`
	Vertices []float64 `yaml:"Vertices"`
}

type QuadratureParameters struct {
	Family        string `yaml:"Family"`
	NPolar        int    `yaml:"NPolar"`
	NAzimuthal    int    `yaml:"NAzimuthal"`
	PolarSymmetry bool   `yaml:"PolarSymmetry"`
}

type MaterialParameters struct {
	Name   string    `yaml:"Name"`
	SigmaT []float64 `yaml:"SigmaT"`
	// Transfer is indexed [moment][to group][from group]
	Transfer [][][]float64 `yaml:"Transfer"`
	Source   []float64     `yaml:"Source"`
	// NuSigmaF and Chi are optional, both or neither
	NuSigmaF []float64 `yaml:"NuSigmaF"`
	Chi      []float64 `yaml:"Chi"`
}

// RegionParameters assigns Material to cells whose centroid lies inside the
// box [Min, Max], coordinates ordered as the mesh axes. Later regions win.
type RegionParameters struct {
	Material int       `yaml:"Material"`
	Min      []float64 `yaml:"Min"`
	Max      []float64 `yaml:"Max"`
}

type BCParameters struct {
	Type   string    `yaml:"Type"`
	Values []float64 `yaml:"Values"`
}

// Parameters obtained from the YAML problem file
type SlabParameters struct {
	Title            string                  `yaml:"Title"`
	CoordinateSystem string                  `yaml:"CoordinateSystem"`
	Axes             []AxisParameters        `yaml:"Axes"`
	Partitions       int                     `yaml:"Partitions"`
	Quadrature       QuadratureParameters    `yaml:"Quadrature"`
	ScatteringOrder  int                     `yaml:"ScatteringOrder"`
	Materials        []MaterialParameters    `yaml:"Materials"`
	Regions          []RegionParameters      `yaml:"Regions"`
	BCs              map[string]BCParameters `yaml:"BCs"` // keyed by boundary name, e.g. zmin
	Tolerance        float64                 `yaml:"Tolerance"`
	MaxIterations    int                     `yaml:"MaxIterations"`
	ReflectingSweeps int                     `yaml:"ReflectingSweeps"`
	Aggregation      string                  `yaml:"Aggregation"`
	GroupSubsetSize  int                     `yaml:"GroupSubsetSize"`
}

func (sp *SlabParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, sp); err != nil {
		return
	}
	sp.setDefaults()
	return
}

func (sp *SlabParameters) setDefaults() {
	if sp.CoordinateSystem == "" {
		sp.CoordinateSystem = "cartesian"
	}
	if sp.Partitions == 0 {
		sp.Partitions = 1
	}
	if sp.Quadrature.Family == "" {
		sp.Quadrature.Family = "gl"
	}
	if sp.Tolerance == 0 {
		sp.Tolerance = 1.e-6
	}
	if sp.MaxIterations == 0 {
		sp.MaxIterations = 100
	}
	if sp.ReflectingSweeps == 0 {
		sp.ReflectingSweeps = 1
	}
}

func (sp *SlabParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", sp.Title)
	fmt.Printf("[%s]\t\t= Coordinate System\n", sp.CoordinateSystem)
	for p, ax := range sp.Axes {
		if len(ax.Vertices) != 0 {
			fmt.Printf("Axes[%d] = %d vertices [%8.5f, %8.5f]\n",
				p, len(ax.Vertices), ax.Vertices[0], ax.Vertices[len(ax.Vertices)-1])
			continue
		}
		fmt.Printf("Axes[%d] = %d cells [%8.5f, %8.5f]\n", p, ax.Cells, ax.Min, ax.Max)
	}
	fmt.Printf("[%d]\t\t\t\t= Partitions\n", sp.Partitions)
	fmt.Printf("[%s %d/%d]\t\t= Quadrature (polar/azimuthal)\n",
		sp.Quadrature.Family, sp.Quadrature.NPolar, sp.Quadrature.NAzimuthal)
	fmt.Printf("[%d]\t\t\t\t= Scattering Order\n", sp.ScatteringOrder)
	for i, mp := range sp.Materials {
		fmt.Printf("Materials[%d] = %q SigmaT %v Source %v\n", i, mp.Name, mp.SigmaT, mp.Source)
		if len(mp.NuSigmaF) != 0 {
			fmt.Printf("\tNuSigmaF %v Chi %v\n", mp.NuSigmaF, mp.Chi)
		}
	}
	fmt.Printf("%8.2e\t\t= Tolerance\n", sp.Tolerance)
	fmt.Printf("[%d]\t\t\t\t= Max Iterations\n", sp.MaxIterations)
	keys := make([]string, len(sp.BCs))
	i := 0
	for k := range sp.BCs {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("BCs[%s] = %v\n", key, sp.BCs[key])
	}
}

func (sp *SlabParameters) coordinateSystem() (types.CoordinateSystem, error) {
	return types.ParseCoordinateSystem(sp.CoordinateSystem)
}

func (ax AxisParameters) vertices(p int) (x []float64, err error) {
	if len(ax.Vertices) != 0 {
		return ax.Vertices, nil
	}
	if ax.Cells < 1 || ax.Max <= ax.Min {
		err = fmt.Errorf("%w: axis %d needs Cells > 0 and Max > Min", types.ErrConfiguration, p)
		return
	}
	x = make([]float64, ax.Cells+1)
	for i := range x {
		x[i] = ax.Min + (ax.Max-ax.Min)*float64(i)/float64(ax.Cells)
	}
	x[ax.Cells] = ax.Max
	return
}

// Mesh builds the partitioned orthogonal mesh with materials assigned
func (sp *SlabParameters) Mesh() (m *mesh.Mesh, err error) {
	coords := make([][]float64, len(sp.Axes))
	for p, ax := range sp.Axes {
		if coords[p], err = ax.vertices(p); err != nil {
			return
		}
	}
	if m, err = mesh.NewOrthogonal(coords...); err != nil {
		return nil, err
	}
	for r, rg := range sp.Regions {
		if len(rg.Min) != m.Dimension || len(rg.Max) != m.Dimension {
			return nil, fmt.Errorf("%w: region %d needs %d coordinates", types.ErrConfiguration, r, m.Dimension)
		}
		if rg.Material < 0 || rg.Material >= len(sp.Materials) {
			return nil, fmt.Errorf("%w: region %d names material %d of %d",
				types.ErrConfiguration, r, rg.Material, len(sp.Materials))
		}
	}
	m.SetMaterials(func(c *mesh.Cell) (mat int) {
		ctr := c.Centroid()
		for _, rg := range sp.Regions {
			inside := true
			for p, a := range m.Axes {
				x := [3]float64{ctr.X, ctr.Y, ctr.Z}[a]
				if x < rg.Min[p] || x > rg.Max[p] {
					inside = false
				}
			}
			if inside {
				mat = rg.Material
			}
		}
		return
	})
	if err = m.Partition(sp.Partitions); err != nil {
		return nil, err
	}
	return
}

func (sp *SlabParameters) QuadratureSpec() (qs quadrature.Spec, err error) {
	qs = quadrature.Spec{
		Dimension:       len(sp.Axes),
		ScatteringOrder: sp.ScatteringOrder,
		NPolar:          sp.Quadrature.NPolar,
		NAzimuthal:      sp.Quadrature.NAzimuthal,
		PolarSymmetry:   sp.Quadrature.PolarSymmetry,
	}
	if qs.Family, err = quadrature.ParseFamily(sp.Quadrature.Family); err != nil {
		return
	}
	qs.CoordinateSystem, err = sp.coordinateSystem()
	return
}

func (sp *SlabParameters) MaterialList() (mats []xs.Material, err error) {
	if len(sp.Materials) == 0 {
		return nil, fmt.Errorf("%w: no materials", types.ErrConfiguration)
	}
	for _, mp := range sp.Materials {
		var mt xs.Material
		if mt, err = xs.NewMaterial(mp.Name, mp.SigmaT, mp.Transfer...); err != nil {
			return nil, err
		}
		if len(mp.Source) != 0 {
			if len(mp.Source) != mt.NumGroups() {
				return nil, fmt.Errorf("%w: material %q has %d source values, need %d",
					types.ErrConfiguration, mp.Name, len(mp.Source), mt.NumGroups())
			}
			mt.Source = mp.Source
		}
		if len(mp.NuSigmaF) != 0 || len(mp.Chi) != 0 {
			if err = mt.SetFission(mp.NuSigmaF, mp.Chi); err != nil {
				return nil, err
			}
		}
		mats = append(mats, mt)
	}
	return
}

func (sp *SlabParameters) BoundarySpecs() (specs map[int]boundary.Spec, err error) {
	specs = make(map[int]boundary.Spec, len(sp.BCs))
	for name, bc := range sp.BCs {
		bid, ok := mesh.BoundaryNameMap[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown boundary %q", types.ErrConfiguration, name)
		}
		var bt types.BoundaryType
		if bt, err = types.ParseBoundaryType(bc.Type); err != nil {
			return nil, err
		}
		specs[bid] = boundary.Spec{Type: bt, Values: bc.Values}
	}
	return
}

// SweepConfig picks the aggregation the coordinate system needs when none
// is given. Incident boundary sources are always active.
func (sp *SlabParameters) SweepConfig(logger *zap.Logger) (cfg sweep.Config, err error) {
	cfg = sweep.Config{
		GroupSubsetSize:     sp.GroupSubsetSize,
		SurfaceSourceActive: true,
		Logger:              logger,
	}
	if sp.Aggregation != "" {
		cfg.Aggregation, err = types.ParseAngleAggregation(sp.Aggregation)
		return
	}
	var cs types.CoordinateSystem
	if cs, err = sp.coordinateSystem(); err != nil {
		return
	}
	switch cs {
	case types.Cylindrical:
		cfg.Aggregation = types.AggregateAzimuthal
	case types.Spherical:
		cfg.Aggregation = types.AggregatePolar
	default:
		cfg.Aggregation = types.AggregateSingle
	}
	return
}

// Problem assembles the transport problem described by the parameters
func (sp *SlabParameters) Problem(logger *zap.Logger) (pb *solver.Problem, err error) {
	var (
		m     *mesh.Mesh
		qs    quadrature.Spec
		q     *quadrature.Quadrature
		h     quadrature.Handle
		mats  []xs.Material
		specs map[int]boundary.Spec
		cfg   sweep.Config
	)
	if logger == nil {
		logger = zap.NewNop()
	}
	if m, err = sp.Mesh(); err != nil {
		return
	}
	if qs, err = sp.QuadratureSpec(); err != nil {
		return
	}
	reg := quadrature.NewRegistry(logger)
	if h, err = reg.Register(qs); err != nil {
		return
	}
	if q, err = reg.Get(h); err != nil {
		return
	}
	if mats, err = sp.MaterialList(); err != nil {
		return
	}
	if specs, err = sp.BoundarySpecs(); err != nil {
		return
	}
	if cfg, err = sp.SweepConfig(logger); err != nil {
		return
	}
	return solver.NewProblem(m, q, mats, specs, cfg)
}

// Richardson builds the source iteration for a problem from these parameters
func (sp *SlabParameters) Richardson(pb *solver.Problem, logger *zap.Logger) (r *solver.Richardson) {
	r = solver.NewProblemRichardson(pb, sp.Tolerance, logger)
	r.ReflectingSweeps = sp.ReflectingSweeps
	return
}
