package xs

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gosn/mesh"
	"github.com/notargets/gosn/types"
	"github.com/notargets/gosn/utils"
)

// Material holds the multigroup cross sections of one material. Transfer[l]
// is the degree-l scattering matrix stored destination-major: row g lists
// the contributions sigma_s,l(g' -> g) from every source group g'.
type Material struct {
	Name     string
	SigmaT   []float64
	Transfer []utils.CSR
	// Source is the isotropic fixed source density per group
	Source []float64
	// NuSigmaF and Chi are nil for materials that do not fission
	NuSigmaF []float64
	Chi      []float64
}

// NewMaterial assembles a material from dense transfer matrices indexed
// [l][to][from].
func NewMaterial(name string, sigmaT []float64, transfer ...[][]float64) (mat Material, err error) {
	G := len(sigmaT)
	if G == 0 {
		err = fmt.Errorf("%w: material %q has no groups", types.ErrConfiguration, name)
		return
	}
	for g, st := range sigmaT {
		if st < 0 {
			err = fmt.Errorf("%w: material %q group %d has negative total cross section",
				types.ErrConfiguration, name, g)
			return
		}
	}
	mat = Material{Name: name, SigmaT: sigmaT, Source: make([]float64, G)}
	for ell, tm := range transfer {
		if len(tm) != G {
			err = fmt.Errorf("%w: material %q transfer moment %d has %d rows, need %d",
				types.ErrConfiguration, name, ell, len(tm), G)
			return
		}
		dok := utils.NewDOK(G, G, fmt.Sprintf("%s_S%d", name, ell))
		for to, row := range tm {
			if len(row) != G {
				err = fmt.Errorf("%w: material %q transfer moment %d row %d has %d entries, need %d",
					types.ErrConfiguration, name, ell, to, len(row), G)
				return
			}
			for from, v := range row {
				if v != 0 {
					dok.Set(to, from, v)
				}
			}
		}
		mat.Transfer = append(mat.Transfer, dok.ToCSR())
	}
	return
}

func (m Material) NumGroups() int { return len(m.SigmaT) }

// SetFission sets the fission production cross section and spectrum. The
// spectrum is normalized to unit sum.
func (m *Material) SetFission(nuSigmaF, chi []float64) (err error) {
	G := m.NumGroups()
	if len(nuSigmaF) != G || len(chi) != G {
		return fmt.Errorf("%w: material %q fission data has %d/%d groups, need %d",
			types.ErrConfiguration, m.Name, len(nuSigmaF), len(chi), G)
	}
	for g := 0; g < G; g++ {
		if nuSigmaF[g] < 0 || chi[g] < 0 {
			return fmt.Errorf("%w: material %q group %d has negative fission data",
				types.ErrConfiguration, m.Name, g)
		}
	}
	sum := floats.Sum(chi)
	if sum == 0 {
		return fmt.Errorf("%w: material %q fission spectrum sums to zero", types.ErrConfiguration, m.Name)
	}
	m.NuSigmaF = append([]float64(nil), nuSigmaF...)
	m.Chi = append([]float64(nil), chi...)
	if math.Abs(sum-1) > 1.e-12 {
		floats.Scale(1/sum, m.Chi)
	}
	return
}

func (m Material) IsFissile() bool { return len(m.NuSigmaF) != 0 && floats.Max(m.NuSigmaF) > 0 }

// FissionRate is the neutron production density sum_g' nu sigma_f,g' phi_g'
// for the scalar flux phi0
func (m Material) FissionRate(phi0 []float64) float64 {
	if len(m.NuSigmaF) == 0 {
		return 0
	}
	return floats.Dot(m.NuSigmaF, phi0)
}

// ScatteringOrder is the highest degree with a transfer matrix, -1 when
// the material does not scatter
func (m Material) ScatteringOrder() int { return len(m.Transfer) - 1 }

// Absorption is sigma_t less the isotropic outscatter of group g
func (m Material) Absorption(g int) float64 {
	if len(m.Transfer) == 0 {
		return m.SigmaT[g]
	}
	return m.SigmaT[g] - m.Transfer[0].ColSum(g)
}

// Provider serves the cross sections of the material filling each cell
type Provider interface {
	NumGroups() int
	SigmaT(cell int) []float64
	Transfer(cell int) []utils.CSR
	Material(cell int) *Material
}

// Library maps mesh cells to materials through their material ids
type Library struct {
	Materials    []Material
	cellMaterial []int
	nGroups      int
}

func NewLibrary(m *mesh.Mesh, materials []Material) (lib *Library, err error) {
	if len(materials) == 0 {
		return nil, fmt.Errorf("%w: no materials", types.ErrConfiguration)
	}
	lib = &Library{
		Materials:    materials,
		cellMaterial: make([]int, len(m.Cells)),
		nGroups:      materials[0].NumGroups(),
	}
	for _, mt := range materials {
		if mt.NumGroups() != lib.nGroups {
			return nil, fmt.Errorf("%w: material %q has %d groups, expected %d",
				types.ErrConfiguration, mt.Name, mt.NumGroups(), lib.nGroups)
		}
		if len(mt.Source) != lib.nGroups {
			return nil, fmt.Errorf("%w: material %q source has %d groups, expected %d",
				types.ErrConfiguration, mt.Name, len(mt.Source), lib.nGroups)
		}
		if len(mt.NuSigmaF) != 0 && (len(mt.NuSigmaF) != lib.nGroups || len(mt.Chi) != lib.nGroups) {
			return nil, fmt.Errorf("%w: material %q fission data has %d/%d groups, expected %d",
				types.ErrConfiguration, mt.Name, len(mt.NuSigmaF), len(mt.Chi), lib.nGroups)
		}
	}
	for id := range m.Cells {
		mid := m.Cells[id].Material
		if mid < 0 || mid >= len(materials) {
			return nil, fmt.Errorf("%w: cell %d references material %d of %d",
				types.ErrConfiguration, id, mid, len(materials))
		}
		lib.cellMaterial[id] = mid
	}
	return
}

func (lib *Library) NumGroups() int { return lib.nGroups }

func (lib *Library) Material(cell int) *Material { return &lib.Materials[lib.cellMaterial[cell]] }

func (lib *Library) SigmaT(cell int) []float64 { return lib.Material(cell).SigmaT }

func (lib *Library) Transfer(cell int) []utils.CSR { return lib.Material(cell).Transfer }
