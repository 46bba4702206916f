package types

import (
	"fmt"
	"strings"
)

type BoundaryType uint8

const (
	BoundaryVacuum BoundaryType = iota
	BoundaryIsotropic
	BoundaryReflecting
)

func (bt BoundaryType) String() string {
	names := map[BoundaryType]string{
		BoundaryVacuum:     "Vacuum",
		BoundaryIsotropic:  "Isotropic",
		BoundaryReflecting: "Reflecting",
	}
	if name, ok := names[bt]; ok {
		return name
	}
	return "Unknown"
}

// BoundaryNameMap maps input-file names to boundary types, keys are lowercase
var BoundaryNameMap = map[string]BoundaryType{
	"vacuum":     BoundaryVacuum,
	"vaccuum":    BoundaryVacuum,
	"isotropic":  BoundaryIsotropic,
	"incident":   BoundaryIsotropic,
	"reflecting": BoundaryReflecting,
	"reflective": BoundaryReflecting,
	"symmetry":   BoundaryReflecting,
	"mirror":     BoundaryReflecting,
}

func ParseBoundaryType(name string) (bt BoundaryType, err error) {
	var ok bool
	if bt, ok = BoundaryNameMap[strings.ToLower(strings.TrimSpace(name))]; !ok {
		err = fmt.Errorf("%w: unknown boundary type %q", ErrConfiguration, name)
	}
	return
}
