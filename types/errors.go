package types

import "errors"

// Fatal error kinds. Callers wrap these with fmt.Errorf("...: %w") and test
// with errors.Is. Failure to converge is reported as a status, not an error.
var (
	// ErrConfiguration marks invalid quadrature or problem parameters
	ErrConfiguration = errors.New("configuration error")
	// ErrTopology marks boundary geometry or angle aggregation that the
	// coordinate system cannot sweep
	ErrTopology = errors.New("topology error")
	// ErrNumericalDegeneracy marks a singular cell system during a sweep
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")
)
