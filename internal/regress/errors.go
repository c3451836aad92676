package regress

import (
	"errors"
	"fmt"
)

var (
	// ErrNoObservations is returned when no complete rows remain for a fit.
	ErrNoObservations = errors.New("no complete observations")
	// ErrSingular indicates a design matrix whose rank leaves no residual degrees of freedom.
	ErrSingular = errors.New("design matrix is singular")
)

// NotConvergedError is returned when the iterative quantile fit stops at the
// iteration limit before the coefficients settle.
type NotConvergedError struct {
	Quantile   float64
	Iterations int
	MaxDelta   float64
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("quantile %g did not converge after %d iterations (max coefficient change %.3g)", e.Quantile, e.Iterations, e.MaxDelta)
}

// BootstrapError reports a covariance estimate that had too few usable resamples.
type BootstrapError struct {
	Quantile float64
	Used     int
	Skipped  int
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap for quantile %g: only %d usable resamples (%d did not converge)", e.Quantile, e.Used, e.Skipped)
}
