package dataset

import (
	"fmt"
	"strings"
)

// UnsupportedFormatError is returned by Load for input formats without a reader.
type UnsupportedFormatError struct {
	Format    string
	Supported []string
}

func (e *UnsupportedFormatError) Error() string {
	if len(e.Supported) == 0 {
		return fmt.Sprintf("unsupported input format %q", e.Format)
	}
	return fmt.Sprintf("unsupported input format %q (supported: %s)", e.Format, strings.Join(e.Supported, ", "))
}

// MissingColumnError names a column that an analysis needs but the dataset lacks.
type MissingColumnError struct {
	Column    string
	Available []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("column %q not found", e.Column)
	}
	return fmt.Sprintf("column %q not found (available: %s)", e.Column, strings.Join(e.Available, ", "))
}

// ColumnKindError indicates a column has the wrong inferred type for an operation.
type ColumnKindError struct {
	Column string
	Want   Kind
	Got    Kind
}

func (e *ColumnKindError) Error() string {
	return fmt.Sprintf("column %q is %s, expected %s", e.Column, e.Got, e.Want)
}
