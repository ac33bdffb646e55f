package pipeline

import (
	"fmt"
	"strings"
)

// UnsupportedFormatError is returned for a format selector with no renderer.
type UnsupportedFormatError struct {
	Format    string
	Supported []string
}

func (e *UnsupportedFormatError) Error() string {
	if len(e.Supported) == 0 {
		return fmt.Sprintf("unsupported export format %q", e.Format)
	}
	return fmt.Sprintf("unsupported export format %q (supported: %s)", e.Format, strings.Join(e.Supported, ", "))
}

// ExportError wraps a renderer failure with a message fit for the user.
type ExportError struct {
	Format string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("failed to generate %s export: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
