// Package output provides formatters that render host reports in different formats.
package output

import (
	"io"
	"os"

	"github.com/ancients-collective/hostenv/internal/types"
)

// Formatter writes a host report to the given writer.
type Formatter interface {
	Write(w io.Writer, report *types.HostReport) error
}

// IsDumbTerm returns true when the terminal doesn't support Unicode.
func IsDumbTerm() bool {
	t := os.Getenv("TERM")
	return t == "dumb" || t == ""
}
