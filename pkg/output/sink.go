// Package output writes a harvested result set to its final destination.
//
// Sinks are only invoked after pagination finished without error, so a failed
// run never leaves a partial file behind.
package output

import (
	"github.com/Sternrassler/gh-harvest/pkg/pagination"
)

// DefaultPath is the JSON file written when no path is configured.
const DefaultPath = "res.json"

// Sink consumes a complete result set.
type Sink interface {
	Write(results pagination.ResultSet) error
}
