// Package invocation describes a single samplem repack request and renders it
// into the argument list understood by the samplem executable.
package invocation

import "strconv"

// Subcommand is the samplem subcommand every invocation runs.
const Subcommand = "repack"

// Layouts offered by the front-ends. The bridge does not restrict Layout to
// these values; anything else is passed through to samplem unchanged.
const (
	LayoutKeep       = "keep"
	LayoutFlatPrefix = "flat-prefix"
	LayoutFlat       = "flat"
)

// layoutLabels maps known layouts to human-readable labels.
var layoutLabels = map[string]string{
	LayoutKeep:       "Keep subfolders",
	LayoutFlatPrefix: "Flat with prefix",
	LayoutFlat:       "Flat",
}

// Invocation holds the parameters of one repack run.
type Invocation struct {
	Path      string // Sample folder to repack
	Normalize bool   // Normalize levels
	Trim      bool   // Trim leading/trailing silence
	Layout    string // Output folder layout
}

// Args returns the argument list for the samplem executable.
// Booleans are rendered as the literal tokens "true" and "false".
func (i Invocation) Args() []string {
	return []string{
		Subcommand,
		"--path", i.Path,
		"--normalize", strconv.FormatBool(i.Normalize),
		"--trim", strconv.FormatBool(i.Trim),
		"--layout", i.Layout,
	}
}

// Layouts returns the known layouts in display order.
func Layouts() []string {
	return []string{LayoutKeep, LayoutFlatPrefix, LayoutFlat}
}

// LayoutLabel returns the display label for a layout, or the layout itself
// if it is not one of the known values.
func LayoutLabel(layout string) string {
	if label, ok := layoutLabels[layout]; ok {
		return label
	}
	return layout
}
