package prompt

import (
	"slices"

	"github.com/binjac/samplem-bridge/internal/invocation"
)

// AskInvocation walks the user through the repack options, starting from
// defaults. A layout outside the known set is offered as an extra choice so
// it can be kept.
func AskInvocation(p Prompter, defaults invocation.Invocation) (invocation.Invocation, error) {
	inv := defaults

	path, err := p.Input("Sample folder", defaults.Path)
	if err != nil {
		return inv, err
	}
	inv.Path = path

	if inv.Normalize, err = p.Confirm("Normalize?", "Peak-normalize every sample", defaults.Normalize); err != nil {
		return inv, err
	}
	if inv.Trim, err = p.Confirm("Trim silence?", "Strip leading and trailing silence", defaults.Trim); err != nil {
		return inv, err
	}

	layouts := invocation.Layouts()
	if defaults.Layout != "" && !slices.Contains(layouts, defaults.Layout) {
		layouts = append(layouts, defaults.Layout)
	}
	labels := make([]string, len(layouts))
	for i, l := range layouts {
		labels[i] = invocation.LayoutLabel(l)
	}
	selected := max(slices.Index(layouts, defaults.Layout), 0)

	idx, err := p.Choice("Output layout", labels, selected)
	if err != nil {
		return inv, err
	}
	inv.Layout = layouts[idx]

	return inv, nil
}
