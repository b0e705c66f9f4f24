package renderer

import (
	"fmt"
	"slices"

	"github.com/skosovsky/promptdepot"
)

// Names of the built-in factories.
const (
	NameGoTemplate  = "gotemplate"
	NamePlaceholder = "placeholder"
)

// Names returns the names accepted by ByName.
func Names() []string { return []string{NameGoTemplate, NamePlaceholder} }

// ByName resolves a built-in factory by name.
func ByName(name string) (promptdepot.RendererFactory, error) {
	switch name {
	case NameGoTemplate:
		return GoTemplate, nil
	case NamePlaceholder:
		return Placeholder, nil
	}
	return nil, fmt.Errorf("%w: unknown renderer %q (want one of %v)", promptdepot.ErrInvalidArgument, name, Names())
}

// Known reports whether ByName accepts name.
func Known(name string) bool { return slices.Contains(Names(), name) }
