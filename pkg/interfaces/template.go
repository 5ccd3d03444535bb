package interfaces

import "io"

// TemplateRenderer renders theme layouts by name.
type TemplateRenderer interface {
	// Render executes the named layout with data and returns the output. When
	// out is supplied the result is also written to each writer.
	Render(layout string, data map[string]any, out ...io.Writer) (string, error)
	// Has reports whether the layout can be resolved.
	Has(layout string) bool
}
