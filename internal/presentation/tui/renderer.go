package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown for terminal
// output using glamour. When no terminal renderer can be built the
// function passes markdown through unchanged, which keeps output
// usable in pipes and dumb terminals.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil || r == nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		out, rerr := r.Render(markdown)
		if rerr != nil {
			return markdown, nil
		}
		return out, nil
	}
}
