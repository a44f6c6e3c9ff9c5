package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5F5F"})

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#008700", Dark: "#5FD75F"})
)

// colorEnabled reports whether w is a terminal that should get styled
// output. NO_COLOR disables styling everywhere.
func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// RenderError formats err as the single line printed when a command fails.
func RenderError(w io.Writer, err error) string {
	msg := "Error: " + err.Error()
	if !colorEnabled(w) {
		return msg
	}
	return errorStyle.Render(msg)
}

func renderSuccess(w io.Writer, msg string) string {
	if !colorEnabled(w) {
		return msg
	}
	return successStyle.Render(msg)
}
