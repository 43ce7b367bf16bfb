package report

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// styles maps each report tag to its look.
type styles struct {
	ok      lipgloss.Style
	change  lipgloss.Style
	backup  lipgloss.Style
	remove  lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	if !color {
		plain := r.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain, plain}
	}
	fg := func(light, dark string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: light, Dark: dark})
	}
	return styles{
		ok:      fg("#2E7D32", "#81C784"),
		change:  fg("#1565C0", "#64B5F6"),
		backup:  fg("#6A1B9A", "#CE93D8"),
		remove:  fg("#BF360C", "#FF8A65"),
		warn:    fg("#F57F17", "#FFD54F"),
		fail:    fg("#B71C1C", "#E57373").Bold(true),
		heading: r.NewStyle().Bold(true),
		muted:   fg("#616161", "#9E9E9E"),
	}
}

// ColorEnabled reports whether styled output should go to f: it must be a
// terminal and NO_COLOR must be unset.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
