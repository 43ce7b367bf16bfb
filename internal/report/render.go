package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/agentsync-labs/agentsync/internal/status"
)

// Renderer writes reports to a writer.
type Renderer struct {
	w io.Writer
	s styles
}

// NewRenderer returns a text renderer. When color is false the output is
// plain text with the same layout.
func NewRenderer(w io.Writer, color bool) *Renderer {
	return &Renderer{w: w, s: newStyles(w, color)}
}

func (r *Renderer) line(style func(...string) string, tag, format string, args ...any) {
	fmt.Fprintf(r.w, "  %s %s\n", style("["+tag+"]"), fmt.Sprintf(format, args...))
}

// Report writes one run report.
func (r *Renderer) Report(rep *Report) {
	fmt.Fprintf(r.w, "%s %s\n", r.s.heading.Render(rep.Operation), rep.Target)
	fmt.Fprintf(r.w, "  %s\n", r.s.muted.Render("shared root "+rep.SharedRoot))

	for _, b := range rep.BackedUp {
		r.line(r.s.backup.Render, "BACKUP", "%s -> %s", b.Path, b.Backup)
	}
	for _, rm := range rep.Removed {
		r.line(r.s.remove.Render, "REMOVE", "%s (%s)", rm.Path, rm.Reason)
	}
	for _, l := range rep.LinksCreated {
		r.line(r.s.change.Render, " LINK ", "%s -> %s", l.Path, l.Target)
	}
	for _, l := range rep.LinksReplaced {
		r.line(r.s.change.Render, "RELINK", "%s -> %s", l.Path, l.Target)
	}
	for _, f := range rep.FilesCreated {
		r.line(r.s.change.Render, "CREATE", "%s", f)
	}
	for _, name := range rep.Mirror.Added {
		r.line(r.s.change.Render, " COPY ", "%s/%s", rep.Mirror.Dir, name)
	}
	for _, name := range rep.Mirror.Updated {
		r.line(r.s.change.Render, "UPDATE", "%s/%s", rep.Mirror.Dir, name)
	}
	for _, name := range rep.Mirror.Removed {
		r.line(r.s.remove.Render, "DELETE", "%s/%s", rep.Mirror.Dir, name)
	}
	if rep.IgnoreUpdated {
		r.line(r.s.change.Render, "IGNORE", ".gitignore")
	}
	for _, w := range rep.Warnings {
		r.line(r.s.warn.Render, " WARN ", "%s", w)
	}
	if rep.Error != "" {
		r.line(r.s.fail.Render, " FAIL ", "%s", rep.Error)
		return
	}
	r.line(r.s.ok.Render, "  OK  ", "%s", rep.Summary())
}

// Status writes a link health report.
func (r *Renderer) Status(res *status.Result) {
	fmt.Fprintf(r.w, "%s %s\n", r.s.heading.Render("status"), res.Target)
	for _, c := range res.Checks {
		style := r.s.ok.Render
		switch c.State {
		case status.StateOK:
		case status.StateMissing, status.StateDrifted, status.StateLegacy:
			style = r.s.warn.Render
		default:
			style = r.s.fail.Render
		}
		detail := c.Detail
		if detail != "" {
			detail = " " + r.s.muted.Render("("+detail+")")
		}
		r.line(style, fmt.Sprintf("%-6s", strings.ToUpper(c.State.Short())), "%s%s", c.Path, detail)
	}
	if res.Consistent() {
		r.line(r.s.ok.Render, "  OK  ", "consistent")
	} else {
		r.line(r.s.fail.Render, " FAIL ", "%d problem(s); run `update` to repair", res.Problems())
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
