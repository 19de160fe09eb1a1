// Package console writes the user-facing lines of devloop: progress
// headers, raw tool output, and the ✅/❌ notices.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette.
var (
	successColor = lipgloss.Color("#8BC34A")
	failureColor = lipgloss.Color("#e53935")
	warningColor = lipgloss.Color("#FFC107")
)

// Printer writes to an output and an error stream. Notices are coloured
// only when the output stream is a colour terminal.
type Printer struct {
	out, err io.Writer

	styled  bool
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
}

// New returns a Printer writing to out and err.
func New(out, err io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:     out,
		err:     err,
		styled:  r.ColorProfile() != termenv.Ascii,
		success: r.NewStyle().Foreground(successColor),
		failure: r.NewStyle().Foreground(failureColor),
		warning: r.NewStyle().Foreground(warningColor),
	}
}

// Discard returns a Printer that drops everything.
func Discard() *Printer {
	return New(io.Discard, io.Discard)
}

// Println writes a plain line to the output stream.
func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

// Printf writes formatted text to the output stream.
func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

// Errorln writes a plain line to the error stream.
func (p *Printer) Errorln(a ...any) {
	fmt.Fprintln(p.err, a...)
}

// Stdout copies tool output to the output stream, terminated by a newline.
func (p *Printer) Stdout(s string) {
	writeBlock(p.out, s)
}

// Stderr copies tool output to the error stream, terminated by a newline.
func (p *Printer) Stderr(s string) {
	writeBlock(p.err, s)
}

// Pass writes "✅ msg".
func (p *Printer) Pass(msg string) {
	p.notice(p.success, "✅ "+msg)
}

// Fail writes "❌ msg".
func (p *Printer) Fail(msg string) {
	p.notice(p.failure, "❌ "+msg)
}

// Warn writes msg without a marker, in the warning colour.
func (p *Printer) Warn(msg string) {
	p.notice(p.warning, msg)
}

func (p *Printer) notice(style lipgloss.Style, line string) {
	if p.styled {
		line = style.Render(line)
	}
	fmt.Fprintln(p.out, line)
}

func writeBlock(w io.Writer, s string) {
	if s == "" {
		return
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	io.WriteString(w, s)
}
