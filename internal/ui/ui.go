// Package ui renders vchain results for a terminal. Status lines go to the
// error stream with ANSI colors; tables and documents go to the output
// stream so they can be piped.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/papapumpkin/vchain/internal/ansi"
)

// Printer writes colored status lines and tables.
type Printer struct {
	out   io.Writer
	err   io.Writer
	color bool
}

// New returns a printer on stdout and stderr.
func New() *Printer {
	return &Printer{out: os.Stdout, err: os.Stderr, color: true}
}

// NewWithWriters returns a printer on the given streams. Colors are
// disabled, which keeps output stable for tests and pipes.
func NewWithWriters(out, err io.Writer) *Printer {
	return &Printer{out: out, err: err}
}

func (p *Printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return ansi.Paint(s, code)
}

// Error prints a red error line.
func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.err, "%s%s\n", p.paint(ansi.Red+ansi.Bold, "error: "), msg)
}

// Warn prints a yellow warning line.
func (p *Printer) Warn(msg string) {
	fmt.Fprintf(p.err, "%s%s\n", p.paint(ansi.Yellow+ansi.Bold, "⚠ "), msg)
}

// Info prints a dimmed informational line.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.err, p.paint(ansi.Dim, msg))
}

// Success prints a green confirmation line.
func (p *Printer) Success(msg string) {
	fmt.Fprintf(p.err, "%s%s\n", p.paint(ansi.Green+ansi.Bold, "✓ "), msg)
}

// Raw writes pre-rendered output such as JSON or YAML.
func (p *Printer) Raw(data []byte) {
	p.out.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		fmt.Fprintln(p.out)
	}
}

// renderTable draws rows under headers with a rounded border.
func (p *Printer) renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...)
	if p.color {
		header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
		cell := lipgloss.NewStyle().Padding(0, 1)
		t = t.StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	}
	return t.String()
}

func (p *Printer) section(title string) {
	fmt.Fprintln(p.out, p.paint(ansi.Bold+ansi.Cyan, title))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
