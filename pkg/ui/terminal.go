package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	cyan    = lipgloss.Color("#00FFFF")
	magenta = lipgloss.Color("#FF00FF")
	green   = lipgloss.Color("#39FF14")
	yellow  = lipgloss.Color("#FFFF00")
	red     = lipgloss.Color("#FF3131")
	dim     = lipgloss.Color("#808080")
)

// Printer writes user-facing output. Results go to out; errors, warnings
// and progress go to errOut so piped output stays clean.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	quiet  bool

	label     lipgloss.Style
	value     lipgloss.Style
	success   lipgloss.Style
	warning   lipgloss.Style
	failure   lipgloss.Style
	highlight lipgloss.Style
	faint     lipgloss.Style
}

// NewPrinter creates a printer. Colors are enabled only when the writers
// are terminals. Quiet suppresses everything except results and errors.
func NewPrinter(out, errOut io.Writer, quiet bool) *Printer {
	outR := lipgloss.NewRenderer(out)
	errR := lipgloss.NewRenderer(errOut)

	return &Printer{
		out:       out,
		errOut:    errOut,
		quiet:     quiet,
		label:     outR.NewStyle().Foreground(cyan).Bold(true),
		value:     outR.NewStyle().Foreground(yellow),
		success:   errR.NewStyle().Foreground(green).Bold(true),
		warning:   errR.NewStyle().Foreground(yellow),
		failure:   errR.NewStyle().Foreground(red).Bold(true),
		highlight: outR.NewStyle().Foreground(magenta),
		faint:     errR.NewStyle().Foreground(dim),
	}
}

var (
	defaultMu      sync.RWMutex
	defaultPrinter = NewPrinter(os.Stdout, os.Stderr, false)
)

// SetDefault replaces the printer used by the package-level helpers
func SetDefault(p *Printer) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultPrinter = p
}

// Default returns the printer used by the package-level helpers
func Default() *Printer {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultPrinter
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Quiet reports whether informational output is suppressed
func (p *Printer) Quiet() bool {
	return p.quiet
}

// Out returns the writer results are printed to
func (p *Printer) Out() io.Writer {
	return p.out
}

// Error prints msg, followed by err when given
func (p *Printer) Error(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	p.println(p.errOut, p.failure.Render("✗ "+msg))
}

func (p *Printer) Warning(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	p.println(p.errOut, p.warning.Render("! "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Success(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	p.println(p.errOut, p.success.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Info prints a label/value pair as a result line
func (p *Printer) Info(label, value string) {
	p.println(p.out, p.label.Render(label+":")+" "+p.value.Render(value))
}

func (p *Printer) Highlight(msg string) {
	p.println(p.out, p.highlight.Render(msg))
}

// Raw prints text to the result writer unchanged
func (p *Printer) Raw(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, text)
}

func (p *Printer) println(w io.Writer, line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(w, line)
}

// PrintError prints an error with the default printer
func PrintError(msg string, err error) {
	Default().Error(msg, err)
}

// PrintWarning prints a warning with the default printer
func PrintWarning(format string, args ...interface{}) {
	Default().Warning(format, args...)
}

// PrintSuccess prints a success message with the default printer
func PrintSuccess(format string, args ...interface{}) {
	Default().Success(format, args...)
}

// PrintInfo prints a label/value pair with the default printer
func PrintInfo(label, value string) {
	Default().Info(label, value)
}
