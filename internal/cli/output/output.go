// Package output renders command results for terminals, pipes and scripts.
//
// The effective mode follows the --output setting: text for an interactive
// terminal, markdown when piped, json on request.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"
)

// Mode selects how results are rendered.
type Mode string

// OutputMode is an alias of Mode.
type OutputMode = Mode

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Renderer writes results in the configured mode.
type Renderer struct {
	out   io.Writer
	err   io.Writer
	mode  Mode
	isTTY bool
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{out: out, err: errOut, mode: mode, isTTY: isTTY}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}

// EffectiveMode resolves auto to text on a terminal and markdown otherwise.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool {
	return r.isTTY
}

// Writer returns the standard output writer.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

// Println writes a line to standard output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to standard output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header writes a section title.
func (r *Renderer) Header(title string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Printf("## %s\n\n", title)
		return
	}
	r.Println(r.style(title, text.Bold))
	r.Println()
}

// Success writes a success line.
func (r *Renderer) Success(msg string) {
	r.status("✓", msg, text.FgGreen)
}

// Warning writes a warning line to the error writer.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.err, r.prefix("!", text.FgYellow)+msg)
}

// Error writes an error line to the error writer.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.err, r.prefix("✗", text.FgRed)+msg)
}

// Muted writes a de-emphasized line.
func (r *Renderer) Muted(msg string) {
	r.Println(r.style(msg, text.Faint))
}

func (r *Renderer) status(symbol, msg string, color text.Color) {
	r.Println(r.prefix(symbol, color) + msg)
}

func (r *Renderer) prefix(symbol string, color text.Color) string {
	if r.EffectiveMode() == ModeMarkdown {
		return "- "
	}
	return r.style(symbol, color) + " "
}

// style colors s on a terminal only.
func (r *Renderer) style(s string, colors ...text.Color) string {
	if !r.isTTY || r.EffectiveMode() != ModeText {
		return s
	}
	return text.Colors(colors).Sprint(s)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table writes rows under headers: a box table in text mode, a pipe table in
// markdown mode.
func (r *Renderer) Table(headers []string, rows [][]any) {
	if len(rows) == 0 {
		r.Println("(0 rows)")
		return
	}

	t := table.NewWriter()
	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range rows {
		cells := make(table.Row, len(row))
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		t.AppendRow(cells)
	}

	if r.EffectiveMode() == ModeMarkdown {
		r.Println(t.RenderMarkdown())
		r.Println()
		return
	}

	t.SetStyle(table.StyleLight)
	r.Println(t.Render())
	r.Printf("(%d rows)\n", len(rows))
}

// FormatValue renders a cell for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		if math.IsNaN(x) {
			return "NaN"
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FormatKeyValue renders a "key: value" line.
func FormatKeyValue(key string, value any) string {
	return fmt.Sprintf("%s: %s", key, FormatValue(value))
}
