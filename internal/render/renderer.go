// Package render writes events to a terminal the way the VersaLex UI lists
// them, or as JSON lines for piping.
package render

import (
	"fmt"
	"io"
	"versalex-ingest/internal/adapter"
	"versalex-ingest/internal/model"

	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"
	"github.com/muesli/termenv"
)

// Renderer writes one event.
type Renderer interface {
	Render(e model.Event) error
}

// palette maps the color attribute VersaLex puts on events to terminal colors.
var palette = map[string]lipgloss.Style{
	"black":   lipgloss.NewStyle().Foreground(lipgloss.Color("0")),
	"red":     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	"green":   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	"orange":  lipgloss.NewStyle().Foreground(lipgloss.Color("166")),
	"blue":    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	"magenta": lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	"cyan":    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	"white":   lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
}

// Style returns the style for e and whether e is colored at all. Transfer
// progress is always blue.
func Style(e model.Event) (lipgloss.Style, bool) {
	if e.Kind == model.KindTransfer {
		return palette["blue"], true
	}
	color, ok := e.Attributes.Get("color")
	if !ok {
		return lipgloss.Style{}, false
	}
	style, ok := palette[color]
	return style, ok
}

// TextRenderer prints one event per line, colored unless Plain is set.
// Color is emitted even when w is not a terminal, so piping into less -R
// keeps it; use Plain for files.
type TextRenderer struct {
	w     io.Writer
	out   *lipgloss.Renderer
	Plain bool
}

func NewTextRenderer(w io.Writer) *TextRenderer {
	out := lipgloss.NewRenderer(w)
	out.SetColorProfile(termenv.ANSI256)
	return &TextRenderer{w: w, out: out}
}

// Colorful renders e as "id/time message" in its event color.
func (r *TextRenderer) Colorful(e model.Event) string {
	line := e.String()
	if style, ok := Style(e); ok {
		return r.out.NewStyle().Inherit(style).Render(line)
	}
	return line
}

func (r *TextRenderer) Render(e model.Event) error {
	line := e.String()
	if !r.Plain {
		line = r.Colorful(e)
	}
	_, err := fmt.Fprintln(r.w, line)
	return err
}

// JSONRenderer prints each event as a flat record, one JSON object per line.
type JSONRenderer struct {
	enc  *json.Encoder
	host string
	path string
}

func NewJSONRenderer(w io.Writer, host, path string) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w), host: host, path: path}
}

func (r *JSONRenderer) Render(e model.Event) error {
	return r.enc.Encode(adapter.ToRecord(e, r.host, r.path))
}
