package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"versalex-ingest/internal/model"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent(kind model.Kind, tag, color string) model.Event {
	attrs := model.NewAttributes()
	if color != "" {
		attrs.Set("color", color)
	}
	attrs.Set(model.TextKey, "hello")
	return model.Event{
		Kind:       kind,
		Tag:        tag,
		Time:       time.Date(2024, 3, 5, 7, 8, 9, 0, time.FixedZone("", -5*3600)),
		ThreadID:   "1",
		ID:         "42",
		Thread:     "Local Listener",
		Attributes: attrs,
	}
}

func TestStyle(t *testing.T) {
	_, ok := Style(sampleEvent(model.KindDetail, "Detail", ""))
	assert.False(t, ok)

	_, ok = Style(sampleEvent(model.KindDetail, "Detail", "chartreuse"))
	assert.False(t, ok, "unknown colors render plain")

	style, ok := Style(sampleEvent(model.KindDetail, "Detail", "orange"))
	require.True(t, ok)
	assert.Equal(t, palette["orange"].GetForeground(), style.GetForeground())

	style, ok = Style(sampleEvent(model.KindTransfer, "Transfer", "red"))
	require.True(t, ok)
	assert.Equal(t, palette["blue"].GetForeground(), style.GetForeground())

	_, ok = Style(model.Event{Kind: model.KindRun, Tag: "Run"})
	assert.False(t, ok)
}

func TestTextRendererPlain(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf)
	r.Plain = true

	require.NoError(t, r.Render(sampleEvent(model.KindDetail, "Detail", "red")))
	assert.Equal(t,
		"42/2024-03-05T07:08:09-05:00 Local Listener[1] Detail: color='red': hello\n",
		buf.String())
}

func TestColorfulKeepsText(t *testing.T) {
	e := sampleEvent(model.KindDetail, "Detail", "green")
	assert.Contains(t, NewTextRenderer(&bytes.Buffer{}).Colorful(e), e.String())
}

func TestTextRendererColorsWhenPiped(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf)

	require.NoError(t, r.Render(sampleEvent(model.KindDetail, "Detail", "red")))
	require.NoError(t, r.Render(sampleEvent(model.KindDetail, "Detail", "")))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "\x1b[")
	assert.Contains(t, lines[0], "Detail: color='red': hello")
	assert.NotContains(t, lines[1], "\x1b[")
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONRenderer(&buf, "ship01", "/logs/Harmony.xml")

	require.NoError(t, r.Render(sampleEvent(model.KindDetail, "Detail", "")))
	require.NoError(t, r.Render(sampleEvent(model.KindHint, "Hint", "")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, "Detail", got["type"])
	assert.Equal(t, "ship01", got["host"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "42", got["eventid"])
}
