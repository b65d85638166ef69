package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"versalex-ingest/internal/follower"
	"versalex-ingest/internal/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLines(t *testing.T) {
	tests := []struct {
		in      string
		want    window
		wantErr bool
	}{
		{"", window{}, false},
		{"10", window{Last: 10, Skip: -1}, false},
		{"+3", window{Skip: 3}, false},
		{"-3", window{}, true},
		{"ten", window{}, true},
		{"+", window{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLines(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

const sampleLog = `<Run TN1="Local Listener" date="2024/03/05 07:08:09">
<Event><Mark date="2024/03/05 07:08:10" TN="1" EN="1"/><Detail level="1">one</Detail></Event>
<Event><Mark date="2024/03/05 07:08:11" TN="1" EN="2"/><Detail level="1">two</Detail></Event>
<Event><Mark date="2024/03/05 07:08:12" TN="1" EN="3"/><Detail level="1">three</Detail></Event>
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Harmony.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))
	return path
}

func runTailFor(t *testing.T, path string, win window) []string {
	t.Helper()
	var buf bytes.Buffer
	r := render.NewTextRenderer(&buf)
	r.Plain = true
	require.NoError(t, tail(context.Background(), path, follower.Options{Interval: time.Millisecond}, win, r))
	return strings.Split(strings.TrimSpace(buf.String()), "\n")
}

func TestTailWindows(t *testing.T) {
	path := writeSample(t)

	all := runTailFor(t, path, window{})
	require.Len(t, all, 4)
	assert.True(t, strings.HasSuffix(all[1], "Local Listener[1] Detail: level='1': one"))

	last := runTailFor(t, path, window{Last: 2, Skip: -1})
	assert.Equal(t, all[2:], last)

	skipped := runTailFor(t, path, window{Skip: 3})
	assert.Equal(t, all[3:], skipped)
}

func TestRootCommand(t *testing.T) {
	path := writeSample(t)

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--plain", "-n", "1", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "three")
	assert.NotContains(t, out.String(), "two")

	cmd = NewRootCmd()
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-o", "json", path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"eventid":"2"`)
}

func TestRootCommandErrors(t *testing.T) {
	path := writeSample(t)
	empty := t.TempDir()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"two files", []string{path, path}, "only one filename"},
		{"bad lines", []string{"-n", "x", path}, "lines must be a number"},
		{"bad output", []string{"-o", "yaml", path}, "unknown output format"},
		{"missing file", []string{filepath.Join(empty, "nope.xml")}, "no such file"},
		{"unknown service", []string{"-s", "nope"}, "service nope not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VLTAIL_INIT_DIR", empty)
			cmd := NewRootCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
