package follower

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"versalex-ingest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const runFragment = `<Run TN1="Local Listener" date="2024/03/05 07:08:09" version="5.8">` + "\n"

func detail(id int) string {
	return fmt.Sprintf(`<Event><Mark date="2024/03/05 07:08:%02d" TN="1" EN="%d"/><Detail level="1">event %d</Detail></Event>`+"\n", id%60, id, id)
}

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// rewriteInPlace overwrites the head of the file and then truncates it, so a
// concurrent poll never sees it empty.
func rewriteInPlace(t *testing.T, path, content string) {
	t.Helper()
	fh, err := os.OpenFile(path, os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = fh.WriteAt([]byte(content), 0)
	require.NoError(t, err)
	require.NoError(t, fh.Truncate(int64(len(content))))
	require.NoError(t, fh.Close())
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	fh, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = fh.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, fh.Close())
}

// collect subscribes a buffered channel to f.
func collect(f *Follower) chan model.Item {
	items := make(chan model.Item, 256)
	f.Subscribe(func(it model.Item) error {
		items <- it
		return nil
	})
	return items
}

// untilEOF returns everything published up to and including the next MarkerEOF.
func untilEOF(t *testing.T, items chan model.Item) []model.Item {
	t.Helper()
	var got []model.Item
	for {
		select {
		case it := <-items:
			got = append(got, it)
			if it.Marker == model.MarkerEOF {
				return got
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for end of file, got %d items", len(got))
			return got
		}
	}
}

func eventIDs(items []model.Item) []string {
	var ids []string
	for _, it := range items {
		if it.IsEvent() && it.Event.Kind != model.KindRun {
			ids = append(ids, it.Event.ID)
		}
	}
	return ids
}

func countMarkers(items []model.Item, m model.Marker) int {
	n := 0
	for _, it := range items {
		if it.Marker == m {
			n++
		}
	}
	return n
}

func startFollowing(t *testing.T, f *Follower) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("follower did not stop")
		}
	})
	return cancel, done
}

func TestRunOnceResolvesThreadNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Harmony.xml")
	writeLog(t, path, runFragment+detail(1)+detail(2))

	f := New(path, Options{Location: time.UTC})
	items := collect(f)
	require.NoError(t, f.Run(context.Background()))
	close(items)

	var got []model.Item
	for it := range items {
		got = append(got, it)
	}
	require.Len(t, got, 4)
	assert.Equal(t, model.KindRun, got[0].Event.Kind)
	assert.Equal(t, "Local Listener", got[1].Event.Thread)
	assert.Equal(t, "Local Listener[1] Detail: level='1': event 1", got[1].Event.Message())
	assert.Equal(t, model.MarkerEOF, got[3].Marker)

	assert.Equal(t, Stats{Events: 3, EOFs: 1}, f.Stats())
}

func TestRunSmallBufferSpansChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Harmony.xml")
	writeLog(t, path, runFragment+detail(1)+detail(2)+detail(3))

	f := New(path, Options{BufferSize: 7})
	items := collect(f)
	require.NoError(t, f.Run(context.Background()))

	assert.Equal(t, []string{"1", "2", "3"}, eventIDs(untilEOF(t, items)))
}

func TestRunSkipsUnparsableFragments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Harmony.xml")
	writeLog(t, path, detail(1)+"<Event><Mark/><Oops></Event>\n"+detail(2))

	f := New(path, Options{})
	items := collect(f)
	require.NoError(t, f.Run(context.Background()))

	assert.Equal(t, []string{"1", "2"}, eventIDs(untilEOF(t, items)))
	assert.Equal(t, int64(1), f.Stats().Failures)
}

func TestRunIncompleteTailIsNotPublished(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Harmony.xml")
	writeLog(t, path, detail(1)+`<Event><Mark date="2024/03/05 07:08:09" TN="1" EN="2"/>`)

	f := New(path, Options{})
	items := collect(f)
	require.NoError(t, f.Run(context.Background()))

	assert.Equal(t, []string{"1"}, eventIDs(untilEOF(t, items)))
}

func TestRunMissingFile(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "missing.xml"), Options{})
	err := f.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFollowGrowth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Harmony.xml")
	writeLog(t, path, runFragment+detail(1))

	f := New(path, Options{Follow: true, Interval: 5 * time.Millisecond})
	items := collect(f)
	startFollowing(t, f)

	var all []model.Item
	all = append(all, untilEOF(t, items)...)

	// Append a complete event and half of the next one.
	third := detail(3)
	appendLog(t, path, detail(2)+third[:20])
	all = append(all, untilEOF(t, items)...)

	appendLog(t, path, third[20:])
	all = append(all, untilEOF(t, items)...)

	assert.Equal(t, []string{"1", "2", "3"}, eventIDs(all))
	assert.Equal(t, 0, countMarkers(all, model.MarkerRotated))
	assert.Equal(t, "Local Listener", all[len(all)-2].Event.Thread)
}

func TestFollowTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Harmony.xml")
	writeLog(t, path, runFragment+detail(1)+detail(2)+`<Event><Mark date="2024/03/05 07:08:09" TN="1" EN="99"/>`)

	f := New(path, Options{Follow: true, Interval: 5 * time.Millisecond})
	items := collect(f)
	startFollowing(t, f)

	first := untilEOF(t, items)
	assert.Equal(t, []string{"1", "2"}, eventIDs(first))

	rewriteInPlace(t, path, detail(3))
	second := untilEOF(t, items)

	require.NotEmpty(t, second)
	assert.Equal(t, model.MarkerRotated, second[0].Marker)
	assert.Equal(t, 1, countMarkers(second, model.MarkerRotated))
	assert.Equal(t, []string{"3"}, eventIDs(second), "slop from the old file is dropped")
	assert.Equal(t, int64(1), f.Stats().Rotations)
}

func TestFollowReplacement(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Harmony.xml")
	writeLog(t, path, detail(1))

	f := New(path, Options{Follow: true, Interval: 5 * time.Millisecond})
	items := collect(f)
	startFollowing(t, f)
	untilEOF(t, items)

	// The new file is larger than the old one, so only its identity differs.
	next := filepath.Join(dir, "Harmony.xml.new")
	writeLog(t, next, detail(2)+detail(3)+detail(4))
	require.NoError(t, os.Rename(next, path))

	got := untilEOF(t, items)
	require.NotEmpty(t, got)
	assert.Equal(t, model.MarkerRotated, got[0].Marker)
	assert.Equal(t, []string{"2", "3", "4"}, eventIDs(got))
}

func TestFollowFileRemoved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Harmony.xml")
	writeLog(t, path, detail(1))

	f := New(path, Options{Follow: true, Interval: 5 * time.Millisecond})
	items := collect(f)
	_, done := startFollowing(t, f)
	untilEOF(t, items)

	require.NoError(t, os.Remove(path))
	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.Contains(t, err.Error(), path)
		done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("follower kept polling a removed file")
	}
}

func TestFollowStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Harmony.xml")
	writeLog(t, path, detail(1))

	f := New(path, Options{Follow: true, Interval: time.Hour})
	items := collect(f)
	cancel, done := startFollowing(t, f)
	untilEOF(t, items)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
		done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("follower did not stop while waiting")
	}
}

func TestFollowersHaveSeparateRegistries(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.xml")
	b := filepath.Join(dir, "b.xml")
	writeLog(t, a, runFragment)
	writeLog(t, b, detail(1))

	fa := New(a, Options{})
	require.NoError(t, fa.Run(context.Background()))
	fb := New(b, Options{})
	items := collect(fb)
	require.NoError(t, fb.Run(context.Background()))

	got := untilEOF(t, items)
	assert.Equal(t, "", got[0].Event.Thread)
	assert.Equal(t, 1, fa.Registry().Len())
	assert.Equal(t, 0, fb.Registry().Len())
}
