package threads

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Lookup("7")
	assert.False(t, ok)

	r.Set("7", "Local Listener")
	name, ok := r.Lookup("7")
	assert.True(t, ok)
	assert.Equal(t, "Local Listener", name)

	r.Set("7", "Scheduler")
	name, _ = r.Lookup("7")
	assert.Equal(t, "Scheduler", name, "later announcements overwrite the name")

	r.Delete("7")
	_, ok = r.Lookup("7")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistrySnapshotOrder(t *testing.T) {
	r := NewRegistry()
	r.Set("10", "ten")
	r.Set("2", "two")
	r.Set("1", "one")

	assert.Equal(t, []Thread{
		{ID: "1", Name: "one"},
		{ID: "2", Name: "two"},
		{ID: "10", Name: "ten"},
	}, r.Snapshot())
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	a.Set("1", "Local Listener")

	_, ok := b.Lookup("1")
	assert.False(t, ok)
}
