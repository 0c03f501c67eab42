package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeRecords() []FileRecord {
	return []FileRecord{
		New("a.csv", "a.csv", 1),
		New("b.json", "b.json", 2),
		New("c.txt", "c.txt", 3),
	}
}

func TestStorePreservesInsertionOrder(t *testing.T) {
	s := NewStore(threeRecords())

	got := s.Records()
	require.Len(t, got, 3)
	assert.Equal(t, "a.csv", got[0].Name)
	assert.Equal(t, "b.json", got[1].Name)
	assert.Equal(t, "c.txt", got[2].Name)
}

func TestStoreGetByID(t *testing.T) {
	recs := threeRecords()
	s := NewStore(recs)

	got, ok := s.Get(recs[1].ID)
	require.True(t, ok)
	assert.Equal(t, "b.json", got.Name)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStoreAppendAndRemove(t *testing.T) {
	s := NewStore(nil)
	r := New("a.csv", "a.csv", 1)

	s = s.Append(r)
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.HasName("a.csv"))

	s = s.Remove(r.ID)
	assert.Equal(t, 0, s.Len())

	// removing an unknown id is a no-op
	s = s.Remove("missing")
	assert.Equal(t, 0, s.Len())
}

func TestStoreTransformReturnsNewSnapshot(t *testing.T) {
	s := NewStore(threeRecords())

	updated := s.Transform(func(r FileRecord) FileRecord {
		r.Uploaded = true
		return r
	})

	for _, r := range s.Records() {
		assert.False(t, r.Uploaded, "previous snapshot must be untouched")
	}
	for _, r := range updated.Records() {
		assert.True(t, r.Uploaded)
	}
}

func TestStoreViewsComputedOnDemand(t *testing.T) {
	recs := threeRecords()
	recs[1].Selected = false
	recs[0].Processed = true
	recs[0].IngestionStatus = IngestionFailed
	s := NewStore(recs)

	selected := s.Selected()
	require.Len(t, selected, 2)
	assert.Equal(t, "a.csv", selected[0].Name)
	assert.Equal(t, "c.txt", selected[1].Name)

	processed := s.SelectedProcessed()
	require.Len(t, processed, 1)
	assert.Equal(t, "a.csv", processed[0].Name)

	failed := s.WithIngestionStatus(IngestionFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "a.csv", failed[0].Name)

	// a later snapshot is reflected in fresh views, not cached ones
	s = s.Transform(func(r FileRecord) FileRecord {
		r.Selected = true
		return r
	})
	assert.Len(t, s.Selected(), 3)
}

func TestStoreRecordsAreIsolatedCopies(t *testing.T) {
	recs := threeRecords()
	s := NewStore(recs)

	out := s.Records()
	out[0].Name = "hijacked"

	again, ok := s.Get(recs[0].ID)
	require.True(t, ok)
	assert.Equal(t, "a.csv", again.Name)
}
