package checkpoint

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rclib/bookweaver/internal/catalog"
)

func sampleRecords() []catalog.Record {
	return []catalog.Record{
		{
			ISBN: "9780134190440", Title: "The Go Programming Language", Author: "Donovan, Kernighan",
			Publisher: "Addison-Wesley", Year: 2015, AccessionDate: "12/01/2016",
			Status: catalog.StatusResolved, Description: "A thorough, example-driven introduction.", Source: "openlibrary",
		},
		{
			ISBN: "9780262033848", Title: "Introduction to Algorithms", Author: "Cormen",
			Year: 2009, Status: catalog.StatusPending,
		},
		{
			ISBN: "0000000000", Title: "Obscure Pamphlet, with \"quotes\"",
			Status: catalog.StatusNotFound,
		},
	}
}

func TestLocalStorePutGet(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	uri, err := store.Put(context.Background(), "runs/a/000001.csv", "text/csv", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"))

	r, err := store.Get(context.Background(), "runs/a/000001.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "payload", string(data))
}

func TestLocalStoreMissingObject(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "nope.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../escape.csv", "text/csv", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	_, err := store.Put(context.Background(), "k", "text/plain", strings.NewReader("v"))
	require.NoError(t, err)

	r, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	assert.Equal(t, "v", string(data))
	assert.Equal(t, 1, store.Len())

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	want := sampleRecords()
	data, err := encodeRecords(want)
	require.NoError(t, err)

	got, err := decodeRecords(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeRejectsForeignHeader(t *testing.T) {
	t.Parallel()

	_, err := decodeRecords(strings.NewReader("a,b,c\n1,2,3\n"))
	assert.Error(t, err)
}

func TestManagerSaveAndLoadLatest(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	m, err := NewManager(store, "checkpoints", "run-1", nil)
	require.NoError(t, err)

	records := sampleRecords()
	uri, err := m.Save(context.Background(), records)
	require.NoError(t, err)
	assert.Contains(t, uri, "checkpoints/run-1/000001.csv")

	got, err := m.LoadLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestManagerLatestMarkerTracksNewestSnapshot(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	m, err := NewManager(store, "checkpoints", "run-1", nil)
	require.NoError(t, err)

	first := sampleRecords()
	_, err = m.Save(context.Background(), first)
	require.NoError(t, err)

	second := sampleRecords()
	second[1].Resolve("Now resolved on the second pass.", "googlebooks-api")
	_, err = m.Save(context.Background(), second)
	require.NoError(t, err)

	got, err := m.LoadLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, got)

	// Both snapshots plus the marker remain; nothing is overwritten.
	assert.Equal(t, 3, store.Len())
}

func TestManagerLoadLatestFreshStore(t *testing.T) {
	t.Parallel()

	m, err := NewManager(NewMemoryStore(), "checkpoints", "run-1", nil)
	require.NoError(t, err)

	_, err = m.LoadLatest(context.Background())
	assert.ErrorIs(t, err, ErrNoCheckpoint)
}

func TestManagerResumeAcrossRuns(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	first, err := NewManager(store, "checkpoints", "run-1", nil)
	require.NoError(t, err)
	_, err = first.Save(context.Background(), sampleRecords())
	require.NoError(t, err)

	// A new run with its own ID still resumes from the shared marker.
	second, err := NewManager(store, "checkpoints", "run-2", nil)
	require.NoError(t, err)
	got, err := second.LoadLatest(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = second.Save(context.Background(), got)
	require.NoError(t, err)
	latest, err := first.LoadLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, got, latest)
}
