package archive

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/avmkit/blob"
	"github.com/hupe1980/avmkit/codec"
	"github.com/hupe1980/avmkit/slotstore"
)

// failingObjectStore injects a Put failure for matching object names.
type failingObjectStore struct {
	ObjectStore
	failSubstring string
}

func (f *failingObjectStore) Put(ctx context.Context, name string, data []byte) error {
	if strings.Contains(name, f.failSubstring) {
		return errors.New("injected put failure")
	}
	return f.ObjectStore.Put(ctx, name, data)
}

// newOwnerStore seeds a blob-backed slot store with payload at the given
// offset and returns the store plus the geometry that addresses it.
func newOwnerStore(t *testing.T, payload []byte, offset uint64) (*slotstore.Memory, blob.Config) {
	t.Helper()
	ctx := context.Background()

	store := slotstore.NewMemory(blob.DefaultPageSize, int(blob.LocalMaxKeys))
	b, err := blob.New(store)
	require.NoError(t, err)
	require.NoError(t, b.Zero(ctx))
	require.NoError(t, b.Write(ctx, offset, payload))

	return store, b.Config()
}

func TestExporter_ExportRestore(t *testing.T) {
	ctx := context.Background()

	aliceStore, aliceCfg := newOwnerStore(t, bytes.Repeat([]byte("offer"), 40), 0)
	bobStore, bobCfg := newOwnerStore(t, []byte("single page"), 300)

	objects := NewMemory()
	exporter := NewExporter(objects,
		WithPrefix("snapshots"),
		WithParallelism(2),
		WithByteBudget(1<<20),
	)

	manifest, err := exporter.Export(ctx, "royalty", []Source{
		{Owner: "ALICE", Store: aliceStore, Config: aliceCfg},
		{Owner: "BOB", Store: bobStore, Config: bobCfg},
	})
	require.NoError(t, err)

	require.Len(t, manifest.Entries, 2)
	assert.Equal(t, "royalty", manifest.Application)
	assert.Equal(t, codec.Default.Name(), manifest.Codec)
	assert.Equal(t, "snapshots/royalty/ALICE.avks", manifest.Entries[0].Object)
	assert.Equal(t, "snapshots/royalty/BOB.avks", manifest.Entries[1].Object)
	assert.Greater(t, manifest.Entries[0].Pages, 0)
	assert.Greater(t, manifest.Entries[0].Bytes, 0)

	// Manifest plus one object per owner.
	names, err := objects.List(ctx, "snapshots/royalty/")
	require.NoError(t, err)
	assert.Len(t, names, 3)

	loaded, err := exporter.LoadManifest(ctx, "royalty")
	require.NoError(t, err)
	assert.Equal(t, manifest.Entries, loaded.Entries)

	// Restore ALICE into a fresh store and compare the full buffer.
	restoredStore := slotstore.NewMemory(blob.DefaultPageSize, int(blob.LocalMaxKeys))
	require.NoError(t, exporter.Restore(ctx, manifest.Entries[0].Object, restoredStore))

	orig, err := blob.New(aliceStore)
	require.NoError(t, err)
	restored, err := blob.New(restoredStore)
	require.NoError(t, err)

	want, err := orig.Read(ctx, 0, orig.Capacity())
	require.NoError(t, err)
	got, err := restored.Read(ctx, 0, restored.Capacity())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestExporter_Validation(t *testing.T) {
	ctx := context.Background()
	store, cfg := newOwnerStore(t, []byte("x"), 0)
	exporter := NewExporter(NewMemory())

	_, err := exporter.Export(ctx, "", nil)
	assert.Error(t, err)

	_, err = exporter.Export(ctx, "app", []Source{
		{Owner: "SAME", Store: store, Config: cfg},
		{Owner: "SAME", Store: store, Config: cfg},
	})
	assert.ErrorContains(t, err, "duplicate owner")
}

func TestExporter_FailedUploadSkipsManifest(t *testing.T) {
	ctx := context.Background()
	store, cfg := newOwnerStore(t, []byte("payload"), 0)

	objects := NewMemory()
	exporter := NewExporter(&failingObjectStore{ObjectStore: objects, failSubstring: "BOB"})

	_, err := exporter.Export(ctx, "app", []Source{
		{Owner: "ALICE", Store: store, Config: cfg},
		{Owner: "BOB", Store: store, Config: cfg},
	})
	require.Error(t, err)

	_, err = exporter.LoadManifest(ctx, "app")
	assert.ErrorIs(t, err, ErrNotFound, "a failed export must not publish a manifest")
}

func TestExporter_LoadManifestHonorsRecordedCodec(t *testing.T) {
	ctx := context.Background()
	store, cfg := newOwnerStore(t, []byte("payload"), 0)
	objects := NewMemory()

	writer := NewExporter(objects, WithManifestCodec(codec.JSON{}))
	_, err := writer.Export(ctx, "app", []Source{{Owner: "ALICE", Store: store, Config: cfg}})
	require.NoError(t, err)

	// A reader configured with a different default still decodes with the
	// codec the manifest names.
	reader := NewExporter(objects, WithManifestCodec(codec.GoJSON{}))
	m, err := reader.LoadManifest(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, "json", m.Codec)
	require.Len(t, m.Entries, 1)
	assert.Equal(t, "ALICE", m.Entries[0].Owner)
}

func TestExporter_RestoreMissingObject(t *testing.T) {
	ctx := context.Background()
	exporter := NewExporter(NewMemory())

	err := exporter.Restore(ctx, "nope.avks", slotstore.NewMemory(8, 4))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExporter_StructuredLogging(t *testing.T) {
	ctx := context.Background()
	store, cfg := newOwnerStore(t, []byte("payload"), 0)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	exporter := NewExporter(NewMemory(), WithLogger(logger))
	_, err := exporter.Export(ctx, "app", []Source{{Owner: "ALICE", Store: store, Config: cfg}})
	require.NoError(t, err)

	logs := buf.String()
	assert.Contains(t, logs, "snapshot exported")
	assert.Contains(t, logs, "export completed")
	assert.Contains(t, logs, "ALICE")
}
