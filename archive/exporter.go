package archive

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/avmkit/blob"
	"github.com/hupe1980/avmkit/codec"
	"github.com/hupe1980/avmkit/slotstore"
)

const (
	defaultParallelism = 4

	manifestObjectName = "MANIFEST.json"
	snapshotSuffix     = ".avks"
)

// Source names one blob to export: the slot store already scoped to the
// owner, plus the blob geometry to capture.
type Source struct {
	Owner  string
	Store  slotstore.Store
	Config blob.Config
}

// Manifest records one export run: which owners were captured and where
// their snapshots landed.
type Manifest struct {
	Application string    `json:"application"`
	CreatedAt   time.Time `json:"created_at"`
	Codec       string    `json:"codec"`
	Entries     []Entry   `json:"entries"`
}

// Entry describes one exported snapshot.
type Entry struct {
	Owner  string `json:"owner"`
	Object string `json:"object"`
	Pages  int    `json:"pages"`
	Bytes  int    `json:"bytes"`
}

// manifestEnvelope is the minimal shape needed to sniff which codec wrote
// a manifest. Built-in codecs share the JSON wire format, so the envelope
// always decodes with the standard-library codec.
type manifestEnvelope struct {
	Codec string `json:"codec"`
}

// Exporter captures blobs into snapshots and ships the encoded archives to
// an ObjectStore, one object per owner plus a manifest per application.
type Exporter struct {
	objects     ObjectStore
	codec       codec.Codec
	compression Compression
	parallelism int
	prefix      string
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithManifestCodec sets the codec used to encode manifests. Defaults to
// codec.Default. Manifests record the codec name, so reads are unaffected.
func WithManifestCodec(c codec.Codec) ExporterOption {
	return func(e *Exporter) {
		e.codec = c
	}
}

// WithExportCompression sets the payload compression for exported
// snapshots. Defaults to CompressionZstd.
func WithExportCompression(c Compression) ExporterOption {
	return func(e *Exporter) {
		e.compression = c
	}
}

// WithParallelism bounds the number of owners exported concurrently.
func WithParallelism(n int) ExporterOption {
	return func(e *Exporter) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithByteBudget throttles uploads to roughly bytesPerSec. The budget must
// exceed the largest single archive or its upload can never be admitted.
func WithByteBudget(bytesPerSec int64) ExporterOption {
	return func(e *Exporter) {
		if bytesPerSec > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), int(bytesPerSec))
		}
	}
}

// WithPrefix places all objects under a common name prefix.
func WithPrefix(prefix string) ExporterOption {
	return func(e *Exporter) {
		e.prefix = prefix
	}
}

// WithLogger sets the logger for the exporter.
func WithLogger(l *slog.Logger) ExporterOption {
	return func(e *Exporter) {
		e.logger = l
	}
}

// NewExporter creates an Exporter writing to objects.
func NewExporter(objects ObjectStore, optFns ...ExporterOption) *Exporter {
	e := &Exporter{
		objects:     objects,
		codec:       codec.Default,
		compression: CompressionZstd,
		parallelism: defaultParallelism,
	}

	for _, fn := range optFns {
		fn(e)
	}

	return e
}

// ObjectName returns the object an owner's snapshot is stored under.
func (e *Exporter) ObjectName(app, owner string) string {
	return path.Join(e.prefix, app, owner+snapshotSuffix)
}

func (e *Exporter) manifestObject(app string) string {
	return path.Join(e.prefix, app, manifestObjectName)
}

// Export captures every source, uploads the encoded snapshots, and writes
// the manifest last so a manifest never references objects that are not
// yet stored. Owners are exported concurrently; the first failure cancels
// the remaining captures and no manifest is written.
func (e *Exporter) Export(ctx context.Context, app string, sources []Source) (*Manifest, error) {
	if app == "" {
		return nil, fmt.Errorf("archive: empty application name")
	}
	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		if _, ok := seen[src.Owner]; ok {
			return nil, fmt.Errorf("archive: duplicate owner %q", src.Owner)
		}
		seen[src.Owner] = struct{}{}
	}

	start := time.Now()
	entries := make([]Entry, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for i, src := range sources {
		g.Go(func() error {
			snap, err := Capture(gctx, src.Store, src.Config, src.Owner)
			if err != nil {
				return fmt.Errorf("capture %s: %w", src.Owner, err)
			}

			data, err := Encode(snap, WithCompression(e.compression))
			if err != nil {
				return fmt.Errorf("encode %s: %w", src.Owner, err)
			}

			if e.limiter != nil {
				if err := e.limiter.WaitN(gctx, len(data)); err != nil {
					return err
				}
			}

			object := e.ObjectName(app, src.Owner)
			if err := e.objects.Put(gctx, object, data); err != nil {
				return fmt.Errorf("put %s: %w", object, err)
			}

			entries[i] = Entry{
				Owner:  src.Owner,
				Object: object,
				Pages:  len(snap.Pages),
				Bytes:  len(data),
			}

			if e.logger != nil {
				e.logger.Debug("snapshot exported",
					"owner", src.Owner,
					"object", object,
					"pages", len(snap.Pages),
					"bytes", len(data),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	manifest := &Manifest{
		Application: app,
		CreatedAt:   time.Now().UTC(),
		Codec:       e.codec.Name(),
		Entries:     entries,
	}
	data, err := e.codec.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := e.objects.Put(ctx, e.manifestObject(app), data); err != nil {
		return nil, fmt.Errorf("put manifest: %w", err)
	}

	if e.logger != nil {
		e.logger.Info("export completed",
			"application", app,
			"snapshots", len(entries),
			"duration", time.Since(start),
		)
	}

	return manifest, nil
}

// LoadManifest fetches and decodes an application's manifest. The manifest
// records the codec that wrote it, so the stored name wins over the
// exporter's configured codec.
func (e *Exporter) LoadManifest(ctx context.Context, app string) (*Manifest, error) {
	data, err := e.objects.Get(ctx, e.manifestObject(app))
	if err != nil {
		return nil, err
	}

	var env manifestEnvelope
	if err := (codec.JSON{}).Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode manifest envelope: %w", err)
	}
	c := e.codec
	if env.Codec != "" {
		if named, ok := codec.ByName(env.Codec); ok {
			c = named
		}
	}

	var m Manifest
	if err := c.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// Load fetches and decodes one snapshot object.
func (e *Exporter) Load(ctx context.Context, object string) (*Snapshot, error) {
	data, err := e.objects.Get(ctx, object)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Restore fetches a snapshot object and replays it into store.
func (e *Exporter) Restore(ctx context.Context, object string, store slotstore.Store) error {
	snap, err := e.Load(ctx, object)
	if err != nil {
		return err
	}
	if e.logger != nil {
		e.logger.Debug("restoring snapshot",
			"object", object,
			"owner", snap.Owner,
			"pages", len(snap.Pages),
		)
	}
	return snap.Restore(ctx, store)
}
