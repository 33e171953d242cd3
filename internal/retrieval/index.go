// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/pdiddy/travel-recommender/internal/destination"
	"github.com/pdiddy/travel-recommender/internal/logging"
	"github.com/pdiddy/travel-recommender/pkg/types"
)

var (
	docPrefix = []byte("doc:")
	metaKey   = []byte("meta:embedder")
)

// Hit is one scored document.
type Hit struct {
	ID          string                  `json:"id"`
	Content     string                  `json:"content"`
	Destination types.DestinationRecord `json:"destination"`
	Score       float64                 `json:"score"`
}

type document struct {
	ID          string                  `json:"id"`
	Content     string                  `json:"content"`
	Destination types.DestinationRecord `json:"destination"`
	Vector      []float64               `json:"vector"`
}

type indexMeta struct {
	Embedder  string `json:"embedder"`
	Documents int    `json:"documents"`
	Snapshot  []byte `json:"snapshot,omitempty"`
}

// Index is a read-mostly similarity index persisted under dir. Searches load
// it from disk on first use.
type Index struct {
	dir      string
	embedder Embedder
	logger   zerolog.Logger

	// dbMu serialises access to the Badger directory, which admits one
	// opener at a time.
	dbMu sync.Mutex

	// mu guards docs, loaded and the embedder's fitted state.
	mu     sync.RWMutex
	docs   []document
	loaded bool
}

// NewIndex returns an index rooted at dir. Nothing is read until Load,
// Build or the first search.
func NewIndex(dir string, embedder Embedder, logger zerolog.Logger) *Index {
	return &Index{
		dir:      filepath.Clean(dir),
		embedder: embedder,
		logger:   logging.WithComponent(logger, "retrieval"),
	}
}

func openDB(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening index at %s: %w", dir, err)
	}
	return db, nil
}

// Build embeds every row of the CSV at csvPath and replaces the persisted
// index. A missing file yields an error wrapping destination.ErrSourceNotFound.
func (ix *Index) Build(ctx context.Context, csvPath string) (int, error) {
	records, err := destination.LoadCSV(csvPath, ix.logger)
	if err != nil {
		return 0, fmt.Errorf("building index: %w", err)
	}
	return ix.BuildFromRecords(ctx, records)
}

// BuildFromRecords embeds records and replaces the persisted index. On
// failure the previous index stays in effect, both in memory and on disk.
func (ix *Index) BuildFromRecords(ctx context.Context, records []types.DestinationRecord) (int, error) {
	ix.dbMu.Lock()
	defer ix.dbMu.Unlock()
	ix.mu.Lock()
	defer ix.mu.Unlock()

	rollback := func() {}
	if snap, ok := ix.embedder.(Snapshotter); ok {
		prev, err := snap.Snapshot()
		if err != nil {
			return 0, fmt.Errorf("snapshotting embedder: %w", err)
		}
		rollback = func() {
			if err := snap.Restore(prev); err != nil {
				ix.logger.Error().Err(err).Msg("restoring embedder after failed build")
			}
		}
	}

	docs, meta, err := ix.embedAll(ctx, records)
	if err == nil {
		err = ix.persist(docs, meta)
	}
	if err != nil {
		rollback()
		return 0, err
	}

	ix.docs = docs
	ix.loaded = true

	ix.logger.Info().Int("documents", len(docs)).Str("embedder", meta.Embedder).Msg("index built")
	return len(docs), nil
}

func (ix *Index) embedAll(ctx context.Context, records []types.DestinationRecord) ([]document, indexMeta, error) {
	var meta indexMeta
	corpus := make([]string, len(records))
	for i, r := range records {
		corpus[i] = DocumentContent(r)
	}
	if err := ix.embedder.Prepare(ctx, corpus); err != nil {
		return nil, meta, fmt.Errorf("preparing embedder: %w", err)
	}

	docs := make([]document, len(records))
	for i, r := range records {
		if err := ctx.Err(); err != nil {
			return nil, meta, err
		}
		vec, err := ix.embedder.Embed(ctx, corpus[i])
		if err != nil {
			return nil, meta, fmt.Errorf("embedding %s: %w", r.ID, err)
		}
		docs[i] = document{ID: r.ID, Content: corpus[i], Destination: r, Vector: vec}
	}

	meta = indexMeta{Embedder: ix.embedder.Name(), Documents: len(docs)}
	if snap, ok := ix.embedder.(Snapshotter); ok {
		data, err := snap.Snapshot()
		if err != nil {
			return nil, meta, fmt.Errorf("snapshotting embedder: %w", err)
		}
		meta.Snapshot = data
	}
	return docs, meta, nil
}

// persist writes the index into a sibling staging directory and swaps it in
// only once every key has been flushed.
func (ix *Index) persist(docs []document, meta indexMeta) error {
	if err := os.MkdirAll(filepath.Dir(ix.dir), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	staging := ix.dir + ".building"
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("clearing %s: %w", staging, err)
	}
	defer os.RemoveAll(staging)

	if err := writeIndex(staging, docs, meta); err != nil {
		return err
	}
	return swapDir(staging, ix.dir)
}

func writeIndex(dir string, docs []document, meta indexMeta) error {
	db, err := openDB(dir)
	if err != nil {
		return err
	}
	defer db.Close()

	wb := db.NewWriteBatch()
	defer wb.Cancel()
	for _, d := range docs {
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", d.ID, err)
		}
		if err := wb.Set(append(append([]byte{}, docPrefix...), d.ID...), data); err != nil {
			return fmt.Errorf("writing %s: %w", d.ID, err)
		}
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding index metadata: %w", err)
	}
	if err := wb.Set(metaKey, data); err != nil {
		return fmt.Errorf("writing index metadata: %w", err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flushing index: %w", err)
	}
	return db.Close()
}

// swapDir replaces dst with src, putting dst back if the final rename fails.
func swapDir(src, dst string) error {
	prev := dst + ".previous"
	if err := os.RemoveAll(prev); err != nil {
		return fmt.Errorf("clearing %s: %w", prev, err)
	}
	hadPrev := false
	if _, err := os.Stat(dst); err == nil {
		if err := os.Rename(dst, prev); err != nil {
			return fmt.Errorf("moving old index aside: %w", err)
		}
		hadPrev = true
	}
	if err := os.Rename(src, dst); err != nil {
		if hadPrev {
			_ = os.Rename(prev, dst)
		}
		return fmt.Errorf("installing index: %w", err)
	}
	return os.RemoveAll(prev)
}

// Load reads the persisted index. It returns an error wrapping
// types.ErrNotLoaded when the directory has never been built.
func (ix *Index) Load(ctx context.Context) error {
	ix.dbMu.Lock()
	defer ix.dbMu.Unlock()
	return ix.load(ctx)
}

func (ix *Index) load(ctx context.Context) error {
	if _, err := os.Stat(ix.dir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("index %s: %w", ix.dir, types.ErrNotLoaded)
	}

	db, err := openDB(ix.dir)
	if err != nil {
		return err
	}
	defer db.Close()

	var (
		meta indexMeta
		docs []document
	)
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("index %s: %w", ix.dir, types.ErrNotLoaded)
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &meta) }); err != nil {
			return fmt.Errorf("decoding index metadata: %w", err)
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(docPrefix); it.ValidForPrefix(docPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var d document
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &d) }); err != nil {
				return fmt.Errorf("decoding %s: %w", it.Item().Key(), err)
			}
			docs = append(docs, d)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if meta.Embedder != ix.embedder.Name() {
		return fmt.Errorf("index %s was built with embedder %q, configured %q", ix.dir, meta.Embedder, ix.embedder.Name())
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if snap, ok := ix.embedder.(Snapshotter); ok {
		if err := snap.Restore(meta.Snapshot); err != nil {
			return err
		}
	}
	ix.docs = docs
	ix.loaded = true

	ix.logger.Debug().Int("documents", len(docs)).Msg("index loaded")
	return nil
}

func (ix *Index) isLoaded() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.loaded
}

func (ix *Index) ensureLoaded(ctx context.Context) error {
	if ix.isLoaded() {
		return nil
	}
	ix.dbMu.Lock()
	defer ix.dbMu.Unlock()
	if ix.isLoaded() {
		return nil
	}
	return ix.load(ctx)
}

// Len returns the number of indexed documents, loading the index if needed.
func (ix *Index) Len(ctx context.Context) (int, error) {
	if err := ix.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs), nil
}

// SearchAllRanked scores every document against query and returns them all,
// highest score first. Equal scores are ordered by id.
func (ix *Index) SearchAllRanked(ctx context.Context, query string) ([]Hit, error) {
	if err := ix.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	ix.mu.RLock()
	qv, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		ix.mu.RUnlock()
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	hits := make([]Hit, len(ix.docs))
	for i, d := range ix.docs {
		hits[i] = Hit{ID: d.ID, Content: d.Content, Destination: d.Destination, Score: Cosine(qv, d.Vector)}
	}
	ix.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	return hits, nil
}

// Search returns the k best hits. k <= 0 returns every hit.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	hits, err := ix.SearchAllRanked(ctx, query)
	if err != nil {
		return nil, err
	}
	if k > 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}
