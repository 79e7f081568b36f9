// Package index owns the repository search index: schema, upserts and
// filtered, sorted search.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/sha1n/mcp-repo-radar/internal/domain"
)

const (
	// IndexSuffix is the suffix for index directories
	IndexSuffix = ".bleve"

	// DefaultName is the name of the repository index
	DefaultName = "repositories"

	// MaxBatchSize is the maximum number of documents per batch
	MaxBatchSize = 100
)

// Index is the repository search index. It is safe for concurrent use;
// concurrent upserts of disjoint ids never interleave within a document.
type Index struct {
	path  string
	index bleve.Index
}

// Path returns the index location for a base directory.
func Path(baseDir string) string {
	return filepath.Join(baseDir, "indexes", DefaultName+IndexSuffix)
}

// Open opens the index at path, creating it with the repository schema if
// it does not exist yet. Opening is idempotent and safe to re-run.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0755); mkErr != nil {
			return nil, fmt.Errorf("%w: failed to create index directory: %v", domain.ErrIndexUnavailable, mkErr)
		}
		idx, err = bleve.New(path, CreateIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create index: %v", domain.ErrIndexUnavailable, err)
		}
		slog.Info("Created repository index", "path", path)
	} else if err != nil {
		return nil, fmt.Errorf("%w: failed to open index: %v", domain.ErrIndexUnavailable, err)
	}

	i := &Index{path: path, index: idx}
	if err := i.EnsureSchema(); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return i, nil
}

// NewMemory creates an in-memory index, used by tests and dry runs.
func NewMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create memory index: %v", domain.ErrIndexUnavailable, err)
	}
	return &Index{path: "", index: idx}, nil
}

// EnsureSchema verifies the index carries the repository schema.
func (i *Index) EnsureSchema() error {
	m := i.index.Mapping()
	for _, field := range []string{domain.RepoFieldFullName, domain.RepoFieldDescription, domain.RepoFieldTopics} {
		if name := m.AnalyzerNameForPath(field); name != standard.Name {
			return fmt.Errorf("%w: index at %s has an incompatible schema: field %s uses analyzer %q",
				domain.ErrIndexUnavailable, i.path, field, name)
		}
	}
	return nil
}

// Upsert writes documents, overwriting any existing document with the same
// id. Documents are written in batches; each batch is applied atomically.
// On failure the error reports how many documents were already written.
func (i *Index) Upsert(ctx context.Context, docs []domain.RepositoryDocument) (written int, err error) {
	for start := 0; start < len(docs); start += MaxBatchSize {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		end := min(start+MaxBatchSize, len(docs))
		batch := i.index.NewBatch()
		for _, doc := range docs[start:end] {
			if err := batch.Index(docID(doc.ID), toFields(doc)); err != nil {
				return written, fmt.Errorf("failed to stage document %d: %w", doc.ID, err)
			}
		}

		if err := i.index.Batch(batch); err != nil {
			return written, fmt.Errorf("%w: batch write failed after %d documents: %v", domain.ErrIndexUnavailable, written, err)
		}
		written += end - start
	}
	return written, nil
}

// Get returns the document with the given id or domain.ErrNotFound.
func (i *Index) Get(ctx context.Context, id int64) (domain.RepositoryDocument, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery([]string{docID(id)}), 1, 0, false)
	req.Fields = []string{"*"}

	res, err := i.index.SearchInContext(ctx, req)
	if err != nil {
		return domain.RepositoryDocument{}, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	if len(res.Hits) == 0 {
		return domain.RepositoryDocument{}, fmt.Errorf("repository %d: %w", id, domain.ErrNotFound)
	}
	return decodeHit(res.Hits[0])
}

// Count returns the number of documents in the index.
func (i *Index) Count() (uint64, error) {
	n, err := i.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return n, nil
}

// Close releases the index.
func (i *Index) Close() error {
	return i.index.Close()
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}
