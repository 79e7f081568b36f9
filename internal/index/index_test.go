package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sha1n/mcp-repo-radar/internal/domain"
)

// closeIndex is a helper to close an index in tests and fail on error
func closeIndex(t *testing.T, idx *Index) {
	t.Helper()
	if err := idx.Close(); err != nil {
		t.Errorf("Failed to close index: %v", err)
	}
}

func strPtr(s string) *string { return &s }

func testDoc(id int64, fullName, description, language string, stars int, starsPerDay float64, topics ...string) domain.RepositoryDocument {
	doc := domain.RepositoryDocument{
		ID:          id,
		FullName:    fullName,
		Stars:       stars,
		StarsPerDay: starsPerDay,
		CreatedAt:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		PushedAt:    time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		Topics:      topics,
		Icon:        fmt.Sprintf("https://avatars.example/%d", id),
	}
	if topics == nil {
		doc.Topics = []string{}
	}
	if description != "" {
		doc.Description = strPtr(description)
	}
	if language != "" {
		doc.Language = strPtr(language)
	}
	return doc
}

func newMemoryIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewMemory()
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func mustUpsert(t *testing.T, idx *Index, docs ...domain.RepositoryDocument) {
	t.Helper()
	n, err := idx.Upsert(context.Background(), docs)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if n != len(docs) {
		t.Fatalf("Upsert wrote %d documents, want %d", n, len(docs))
	}
}

func TestOpen_CreatesAndReopens(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)

	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	mustUpsert(t, idx, testDoc(1, "acme/rocket", "rockets", "Go", 10, 1))
	closeIndex(t, idx)

	if _, err := os.Stat(filepath.Join(dir, "indexes", "repositories.bleve")); err != nil {
		t.Fatalf("Index directory should exist: %v", err)
	}

	// Re-running schema setup on an existing index is a no-op
	idx2, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer closeIndex(t, idx2)

	if err := idx2.EnsureSchema(); err != nil {
		t.Errorf("EnsureSchema on existing index failed: %v", err)
	}
	count, err := idx2.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(filepath.Join(file, "index.bleve"))
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	idx := newMemoryIndex(t)
	docs := []domain.RepositoryDocument{
		testDoc(1, "acme/one", "first", "Go", 10, 1, "a", "b"),
		testDoc(2, "acme/two", "second", "Rust", 20, 2, "c"),
		testDoc(3, "acme/three", "", "", 30, 3),
	}

	mustUpsert(t, idx, docs...)
	before := make(map[int64]domain.RepositoryDocument)
	for _, d := range docs {
		got, err := idx.Get(context.Background(), d.ID)
		if err != nil {
			t.Fatalf("Get(%d) failed: %v", d.ID, err)
		}
		before[d.ID] = got
	}

	mustUpsert(t, idx, docs...)

	count, err := idx.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != uint64(len(docs)) {
		t.Errorf("Count after second upsert = %d, want %d", count, len(docs))
	}
	for _, d := range docs {
		got, err := idx.Get(context.Background(), d.ID)
		if err != nil {
			t.Fatalf("Get(%d) failed: %v", d.ID, err)
		}
		if !reflect.DeepEqual(got, before[d.ID]) {
			t.Errorf("document %d changed after identical upsert:\n got %+v\nwant %+v", d.ID, got, before[d.ID])
		}
	}
}

func TestUpsert_OverwritesByID(t *testing.T) {
	idx := newMemoryIndex(t)

	mustUpsert(t, idx, testDoc(7, "old/name", "old", "Go", 100, 10))
	mustUpsert(t, idx, testDoc(7, "new/name", "new", "Go", 300, 30))

	got, err := idx.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.FullName != "new/name" || got.Stars != 300 || got.StarsPerDay != 30 {
		t.Errorf("document not overwritten: %+v", got)
	}
	count, _ := idx.Count()
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestUpsert_LargeBatch(t *testing.T) {
	idx := newMemoryIndex(t)

	docs := make([]domain.RepositoryDocument, 0, MaxBatchSize*2+5)
	for i := range MaxBatchSize*2 + 5 {
		docs = append(docs, testDoc(int64(i+1), fmt.Sprintf("org/repo-%d", i), "bulk", "Go", i, float64(i)))
	}
	mustUpsert(t, idx, docs...)

	count, _ := idx.Count()
	if count != uint64(len(docs)) {
		t.Errorf("Count = %d, want %d", count, len(docs))
	}
}

func TestUpsert_ConcurrentDisjoint(t *testing.T) {
	idx := newMemoryIndex(t)

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			var docs []domain.RepositoryDocument
			for i := range 50 {
				id := int64(w*1000 + i + 1)
				docs = append(docs, testDoc(id, fmt.Sprintf("w%d/r%d", w, i), "concurrent", "Go", i, float64(i)))
			}
			if _, err := idx.Upsert(context.Background(), docs); err != nil {
				t.Errorf("worker %d upsert failed: %v", w, err)
			}
		}(w)
	}
	wg.Wait()

	count, _ := idx.Count()
	if count != 200 {
		t.Errorf("Count = %d, want 200", count)
	}
	got, err := idx.Get(context.Background(), 2010)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.FullName != "w2/r9" {
		t.Errorf("FullName = %q, want w2/r9", got.FullName)
	}
}

func TestGet_RoundTripsFields(t *testing.T) {
	idx := newMemoryIndex(t)
	doc := testDoc(42, "acme/rocket", "fast rockets", "Go", 1200, 3.5, "space")
	doc.Homepage = strPtr("https://rocket.dev")
	doc.Archived = true
	mustUpsert(t, idx, doc)

	got, err := idx.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.ID != 42 || got.FullName != "acme/rocket" || got.Stars != 1200 || got.StarsPerDay != 3.5 {
		t.Errorf("scalar fields mismatch: %+v", got)
	}
	if got.DescriptionOr("") != "fast rockets" || got.LanguageOr("") != "Go" {
		t.Errorf("optional fields mismatch: %+v", got)
	}
	if got.Homepage == nil || *got.Homepage != "https://rocket.dev" {
		t.Errorf("Homepage = %v", got.Homepage)
	}
	if !got.Archived {
		t.Error("Archived should be true")
	}
	if len(got.Topics) != 1 || got.Topics[0] != "space" {
		t.Errorf("Topics = %v", got.Topics)
	}
	if !got.CreatedAt.Equal(doc.CreatedAt) || !got.PushedAt.Equal(doc.PushedAt) {
		t.Errorf("dates mismatch: created %v pushed %v", got.CreatedAt, got.PushedAt)
	}
	if got.Icon != doc.Icon {
		t.Errorf("Icon = %q", got.Icon)
	}
}

func TestGet_NotFound(t *testing.T) {
	idx := newMemoryIndex(t)

	_, err := idx.Get(context.Background(), 404)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_OptionalFieldsAbsent(t *testing.T) {
	idx := newMemoryIndex(t)
	mustUpsert(t, idx, testDoc(5, "bare/repo", "", "", 1, 0.1))

	got, err := idx.Get(context.Background(), 5)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Description != nil || got.Language != nil || got.Homepage != nil {
		t.Errorf("expected absent optional fields, got %+v", got)
	}
	if len(got.Topics) != 0 {
		t.Errorf("Topics = %v, want empty", got.Topics)
	}
}

func TestClosedIndex_Unavailable(t *testing.T) {
	idx, err := NewMemory()
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}
	mustUpsert(t, idx, testDoc(1, "a/b", "x", "Go", 1, 1))
	if err := idx.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := idx.Search(context.Background(), SearchRequest{Query: "x", TopK: 5}); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("Search on closed index: expected ErrIndexUnavailable, got %v", err)
	}
	if _, err := idx.Upsert(context.Background(), []domain.RepositoryDocument{testDoc(2, "c/d", "", "", 1, 1)}); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("Upsert on closed index: expected ErrIndexUnavailable, got %v", err)
	}
	if _, err := idx.Count(); !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("Count on closed index: expected ErrIndexUnavailable, got %v", err)
	}
}

func TestSchemaFields(t *testing.T) {
	want := []string{"full_name", "description", "topics", "language_text"}
	got := SearchableFields()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("SearchableFields() = %v, want %v", got, want)
	}
	if len(FilterableFields) != 6 {
		t.Errorf("FilterableFields = %v", FilterableFields)
	}
	if fmt.Sprint(SortableFields) != "[stars stars_per_day]" {
		t.Errorf("SortableFields = %v", SortableFields)
	}
}
