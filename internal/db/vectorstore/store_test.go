package vectorstore

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func unitVec(dims int, hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1
	return v
}

func TestSearchRanksByInnerProduct(t *testing.T) {
	s, err := New(3)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	entries := []Entry{
		{ID: "a", Text: "savings account", Source: "account.csv", Row: 1},
		{ID: "b", Text: "loan portfolio", Source: "loan.csv", Row: 2},
		{ID: "c", Text: "client record", Source: "client.csv", Row: 3},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	}
	for _, v := range vectors {
		Normalize(v)
	}
	if err := s.Add(entries, vectors); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	hits, err := s.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Entry.ID != "a" {
		t.Errorf("expected top hit 'a', got %q", hits[0].Entry.ID)
	}
	if hits[1].Entry.ID != "c" {
		t.Errorf("expected second hit 'c', got %q", hits[1].Entry.ID)
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("hits not in descending order: %f < %f", hits[0].Score, hits[1].Score)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	s, _ := New(4)
	hits, err := s.Search(unitVec(4, 0), 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits on empty index, got %d", len(hits))
	}
}

func TestDimensionMismatch(t *testing.T) {
	s, _ := New(4)
	if err := s.Add([]Entry{{ID: "x"}}, [][]float32{{1, 0}}); err == nil {
		t.Error("expected error adding vector with wrong dims")
	}
	if _, err := s.Search([]float32{1, 0}, 1); err == nil {
		t.Error("expected error searching with wrong dims")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings", "index.bin")

	s, _ := New(3)
	entries := []Entry{
		{ID: "a", Text: "file:account.csv | id: 1 ; type: savings", Source: "account.csv", Row: 1},
		{ID: "b", Text: "interest rate policy", Source: "rates.md", Row: 0},
	}
	vectors := [][]float32{{0.5, 0.5, 0.1}, {0.1, 0.9, 0.2}}
	for _, v := range vectors {
		Normalize(v)
	}
	if err := s.Add(entries, vectors); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := s.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("expected 2 entries after load, got %d", loaded.Size())
	}
	if loaded.Dims() != 3 {
		t.Fatalf("expected dims 3, got %d", loaded.Dims())
	}

	// 加载后的索引检索结果应与原索引一致
	query := []float32{0.1, 0.9, 0.2}
	Normalize(query)
	want, _ := s.Search(query, 2)
	got, err := loaded.Search(query, 2)
	if err != nil {
		t.Fatalf("Search on loaded index failed: %v", err)
	}
	for i := range want {
		if got[i].Entry != want[i].Entry {
			t.Errorf("entry %d mismatch: got %+v, want %+v", i, got[i].Entry, want[i].Entry)
		}
		if math.Abs(got[i].Score-want[i].Score) > 1e-9 {
			t.Errorf("score %d mismatch: got %f, want %f", i, got[i].Score, want[i].Score)
		}
	}
}

func TestLoadMissingArtifact(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.bin"))
	if !errors.Is(err, ErrArtifactMissing) {
		t.Errorf("expected ErrArtifactMissing, got %v", err)
	}
}

func TestLoadCorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	if err := os.WriteFile(path, []byte("not an index"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, err := Load(path)
	if !errors.Is(err, ErrArtifactCorrupt) {
		t.Errorf("expected ErrArtifactCorrupt, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	norm := math.Sqrt(float64(v[0]*v[0] + v[1]*v[1]))
	if math.Abs(norm-1) > 1e-6 {
		t.Errorf("expected unit norm, got %f", norm)
	}

	zero := []float32{0, 0}
	Normalize(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Error("zero vector should be unchanged")
	}
}
