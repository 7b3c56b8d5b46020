package kvstore_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/agentkv/kvstored/internal/kvstore"
	"github.com/agentkv/kvstored/pkg/fs"
)

func open(t *testing.T, path string, opts ...kvstore.Option) *kvstore.Store {
	t.Helper()

	s, err := kvstore.Open(fs.NewReal(), path, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	return s
}

// Property 1: round-trip, last write wins.
func TestStore_Set_LastWriteWins(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.log")
	s := open(t, path)
	defer s.Close()

	if err := s.Set("k", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := s.Set("k", "v2"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := s.Get("k")
	if err != nil || !ok || got != "v2" {
		t.Fatalf("Get = (%q, %v, %v), want (v2, true, nil)", got, ok, err)
	}

	if _, ok, _ := s.Get("missing"); ok {
		t.Fatalf("Get(missing) found a value, want not-found")
	}
}

// Property 2: delete erases, and reports existence correctly.
func TestStore_Delete_ErasesAndReportsExistence(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.log")
	s := open(t, path)
	defer s.Close()

	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	existed, err := s.Delete("k")
	if err != nil || !existed {
		t.Fatalf("first Delete = (%v, %v), want (true, nil)", existed, err)
	}

	if _, ok, _ := s.Get("k"); ok {
		t.Fatalf("key still present after Delete")
	}

	existed, err = s.Delete("k")
	if err != nil || existed {
		t.Fatalf("second Delete = (%v, %v), want (false, nil)", existed, err)
	}
}

// Property 3: persistence across a fresh Store on the same file.
func TestStore_Persistence_FreshStoreObservesSameMap(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.log")

	s1 := open(t, path)

	if err := s1.Set("a", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := s1.Set("b", "2"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, err := s1.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2 := open(t, path)
	defer s2.Close()

	if _, ok, _ := s2.Get("a"); ok {
		t.Fatalf("deleted key reappeared after reopen")
	}

	if got, ok, _ := s2.Get("b"); !ok || got != "2" {
		t.Fatalf("Get(b) = (%q, %v), want (2, true)", got, ok)
	}
}

// Scenario 4 from the spec: open empty, set, clean close, reopen.
func TestStore_OpenEmptyThenReopen_PersistsSingleKey(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.log")

	s1 := open(t, path)

	if err := s1.Set("persist_key", "persist_value"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2 := open(t, path)
	defer s2.Close()

	got, ok, err := s2.Get("persist_key")
	if err != nil || !ok || got != "persist_value" {
		t.Fatalf("Get = (%q, %v, %v), want (persist_value, true, nil)", got, ok, err)
	}
}

// Property 5 (all-or-nothing): bulk_set is one record, applied in full on replay.
func TestStore_BulkSet_AllItemsPersistTogether(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.log")

	s1 := open(t, path)

	err := s1.BulkSet([]kvstore.KV{
		{Key: "a", Value: "1"},
		{Key: "b", Value: "2"},
		{Key: "c", Value: "3"},
	})
	if err != nil {
		t.Fatalf("BulkSet: %v", err)
	}

	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2 := open(t, path)
	defer s2.Close()

	for k, want := range map[string]string{"a": "1", "b": "2", "c": "3"} {
		got, ok, _ := s2.Get(k)
		if !ok || got != want {
			t.Fatalf("Get(%q) = (%q, %v), want (%q, true)", k, got, ok, want)
		}
	}
}

func TestStore_BulkSet_EmptyItemsIsNoOp(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.log")
	s := open(t, path)
	defer s.Close()

	if err := s.BulkSet(nil); err != nil {
		t.Fatalf("BulkSet(nil): %v", err)
	}
}

// Simulates a torn bulk_set write: the crash happens mid-append, so replay
// must see none of the group's keys rather than a subset.
func TestStore_BulkSet_TornWriteDuringCrash_YieldsNoneOfTheGroup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "journal.log")
	fsys := fs.NewReal()

	s1 := open(t, path)

	if err := s1.Set("before", "ok"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := fsys.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	raw = append(raw, []byte(`{"op":"bulk_set","items":[["a","1"],["b"`)...)

	if err := fsys.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s2 := open(t, path)
	defer s2.Close()

	if got, ok, _ := s2.Get("before"); !ok || got != "ok" {
		t.Fatalf("Get(before) = (%q, %v), want (ok, true)", got, ok)
	}

	if _, ok, _ := s2.Get("a"); ok {
		t.Fatalf("torn bulk_set group partially applied: key 'a' present")
	}

	if _, ok, _ := s2.Get("b"); ok {
		t.Fatalf("torn bulk_set group partially applied: key 'b' present")
	}
}

// Overwrite must drop the old value's inverted-index tokens (spec §4.3).
func TestStore_Overwrite_RemovesStaleTokensFromFullTextIndex(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.log")
	s := open(t, path)
	defer s.Close()

	if err := s.Set("k", "alpha"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := s.Set("k", "beta"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := s.SearchFullText("alpha")
	if err != nil {
		t.Fatalf("SearchFullText: %v", err)
	}

	if len(got) != 0 {
		t.Fatalf("stale token 'alpha' still matches after overwrite: %v", got)
	}

	got, err = s.SearchFullText("beta")
	if err != nil || len(got) != 1 || got[0] != "k" {
		t.Fatalf("SearchFullText(beta) = (%v, %v), want ([k], nil)", got, err)
	}
}

// Property 6 (index coherence): delete removes embedding + inverted entries.
func TestStore_Delete_RemovesIndexEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.log")
	s := open(t, path)
	defer s.Close()

	if err := s.Set("k", "distinctive_token"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, err := s.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	textHits, err := s.SearchFullText("distinctive_token")
	if err != nil || len(textHits) != 0 {
		t.Fatalf("SearchFullText after delete = (%v, %v), want empty", textHits, err)
	}

	embHits, err := s.SearchEmbedding("distinctive_token", 5)
	if err != nil {
		t.Fatalf("SearchEmbedding: %v", err)
	}

	for _, m := range embHits {
		if m.Key == "k" {
			t.Fatalf("deleted key %q still present in embedding search results", m.Key)
		}
	}
}

func TestStore_OperationsAfterClose_ReturnErrClosed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.log")
	s := open(t, path)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Close is idempotent.
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if err := s.Set("k", "v"); !errors.Is(err, kvstore.ErrClosed) {
		t.Fatalf("Set after close = %v, want ErrClosed", err)
	}

	if _, _, err := s.Get("k"); !errors.Is(err, kvstore.ErrClosed) {
		t.Fatalf("Get after close = %v, want ErrClosed", err)
	}

	if _, err := s.Delete("k"); !errors.Is(err, kvstore.ErrClosed) {
		t.Fatalf("Delete after close = %v, want ErrClosed", err)
	}

	if err := s.BulkSet([]kvstore.KV{{Key: "k", Value: "v"}}); !errors.Is(err, kvstore.ErrClosed) {
		t.Fatalf("BulkSet after close = %v, want ErrClosed", err)
	}
}
