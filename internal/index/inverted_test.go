package index_test

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/agentkv/kvstored/internal/index"
)

func TestInverted_SearchFullText_UnionSemantics(t *testing.T) {
	t.Parallel()

	idx := index.NewInverted()
	idx.Add("a", "the quick brown fox")
	idx.Add("b", "the lazy dog")
	idx.Add("c", "brown bear")

	got := idx.SearchFullText("brown dog")
	sort.Strings(got)

	want := []string{"a", "b", "c"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("SearchFullText mismatch (-want +got):\n%s", diff)
	}
}

func TestInverted_SearchFullText_NoDuplicatesWhenMultipleTokensMatchSameKey(t *testing.T) {
	t.Parallel()

	idx := index.NewInverted()
	idx.Add("a", "brown brown fox")

	got := idx.SearchFullText("brown fox")
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("got %v, want [a]", got)
	}
}

func TestInverted_Remove_DropsEmptyBucketsAndStopsMatching(t *testing.T) {
	t.Parallel()

	idx := index.NewInverted()
	idx.Add("a", "unique_token")
	idx.Remove("a", "unique_token")

	got := idx.SearchFullText("unique_token")
	if len(got) != 0 {
		t.Fatalf("got %v, want none (bucket should be fully removed)", got)
	}
}

func TestInverted_Overwrite_RemovesStaleTokensBeforeAddingNew(t *testing.T) {
	t.Parallel()

	idx := index.NewInverted()
	idx.Add("a", "old value")

	idx.Remove("a", "old value")
	idx.Add("a", "new value")

	if got := idx.SearchFullText("old"); len(got) != 0 {
		t.Fatalf("stale token still matches: %v", got)
	}

	if got := idx.SearchFullText("new"); len(got) != 1 || got[0] != "a" {
		t.Fatalf("got %v, want [a]", got)
	}
}
