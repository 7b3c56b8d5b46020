package index_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/agentkv/kvstored/internal/index"
)

func TestEmbedding_SearchEmbedding_RanksMoreSimilarDocumentFirst(t *testing.T) {
	t.Parallel()

	e := index.NewEmbedding()
	e.Add("close", "the quick brown fox jumps")
	e.Add("far", "completely unrelated topic entirely")

	got := e.SearchEmbedding("quick brown fox", 2)
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}

	if got[0].Key != "close" {
		t.Fatalf("top match = %q, want %q (got %+v)", got[0].Key, "close", got)
	}
}

func TestEmbedding_SearchEmbedding_RespectsTopK(t *testing.T) {
	t.Parallel()

	e := index.NewEmbedding()
	e.Add("a", "alpha")
	e.Add("b", "beta")
	e.Add("c", "gamma")

	got := e.SearchEmbedding("alpha beta gamma", 2)
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}
}

func TestEmbedding_SearchEmbedding_ZeroNormQuery_YieldsZeroSimilarity(t *testing.T) {
	t.Parallel()

	e := index.NewEmbedding()
	e.Add("a", "some value")

	got := e.SearchEmbedding("!!! ??? ...", 5)
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1", len(got))
	}

	if got[0].Similarity != 0 {
		t.Fatalf("similarity = %v, want 0 for a zero-norm query", got[0].Similarity)
	}
}

func TestEmbedding_SearchEmbedding_ZeroNormDocument_YieldsZeroSimilarity(t *testing.T) {
	t.Parallel()

	e := index.NewEmbedding()
	e.Add("empty", "!!! ??? ...")

	got := e.SearchEmbedding("quick brown fox", 5)
	if len(got) != 1 || got[0].Similarity != 0 {
		t.Fatalf("got %+v, want a single zero-similarity match", got)
	}
}

func TestEmbedding_Remove_DropsKeyFromResults(t *testing.T) {
	t.Parallel()

	e := index.NewEmbedding()
	e.Add("a", "alpha")
	e.Remove("a")

	got := e.SearchEmbedding("alpha", 5)
	if len(got) != 0 {
		t.Fatalf("got %+v, want no matches after Remove", got)
	}
}

func TestTokenize_LowercasesAndSplitsOnNonWordRunes(t *testing.T) {
	t.Parallel()

	got := index.Tokenize("Hello, World! foo_bar 123")
	want := []string{"hello", "world", "foo_bar", "123"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Tokenize mismatch (-want +got):\n%s", diff)
	}
}
