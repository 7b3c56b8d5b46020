package kvstore_test

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/agentkv/kvstored/internal/kvstore"
)

// Property 7: two goroutines racing bulk_set over the same key set with
// disjoint value tags must never leave a key tagged with a value from
// one group and a sibling key tagged with the other - every key in a
// round lands on the same one of the two tags.
func TestStore_ConcurrentBulkSet_NeverInterleaves(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.log")
	s := open(t, path)
	defer s.Close()

	const (
		rounds = 50
		keys   = 8
	)

	keyNames := make([]string, keys)
	for i := range keyNames {
		keyNames[i] = fmt.Sprintf("key-%d", i)
	}

	for round := 0; round < rounds; round++ {
		var wg sync.WaitGroup

		wg.Add(2)

		for _, tag := range []string{"tag-A", "tag-B"} {
			tag := tag

			go func() {
				defer wg.Done()

				items := make([]kvstore.KV, len(keyNames))
				for i, k := range keyNames {
					items[i] = kvstore.KV{Key: k, Value: tag}
				}

				if err := s.BulkSet(items); err != nil {
					t.Errorf("BulkSet: %v", err)
				}
			}()
		}

		wg.Wait()

		first, ok, err := s.Get(keyNames[0])
		if err != nil || !ok {
			t.Fatalf("Get(%q) = (%q, %v, %v)", keyNames[0], first, ok, err)
		}

		for _, k := range keyNames[1:] {
			got, ok, err := s.Get(k)
			if err != nil || !ok {
				t.Fatalf("Get(%q) = (%q, %v, %v)", k, got, ok, err)
			}

			if got != first {
				t.Fatalf("round %d: key %q tagged %q, key %q tagged %q: bulk_set interleaved", round, keyNames[0], first, k, got)
			}
		}
	}
}

// Property 4: a successful Set's record must be replayable even if the
// process is imagined to die immediately after the ack - nothing beyond
// the acknowledged write is required to be durable, but the acknowledged
// write itself always is.
func TestStore_AcknowledgedSet_SurvivesCloseAndReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.log")

	s1 := open(t, path)

	const n = 200

	for i := 0; i < n; i++ {
		key := fmt.Sprintf("k%d", i)
		if err := s1.Set(key, key); err != nil {
			t.Fatalf("Set(%d): %v", i, err)
		}
	}

	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2 := open(t, path)
	defer s2.Close()

	for i := 0; i < n; i++ {
		key := fmt.Sprintf("k%d", i)

		got, ok, err := s2.Get(key)
		if err != nil || !ok || got != key {
			t.Fatalf("Get(%q) = (%q, %v, %v), want (%q, true, nil)", key, got, ok, err, key)
		}
	}
}
