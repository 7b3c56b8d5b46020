package kvstore

import (
	"fmt"

	"github.com/agentkv/kvstored/internal/walog"
)

// KV is one (key, value) pair of a BulkSet group, in the order the caller
// wants them applied.
type KV struct {
	Key   string
	Value string
}

// BulkSet durably logs the entire group as a single journal record, then
// applies every item in order. Because the whole group is one record, a
// crash can never leave the journal with part of a group: replay either
// sees the whole record or (if the write itself was torn) none of it,
// which is exactly the all-or-nothing guarantee the group needs. An empty
// items slice is a no-op that does not touch the journal.
func (s *Store) BulkSet(items []KV) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateOpen {
		return ErrClosed
	}

	if len(items) == 0 {
		return nil
	}

	walItems := make([]walog.Item, len(items))
	for i, item := range items {
		walItems[i] = walog.Item{Key: item.Key, Value: item.Value}
	}

	if err := s.log.Append(walog.BulkSetRecord(walItems)); err != nil {
		return fmt.Errorf("kvstore: bulk_set: %w", err)
	}

	for _, item := range items {
		s.applySet(item.Key, item.Value)
	}

	return nil
}
