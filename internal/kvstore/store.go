// Package kvstore implements the Store (C3): an in-memory key-value map
// kept coherent with an append-only journal (internal/walog) and a pair of
// secondary indexes (internal/index), serialized behind one exclusive
// lock. The journal record for a mutation is appended and fsynced before
// the mutation becomes visible to any other caller of the Store, so an
// acknowledged write's durability and visibility happen atomically from
// the point of view of every other goroutine holding no lock of its own.
package kvstore

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/agentkv/kvstored/internal/index"
	"github.com/agentkv/kvstored/internal/walog"
	"github.com/agentkv/kvstored/pkg/fs"
)

// Store is a single-node, crash-durable key-value store with a full-text
// and an embedding secondary index. The zero value is not usable; call
// Open. A Store is safe for concurrent use.
type Store struct {
	mu sync.Mutex

	state state
	data  map[string]string
	idx   *index.Pair
	log   *walog.Log
}

// Option configures a Store at construction. Options are forwarded to the
// underlying walog.Log, so WithUnreliable(rate) reaches the journal's
// debug-only dropped-write knob.
type Option func(*options)

type options struct {
	walOpts []walog.Option
}

// WithUnreliable makes the underlying journal silently drop the given
// fraction (0.0-1.0) of appends without returning an error. Debug/test
// only; must never be enabled by a production caller.
func WithUnreliable(dropRate float64) Option {
	return func(o *options) {
		o.walOpts = append(o.walOpts, walog.WithUnreliable(dropRate))
	}
}

// Open creates or opens the journal at path, replays it to rebuild the
// in-memory map and indexes, and returns a Store ready to serve requests.
// If path's directory does not exist it is created. Replay tolerates (by
// skipping) any unparseable trailing line left by a prior crash.
func Open(fsys fs.FS, path string, opts ...Option) (*Store, error) {
	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("kvstore: open: mkdir: %w", err)
	}

	log, err := walog.Open(fsys, path, cfg.walOpts...)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open: %w", err)
	}

	s := &Store{
		state: stateOpening,
		data:  make(map[string]string),
		idx:   index.NewPair(),
		log:   log,
	}

	err = log.Replay(func(rec walog.Record) error {
		s.applyRecord(rec)
		return nil
	})
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("kvstore: open: replay: %w", err)
	}

	s.state = stateOpen

	return s, nil
}

// applyRecord mutates the in-memory map and indexes for one journal
// record. It performs no I/O and never fails. Replay uses it (no lock
// needed, single-threaded construction); the online write paths call the
// same applySet/applyDelete transitions directly after logging.
func (s *Store) applyRecord(rec walog.Record) {
	switch rec.Op {
	case walog.OpSet:
		s.applySet(rec.Key, rec.Value)
	case walog.OpDelete:
		s.applyDelete(rec.Key)
	case walog.OpBulkSet:
		for _, item := range rec.Items {
			s.applySet(item.Key, item.Value)
		}
	}
}

// applySet performs the overwrite sequence required by the spec's
// invariants: remove the old value's index entries (if any) before
// indexing the new value, so stale tokens never outlive their key.
func (s *Store) applySet(key, value string) {
	if old, ok := s.data[key]; ok {
		s.idx.Remove(key, old)
	}

	s.data[key] = value
	s.idx.Add(key, value)
}

func (s *Store) applyDelete(key string) {
	if old, ok := s.data[key]; ok {
		s.idx.Remove(key, old)
		delete(s.data, key)
	}
}

// Set stores value under key, overwriting any existing value. It returns
// only once the corresponding journal record is durable.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateOpen {
		return ErrClosed
	}

	if err := s.log.Append(walog.SetRecord(key, value)); err != nil {
		return fmt.Errorf("kvstore: set: %w", err)
	}

	s.applySet(key, value)

	return nil
}

// Get returns key's current value and whether it was found.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateOpen {
		return "", false, ErrClosed
	}

	value, ok := s.data[key]

	return value, ok, nil
}

// Delete removes key and reports whether it previously existed. The
// deletion's journal record is durable before Delete returns.
func (s *Store) Delete(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateOpen {
		return false, ErrClosed
	}

	_, existed := s.data[key]

	if err := s.log.Append(walog.DeleteRecord(key)); err != nil {
		return false, fmt.Errorf("kvstore: delete: %w", err)
	}

	s.applyDelete(key)

	return existed, nil
}

// SearchFullText returns every key whose value shares at least one token
// with query (union semantics), with no duplicates.
func (s *Store) SearchFullText(query string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateOpen {
		return nil, ErrClosed
	}

	return s.idx.Inverted.SearchFullText(query), nil
}

// SearchEmbedding returns the topK keys whose embedding vector is most
// cosine-similar to query's, descending by similarity.
func (s *Store) SearchEmbedding(query string, topK int) ([]index.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateOpen {
		return nil, ErrClosed
	}

	return s.idx.Embedding.SearchEmbedding(query, topK), nil
}

// Close flushes and releases the journal handle. Close is idempotent: a
// second call is a no-op that returns nil.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateClosed {
		return nil
	}

	s.state = stateClosed

	if err := s.log.Close(); err != nil {
		return fmt.Errorf("kvstore: close: %w", err)
	}

	return nil
}
