package dispatch

import "github.com/agentkv/kvstored/internal/kvstore"

// Backend is the operation surface the Dispatcher drives. A single-node
// kvstore.Store satisfies it directly; the Coordinator and Quorum cluster
// variants satisfy it too, so the same Dispatcher serves either topology
// without caring which one is behind it.
type Backend interface {
	Set(key, value string) error
	Get(key string) (string, bool, error)
	Delete(key string) (bool, error)
	BulkSet(items []kvstore.KV) error
}

var _ Backend = (*kvstore.Store)(nil)
