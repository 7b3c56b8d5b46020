// Package cluster implements the Coordinator Cluster (C5) and Quorum
// Cluster (C6): both wrap N nodes, each owning its own kvstore.Store and
// data file, under one cluster-wide lock that is held for the entire
// duration of a replication fan-out (see the design-note decision on
// cluster lock granularity). Membership changes close and reopen a node's
// underlying Store against its existing data file, so C3's recovery
// replay is what restores state on a revived node - there is no separate
// replication-catch-up protocol.
package cluster

import (
	"fmt"

	"github.com/agentkv/kvstored/internal/index"
	"github.com/agentkv/kvstored/internal/kvstore"
	"github.com/agentkv/kvstored/pkg/fs"
)

// Status is a node's membership state within a cluster.
type Status uint8

const (
	StatusUp Status = iota
	StatusDown
)

// Node owns one Store-backed replica: its data file and current
// up/down status. All methods are called with the owning cluster's lock
// already held, so Node itself does no locking of its own.
type Node struct {
	ID   string
	fsys fs.FS
	path string
	opts []kvstore.Option

	status Status
	store  *kvstore.Store
}

// NewNode constructs a node in the Down state; call MarkUp to open its
// Store before it can serve operations.
func NewNode(id string, fsys fs.FS, path string, opts ...kvstore.Option) *Node {
	return &Node{ID: id, fsys: fsys, path: path, opts: opts, status: StatusDown}
}

// IsUp reports whether the node is currently Up.
func (n *Node) IsUp() bool {
	return n.status == StatusUp
}

// MarkUp opens (or reopens) the node's Store against its data file,
// replaying the journal so a previously down node recovers to the state
// its last durable write left behind. Idempotent: marking an already-Up
// node Up again is a no-op.
func (n *Node) MarkUp() error {
	if n.status == StatusUp {
		return nil
	}

	store, err := kvstore.Open(n.fsys, n.path, n.opts...)
	if err != nil {
		return fmt.Errorf("cluster: mark_up %s: %w", n.ID, err)
	}

	n.store = store
	n.status = StatusUp

	return nil
}

// MarkDown closes the node's Store, dropping it from future operations
// until MarkUp is called again. This models a fast, crash-like
// termination: every durable write the node ever acknowledged is already
// fsynced to its data file, so closing the handle loses nothing an
// acknowledged client was told survived. Idempotent.
func (n *Node) MarkDown() error {
	if n.status == StatusDown {
		return nil
	}

	err := n.store.Close()
	n.store = nil
	n.status = StatusDown

	if err != nil {
		return fmt.Errorf("cluster: mark_down %s: %w", n.ID, err)
	}

	return nil
}

func (n *Node) Set(key, value string) error {
	return n.store.Set(key, value)
}

func (n *Node) Get(key string) (string, bool, error) {
	return n.store.Get(key)
}

func (n *Node) Delete(key string) (bool, error) {
	return n.store.Delete(key)
}

func (n *Node) BulkSet(items []kvstore.KV) error {
	return n.store.BulkSet(items)
}

func (n *Node) SearchFullText(query string) ([]string, error) {
	return n.store.SearchFullText(query)
}

func (n *Node) SearchEmbedding(query string, topK int) ([]index.Match, error) {
	return n.store.SearchEmbedding(query, topK)
}
