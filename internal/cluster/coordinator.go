package cluster

import (
	"fmt"
	"sync"

	"github.com/agentkv/kvstored/internal/kvstore"
	"github.com/agentkv/kvstored/internal/log"
)

// Coordinator implements the Coordinator Cluster (C5): writes apply on
// the first Up node in a fixed ordering, then fan out best-effort to the
// remaining Up nodes (peer failures are swallowed by design - see the
// design-note on best-effort replication); reads are served from the
// coordinator only.
type Coordinator struct {
	mu    sync.Mutex
	nodes []*Node
}

// NewCoordinator builds a Coordinator over nodes in the given fixed
// order; that order is the election priority used to pick the
// coordinator for every operation. All nodes start Down; call MarkUp for
// each before use.
func NewCoordinator(nodes []*Node) *Coordinator {
	return &Coordinator{nodes: nodes}
}

// CoordinatorID returns the id of the node currently acting as
// coordinator: the first Up node in the fixed ordering.
func (c *Coordinator) CoordinatorID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, err := c.coordinatorLocked()
	if err != nil {
		return "", err
	}

	return node.ID, nil
}

func (c *Coordinator) coordinatorLocked() (*Node, error) {
	for _, n := range c.nodes {
		if n.IsUp() {
			return n, nil
		}
	}

	return nil, ErrNoAvailableNode
}

// Set applies the write to the coordinator, then replicates it
// best-effort to the remaining Up nodes.
func (c *Coordinator) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	coord, err := c.coordinatorLocked()
	if err != nil {
		return err
	}

	if err := coord.Set(key, value); err != nil {
		return fmt.Errorf("cluster: coordinator set: %w", err)
	}

	c.replicate(coord, func(n *Node) error { return n.Set(key, value) })

	return nil
}

// Get reads from the current coordinator only.
func (c *Coordinator) Get(key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	coord, err := c.coordinatorLocked()
	if err != nil {
		return "", false, err
	}

	return coord.Get(key)
}

// Delete applies the deletion to the coordinator, then replicates it
// best-effort to the remaining Up nodes. The returned bool reflects
// whether the key existed on the coordinator.
func (c *Coordinator) Delete(key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	coord, err := c.coordinatorLocked()
	if err != nil {
		return false, err
	}

	existed, err := coord.Delete(key)
	if err != nil {
		return false, fmt.Errorf("cluster: coordinator delete: %w", err)
	}

	c.replicate(coord, func(n *Node) error { _, err := n.Delete(key); return err })

	return existed, nil
}

// BulkSet applies the group to the coordinator, then replicates it
// best-effort to the remaining Up nodes.
func (c *Coordinator) BulkSet(items []kvstore.KV) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	coord, err := c.coordinatorLocked()
	if err != nil {
		return err
	}

	if err := coord.BulkSet(items); err != nil {
		return fmt.Errorf("cluster: coordinator bulk_set: %w", err)
	}

	c.replicate(coord, func(n *Node) error { return n.BulkSet(items) })

	return nil
}

// replicate applies fn to every Up node other than coord, logging and
// then swallowing per-peer errors. A peer that fails keeps diverging from
// the coordinator: mark_down/mark_up replays only that peer's own
// journal, which never received the missed write - this is the explicit,
// documented tradeoff of the Coordinator variant's best-effort fan-out.
func (c *Coordinator) replicate(coord *Node, fn func(*Node) error) {
	for _, n := range c.nodes {
		if n == coord || !n.IsUp() {
			continue
		}

		if err := fn(n); err != nil {
			log.Default("cluster:").Error("replicate to "+n.ID, err)
		}
	}
}

// MarkDown stops node id, removing it from future coordinator
// elections and replication fan-out until MarkUp revives it.
func (c *Coordinator) MarkDown(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, err := c.find(id)
	if err != nil {
		return err
	}

	return node.MarkDown()
}

// MarkUp restarts node id against its existing data file; recovery
// replay (C3) brings it back in sync with whatever it last durably wrote.
func (c *Coordinator) MarkUp(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, err := c.find(id)
	if err != nil {
		return err
	}

	return node.MarkUp()
}

func (c *Coordinator) find(id string) (*Node, error) {
	for _, n := range c.nodes {
		if n.ID == id {
			return n, nil
		}
	}

	return nil, ErrUnknownNode
}
