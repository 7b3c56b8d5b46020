package cluster

import (
	"fmt"
	"sync"

	"github.com/agentkv/kvstored/internal/kvstore"
)

// Quorum implements the Quorum Cluster (C6): every operation requires
// success on a majority (len(nodes)/2 + 1) of nodes. There is no
// coordinator; any majority suffices, and reads vote over the observed
// values (including "not found" as a votable value) rather than trusting
// one distinguished node. This does not implement version vectors;
// divergence under partial writes is possible and accepted, per the
// design note on quorum read voting.
type Quorum struct {
	mu    sync.Mutex
	nodes []*Node
}

// NewQuorum builds a Quorum over nodes. All nodes start Down; call
// MarkUp for each before use.
func NewQuorum(nodes []*Node) *Quorum {
	return &Quorum{nodes: nodes}
}

func (q *Quorum) size() int {
	return len(q.nodes)/2 + 1
}

func (q *Quorum) upNodesLocked() []*Node {
	up := make([]*Node, 0, len(q.nodes))

	for _, n := range q.nodes {
		if n.IsUp() {
			up = append(up, n)
		}
	}

	return up
}

// Set applies value to Up nodes until a majority acknowledge it, or
// fails with ErrQuorumUnreached after trying every Up node.
func (q *Quorum) Set(key, value string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	alive := q.upNodesLocked()
	need := q.size()

	if len(alive) < need {
		return ErrInsufficientNodes
	}

	success := 0

	for _, n := range alive {
		if err := n.Set(key, value); err == nil {
			success++
			if success >= need {
				return nil
			}
		}
	}

	return fmt.Errorf("cluster: quorum set %d/%d: %w", success, need, ErrQuorumUnreached)
}

// Get queries every Up node (at least a majority) and returns the value
// that the most nodes agree on, breaking ties by which distinct value was
// observed first. "Not found" is itself a votable value.
func (q *Quorum) Get(key string) (string, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	alive := q.upNodesLocked()
	need := q.size()

	if len(alive) < need {
		return "", false, ErrInsufficientNodes
	}

	type vote struct {
		value string
		found bool
	}

	var (
		order     []vote
		counts    = make(map[vote]int)
		responded int
	)

	for _, n := range alive {
		value, found, err := n.Get(key)
		if err != nil {
			continue
		}

		responded++

		v := vote{value: value, found: found}
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}

		counts[v]++
	}

	if responded < need {
		return "", false, fmt.Errorf("cluster: quorum get %d/%d: %w", responded, need, ErrQuorumUnreached)
	}

	best := order[0]
	bestCount := counts[best]

	for _, v := range order[1:] {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}

	return best.value, best.found, nil
}

// Delete removes key from Up nodes until a majority acknowledge it,
// returning true if any contacted node reported the key existed.
func (q *Quorum) Delete(key string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	alive := q.upNodesLocked()
	need := q.size()

	if len(alive) < need {
		return false, ErrInsufficientNodes
	}

	success := 0
	deletedAny := false

	for _, n := range alive {
		existed, err := n.Delete(key)
		if err != nil {
			continue
		}

		if existed {
			deletedAny = true
		}

		success++
		if success >= need {
			return deletedAny, nil
		}
	}

	return false, fmt.Errorf("cluster: quorum delete %d/%d: %w", success, need, ErrQuorumUnreached)
}

// BulkSet applies the group to Up nodes until a majority acknowledge it.
func (q *Quorum) BulkSet(items []kvstore.KV) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	alive := q.upNodesLocked()
	need := q.size()

	if len(alive) < need {
		return ErrInsufficientNodes
	}

	success := 0

	for _, n := range alive {
		if err := n.BulkSet(items); err == nil {
			success++
			if success >= need {
				return nil
			}
		}
	}

	return fmt.Errorf("cluster: quorum bulk_set %d/%d: %w", success, need, ErrQuorumUnreached)
}

// MarkDown stops node id.
func (q *Quorum) MarkDown(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	node, err := q.find(id)
	if err != nil {
		return err
	}

	return node.MarkDown()
}

// MarkUp restarts node id against its existing data file.
func (q *Quorum) MarkUp(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	node, err := q.find(id)
	if err != nil {
		return err
	}

	return node.MarkUp()
}

func (q *Quorum) find(id string) (*Node, error) {
	for _, n := range q.nodes {
		if n.ID == id {
			return n, nil
		}
	}

	return nil, ErrUnknownNode
}
