package cluster

import "errors"

// ErrNoAvailableNode is returned by the Coordinator Cluster when no node
// in the fixed ordering is Up.
var ErrNoAvailableNode = errors.New("cluster: no available node")

// ErrInsufficientNodes is returned by the Quorum Cluster before any node
// is contacted, when fewer than a majority of nodes are Up.
var ErrInsufficientNodes = errors.New("cluster: insufficient nodes for quorum")

// ErrQuorumUnreached is returned by the Quorum Cluster after contacting
// Up nodes, when fewer than a majority responded successfully.
var ErrQuorumUnreached = errors.New("cluster: quorum not reached")

// ErrUnknownNode is returned by MarkUp/MarkDown for an id not in the
// cluster's fixed node set.
var ErrUnknownNode = errors.New("cluster: unknown node id")
