// Package address derives vector-store point ids for document nodes.
//
// Ids must be pure functions of (document id, node index): context-window
// expansion re-derives a neighbor's id from the hit's payload alone, with no
// lookup table, so the mapping has to survive process restarts.
package address

import (
	"crypto/sha256"
	"encoding/binary"
	"strconv"
)

// NodeName returns the human-readable node identifier stored in payloads,
// e.g. "paper_node_3".
func NodeName(docID string, index int) string {
	return docID + "_node_" + strconv.Itoa(index)
}

// NodeID returns the vector-store point id for a node: SHA-256 of the node
// name truncated to its first 8 bytes, read big-endian.
//
// Truncating to 64 bits leaves a birthday-bound collision probability of
// about n^2/2^65 across n nodes; at a million nodes that is ~3e-8, which is
// negligible for any corpus this engine targets.
func NodeID(docID string, index int) uint64 {
	sum := sha256.Sum256([]byte(NodeName(docID, index)))
	return binary.BigEndian.Uint64(sum[:8])
}
