// Package merkle is an implementation of a Merkle DAG over example messages.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// BucketTypeMessage marks a bucket holding one chat message.
const BucketTypeMessage = "message"

// Bucket is the hashable payload of a node: one message of an example, plus
// the example's metadata on the final (answer) node.
type Bucket struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content string `json:"content"`

	// Set on the answer node only, so shared prompts still dedupe.
	Variant     string  `json:"variant,omitempty"`
	Template    string  `json:"template,omitempty"`
	EvidenceIDs []int64 `json:"evidence_ids,omitempty"`
}

// Node represents a single content-addressed node in a Merkle DAG
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous node hash.
	// This will be nil for root nodes.
	ParentHash *string `json:"parent_hash"`

	Bucket Bucket `json:"bucket"`
}

// NewNode creates a new node with the computed hash for the provided bucket
func NewNode(bucket Bucket, parent *Node) *Node {
	n := &Node{
		Bucket: bucket,
	}

	if parent != nil {
		n.ParentHash = &parent.Hash
	}

	n.Hash = n.computeHash()
	return n
}

type hashInput struct {
	Bucket Bucket `json:"bucket"`
	Parent string `json:"parent,omitempty"`
}

func (n *Node) computeHash() string {
	in := hashInput{Bucket: n.Bucket}
	if n.ParentHash != nil {
		in.Parent = *n.ParentHash
	}

	// Struct field order makes the encoding canonical.
	data, err := json.Marshal(in)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Verify reports whether the node's hash matches its bucket and parent.
func (n *Node) Verify() bool {
	return n.Hash == n.computeHash()
}
