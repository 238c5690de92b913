package merkle

import (
	"context"
	"fmt"
)

// PutChain stores buckets as a parent-linked chain and returns the last
// node along with how many nodes were new.
func PutChain(ctx context.Context, s Storer, buckets []Bucket) (*Node, int, error) {
	var (
		parent *Node
		added  int
	)
	for _, b := range buckets {
		node := NewNode(b, parent)
		isNew, err := s.Put(ctx, node)
		if err != nil {
			return nil, added, fmt.Errorf("could not store node: %w", err)
		}
		if isNew {
			added++
		}
		parent = node
	}
	return parent, added, nil
}

// Stats summarizes the shape of a DAG.
type Stats struct {
	TotalNodes int `json:"total_nodes"`
	RootCount  int `json:"root_count"`
	LeafCount  int `json:"leaf_count"`
}

// Summarize counts the nodes, roots and leaves of s.
func Summarize(ctx context.Context, s Storer) (Stats, error) {
	nodes, err := s.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	roots, err := s.Roots(ctx)
	if err != nil {
		return Stats{}, err
	}
	leaves, err := s.Leaves(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalNodes: len(nodes), RootCount: len(roots), LeafCount: len(leaves)}, nil
}
