package merkle

import (
	"context"
	"errors"
)

// Storer persists and traverses nodes. Implementations deduplicate by hash.
type Storer interface {
	// Put stores a node and reports whether it was new.
	// Storing a node that already exists (by hash) is a no-op.
	Put(ctx context.Context, node *Node) (bool, error)

	// Get retrieves a node by its hash. Returns ErrNotFound if the node doesn't exist.
	Get(ctx context.Context, hash string) (*Node, error)

	// Has checks if a node exists by its hash.
	Has(ctx context.Context, hash string) (bool, error)

	// GetByParent retrieves all nodes that have the given parent hash.
	// Pass nil to get root nodes.
	GetByParent(ctx context.Context, parentHash *string) ([]*Node, error)

	// List returns all nodes in insertion order.
	List(ctx context.Context) ([]*Node, error)

	// Leaves returns all nodes without children (the last message of each conversation).
	Leaves(ctx context.Context) ([]*Node, error)

	// Close releases any resources.
	Close() error
}

// ErrNotFound is returned when a node doesn't exist in the store.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	if e.Hash == "" {
		return "node not found"
	}

	return "node not found: " + e.Hash
}

var errNilNode = errors.New("cannot store nil node")

// Roots returns all nodes without a parent.
func Roots(ctx context.Context, s Storer) ([]*Node, error) {
	return s.GetByParent(ctx, nil)
}

// Ancestry returns the path from a node back to its root (node first, root last).
func Ancestry(ctx context.Context, s Storer, hash string) ([]*Node, error) {
	var path []*Node
	current := hash
	for {
		node, err := s.Get(ctx, current)
		if err != nil {
			return nil, err
		}
		path = append(path, node)

		if node.ParentHash == nil {
			return path, nil
		}
		current = *node.ParentHash
	}
}

// Descendants returns the path from root to node (root first, node last).
func Descendants(ctx context.Context, s Storer, hash string) ([]*Node, error) {
	path, err := Ancestry(ctx, s, hash)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Depth returns the depth of a node (0 for roots).
func Depth(ctx context.Context, s Storer, hash string) (int, error) {
	path, err := Ancestry(ctx, s, hash)
	if err != nil {
		return 0, err
	}
	return len(path) - 1, nil
}
