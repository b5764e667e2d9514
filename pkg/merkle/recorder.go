package merkle

import (
	"context"
	"fmt"

	"github.com/papercomputeco/docchat/pkg/llm"
)

// Recorder writes completed conversation turns into a Storer.
type Recorder struct {
	storer Storer
}

// NewRecorder creates a Recorder backed by storer.
func NewRecorder(storer Storer) *Recorder {
	return &Recorder{storer: storer}
}

// RecordTurn stores the turn's messages as a chain of nodes, response last,
// and returns the response node's hash.
// Resending a history that was stored before creates no new nodes; a
// different answer to the same history branches from it.
func (r *Recorder) RecordTurn(ctx context.Context, turn *llm.ConversationTurn) (string, error) {
	var model string
	if turn.Request != nil {
		model = turn.Request.Model
	}

	var parent *Node
	for _, msg := range turn.Messages() {
		node := NewNode(MessageBucket(msg, model), parent)
		if _, err := r.storer.Put(ctx, node); err != nil {
			return "", fmt.Errorf("storing %s node: %w", msg.Role, err)
		}
		parent = node
	}

	return parent.Hash, nil
}
