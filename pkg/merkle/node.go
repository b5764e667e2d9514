// Package merkle stores chat transcripts as a content-addressed Merkle DAG.
// Every message is a node whose parent is the message before it, so identical
// histories share nodes and different answers to the same history branch.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/papercomputeco/docchat/pkg/llm"
)

// Bucket is the hashed payload of a node: one chat message.
type Bucket struct {
	Type    string   `json:"type"` // always "message"
	Role    llm.Role `json:"role"`
	Content string   `json:"content"`
	Model   string   `json:"model,omitempty"`
}

// MessageBucket builds the bucket for msg as sent to or produced by model.
func MessageBucket(msg llm.Message, model string) Bucket {
	return Bucket{
		Type:    "message",
		Role:    msg.Role,
		Content: msg.Content,
		Model:   model,
	}
}

// Node represents a single content-addressed node in the DAG.
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous message.
	// This will be nil for the first message of a conversation.
	ParentHash *string `json:"parent_hash"`

	Bucket Bucket `json:"bucket"`
}

// NewNode creates a node for bucket under parent and computes its hash.
func NewNode(bucket Bucket, parent *Node) *Node {
	n := &Node{
		Bucket: bucket,
	}

	if parent != nil {
		hash := parent.Hash
		n.ParentHash = &hash
	}

	n.Hash = n.computeHash()
	return n
}

// Verify reports whether the node's hash matches its content. Nodes received
// from other servers are checked before they are stored.
func (n *Node) Verify() bool {
	return n.Hash == n.computeHash()
}

// input is the canonical hash input.
type input struct {
	Bucket Bucket `json:"bucket"`
	Parent string `json:"parent,omitempty"`
}

func (n *Node) computeHash() string {
	i := &input{
		Bucket: n.Bucket,
	}

	if n.ParentHash != nil {
		i.Parent = *n.ParentHash
	}

	// struct field order makes the encoding deterministic
	data, err := json.Marshal(i)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
