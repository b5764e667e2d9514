package server

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/docchat/pkg/llm"
	"github.com/papercomputeco/docchat/pkg/merkle"
)

// HistoryResponse contains the conversation history for a given node.
type HistoryResponse struct {
	// Messages in chronological order (oldest first, up to and including the requested node)
	Messages []HistoryMessage `json:"messages"`
	// HeadHash is the hash of the node that was requested
	HeadHash string `json:"head_hash"`
	// Depth is the number of messages in the history
	Depth int `json:"depth"`
}

// HistoryMessage represents a message in the conversation history.
type HistoryMessage struct {
	Hash       string   `json:"hash"`
	ParentHash *string  `json:"parent_hash,omitempty"`
	Role       llm.Role `json:"role"`
	Content    string   `json:"content"`
	Model      string   `json:"model,omitempty"`
}

// PushResponse reports the outcome of a node upload.
type PushResponse struct {
	New       int `json:"new"`
	Duplicate int `json:"duplicate"`
	Errors    int `json:"errors"`
}

// handleDAGStats returns statistics about the archive.
func (s *Server) handleDAGStats(c *fiber.Ctx) error {
	ctx := c.UserContext()

	nodes, err := s.storer.List(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list nodes")
	}

	roots, err := merkle.Roots(ctx, s.storer)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to get roots")
	}

	leaves, err := s.storer.Leaves(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to get leaves")
	}

	return c.JSON(map[string]any{
		"total_nodes":     len(nodes),
		"root_count":      len(roots),
		"leaf_count":      len(leaves),
		"active_sessions": s.sessions.count(),
	})
}

// handleGetNode returns a single node by its hash.
func (s *Server) handleGetNode(c *fiber.Ctx) error {
	node, err := s.storer.Get(c.UserContext(), c.Params("hash"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "node not found")
	}

	return c.JSON(node)
}

// handleListHistories returns all archived conversations (one per leaf node).
func (s *Server) handleListHistories(c *fiber.Ctx) error {
	ctx := c.UserContext()

	leaves, err := s.storer.Leaves(ctx)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to get leaves")
	}

	histories := make([]HistoryResponse, 0, len(leaves))
	for _, leaf := range leaves {
		history, err := s.buildHistory(ctx, leaf.Hash)
		if err != nil {
			s.logger.Warn("failed to build history for leaf", zap.String("hash", leaf.Hash), zap.Error(err))
			continue
		}
		histories = append(histories, *history)
	}

	return c.JSON(map[string]any{
		"count":     len(histories),
		"histories": histories,
	})
}

// handleGetHistory returns the conversation leading up to a given node, oldest first.
func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	history, err := s.buildHistory(c.UserContext(), c.Params("hash"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "node not found")
	}

	return c.JSON(history)
}

// handlePostNodes ingests nodes pushed from another archive. Nodes whose hash
// does not match their content are counted as errors and skipped.
func (s *Server) handlePostNodes(c *fiber.Ctx) error {
	var nodes []*merkle.Node
	if err := json.Unmarshal(c.Body(), &nodes); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	ctx := c.UserContext()
	var resp PushResponse
	for _, node := range nodes {
		if node == nil || !node.Verify() {
			resp.Errors++
			continue
		}

		isNew, err := s.storer.Put(ctx, node)
		switch {
		case err != nil:
			s.logger.Error("failed to store pushed node", zap.String("hash", node.Hash), zap.Error(err))
			resp.Errors++
		case isNew:
			resp.New++
		default:
			resp.Duplicate++
		}
	}

	s.logger.Info("nodes pushed",
		zap.Int("new", resp.New),
		zap.Int("duplicate", resp.Duplicate),
		zap.Int("errors", resp.Errors),
	)
	return c.JSON(resp)
}

func (s *Server) buildHistory(ctx context.Context, hash string) (*HistoryResponse, error) {
	path, err := merkle.Descendants(ctx, s.storer, hash)
	if err != nil {
		return nil, err
	}

	messages := make([]HistoryMessage, len(path))
	for i, node := range path {
		messages[i] = HistoryMessage{
			Hash:       node.Hash,
			ParentHash: node.ParentHash,
			Role:       node.Bucket.Role,
			Content:    node.Bucket.Content,
			Model:      node.Bucket.Model,
		}
	}

	return &HistoryResponse{
		Messages: messages,
		HeadHash: hash,
		Depth:    len(messages),
	}, nil
}
