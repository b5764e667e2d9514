package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/docchat/pkg/attachment"
	"github.com/papercomputeco/docchat/pkg/conversation"
	"github.com/papercomputeco/docchat/pkg/llm"
)

var errTurnInFlight = fiber.NewError(fiber.StatusConflict, "a message is still being answered")

// TurnResponse is the outcome of a chat turn: the new input box content and
// the transcript to render.
type TurnResponse struct {
	Done  bool              `json:"done,omitempty"`
	Input string            `json:"input"`
	Pairs []llm.DisplayPair `json:"pairs"`
	Error string            `json:"error,omitempty"`
}

// FragmentEvent is one streamed piece of the answer.
type FragmentEvent struct {
	Fragment string `json:"fragment"`
}

func (s *Server) handleModels(c *fiber.Ctx) error {
	models := s.catalog.List(c.UserContext())
	return c.JSON(map[string]any{
		"models":  models,
		"default": models[0],
	})
}

func (s *Server) handleTranscript(c *fiber.Ctx) error {
	sess := s.session(c)
	return c.JSON(map[string]any{
		"pairs": conversation.DisplayPairs(sess.snapshot()),
	})
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	sess := s.session(c)
	if !sess.turn.TryLock() {
		return errTurnInFlight
	}
	defer sess.turn.Unlock()

	s.logger.Info("conversation cleared")
	sess.setLog(conversation.Reset())

	return c.JSON(TurnResponse{Pairs: []llm.DisplayPair{}})
}

// handleChat runs a whole turn and answers once the completion is done.
func (s *Server) handleChat(c *fiber.Ctx) error {
	sess, in, err := s.beginTurn(c)
	if err != nil {
		return err
	}
	defer sess.turn.Unlock()

	res := s.processor.RunTurn(c.UserContext(), sess.snapshot(), in, nil)
	sess.setLog(res.Log)

	resp := TurnResponse{Done: res.Err == nil, Input: res.Input, Pairs: res.Pairs}
	if res.Err != nil {
		resp.Error = res.Err.Error()
		return c.Status(fiber.StatusBadGateway).JSON(resp)
	}
	return c.JSON(resp)
}

// handleChatStream runs a turn and streams NDJSON: one FragmentEvent per
// fragment, then a final TurnResponse. A client that disconnects mid-answer
// cancels the upstream stream and the turn is treated as failed.
func (s *Server) handleChatStream(c *fiber.Ctx) error {
	sess, in, err := s.beginTurn(c)
	if err != nil {
		return err
	}
	log := sess.snapshot()

	// Set up streaming response headers
	c.Set("Content-Type", "application/x-ndjson")
	c.Set("Transfer-Encoding", "chunked")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sess.turn.Unlock()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		enc := json.NewEncoder(w)
		res := s.processor.RunTurn(ctx, log, in, func(fragment string) error {
			if err := enc.Encode(FragmentEvent{Fragment: fragment}); err != nil {
				return err
			}
			return w.Flush()
		})
		sess.setLog(res.Log)

		final := TurnResponse{Done: res.Err == nil, Input: res.Input, Pairs: res.Pairs}
		if res.Err != nil {
			final.Error = res.Err.Error()
		}
		if err := enc.Encode(final); err != nil {
			s.logger.Warn("failed to write final event", zap.Error(err))
			return
		}
		if err := w.Flush(); err != nil {
			s.logger.Warn("failed to flush final event", zap.Error(err))
		}
	}))

	return nil
}

// beginTurn resolves the session, takes its turn lock and parses the
// submission. On success the caller owns the lock and must release it.
func (s *Server) beginTurn(c *fiber.Ctx) (*session, conversation.TurnInput, error) {
	if s.limiter != nil && !s.limiter.Allow() {
		return nil, conversation.TurnInput{}, fiber.NewError(fiber.StatusTooManyRequests, "too many requests, try again shortly")
	}

	sess := s.session(c)
	if !sess.turn.TryLock() {
		return nil, conversation.TurnInput{}, errTurnInFlight
	}

	in, err := s.parseTurn(c)
	if err != nil {
		sess.turn.Unlock()
		s.logger.Error("failed to read submission", zap.Error(err))
		return nil, conversation.TurnInput{}, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	return sess, in, nil
}

func (s *Server) parseTurn(c *fiber.Ctx) (conversation.TurnInput, error) {
	in := conversation.TurnInput{
		Text:  c.FormValue("message"),
		Model: c.FormValue("model"),
	}
	if in.Model == "" {
		in.Model = s.catalog.Default(c.UserContext())
	}

	header, err := c.FormFile("file")
	if err != nil {
		// no attachment
		return in, nil
	}

	f, err := header.Open()
	if err != nil {
		return in, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return in, fmt.Errorf("read upload: %w", err)
	}

	in.Attachment = &attachment.Attachment{Name: header.Filename, Data: data}
	return in, nil
}
