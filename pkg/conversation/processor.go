package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/docchat/pkg/attachment"
	"github.com/papercomputeco/docchat/pkg/llm"
)

// Completer starts a streaming completion for a request.
type Completer interface {
	StreamCompletion(ctx context.Context, req *llm.ChatRequest) (llm.FragmentStream, error)
}

// Recorder stores completed turns. It is optional; failures never abort a turn.
type Recorder interface {
	RecordTurn(ctx context.Context, turn *llm.ConversationTurn) (string, error)
}

// Config holds the sampling settings applied to every completion.
type Config struct {
	// Temperature is sent with every request. Zero keeps answers deterministic.
	Temperature float64

	// MaxTokens is the output length ceiling (llm.DefaultMaxTokens when zero).
	MaxTokens int
}

// Processor runs conversation turns against a Completer.
// It holds no per-session state: callers own one Log per session and must not
// run two turns on the same Log concurrently.
type Processor struct {
	config    Config
	completer Completer
	extractor attachment.Extractor
	recorder  Recorder
	logger    *zap.Logger
}

// Option configures optional Processor collaborators.
type Option func(*Processor)

// WithRecorder archives every successful turn.
func WithRecorder(r Recorder) Option {
	return func(p *Processor) {
		p.recorder = r
	}
}

// WithExtractor overrides the PDF extractor.
func WithExtractor(e attachment.Extractor) Option {
	return func(p *Processor) {
		p.extractor = e
	}
}

// NewProcessor creates a Processor.
func NewProcessor(config Config, completer Completer, logger *zap.Logger, opts ...Option) *Processor {
	if config.MaxTokens <= 0 {
		config.MaxTokens = llm.DefaultMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Processor{
		config:    config,
		completer: completer,
		extractor: attachment.NewPDFExtractor(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AppendUserTurn appends a user message built from text and an optional
// attachment. Attachment failures are written into the message and never fail
// the call, so the log always grows by exactly one.
func (p *Processor) AppendUserTurn(ctx context.Context, log Log, text string, att *attachment.Attachment) Log {
	content := text
	if att != nil {
		p.logger.Debug("processing attachment",
			zap.String("name", att.Name),
			zap.Int("size", len(att.Data)),
		)

		var err error
		content, err = attachment.Annotate(ctx, p.extractor, text, att)

		var attErr *attachment.AttachmentError
		switch {
		case err == nil:
			p.logger.Info("attachment read", zap.String("name", att.Name))
		case errors.Is(err, attachment.ErrNotPDF):
			p.logger.Warn("attachment ignored", zap.String("name", att.Name))
		case errors.As(err, &attErr):
			p.logger.Error("attachment failed", zap.String("name", att.Name), zap.Error(attErr.Err))
		}
	}

	return log.with(llm.UserMessage(content))
}

// RequestCompletion starts a streaming completion over the whole log.
// The returned stream is lazy and single-pass; canceling ctx stops it.
func (p *Processor) RequestCompletion(ctx context.Context, log Log, model string) (llm.FragmentStream, error) {
	req := p.newRequest(log, model)

	p.logger.Debug("sending completion request",
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
		zap.Float64("temperature", req.Temperature),
		zap.Int("max_tokens", req.MaxTokens),
	)

	stream, err := p.completer.StreamCompletion(ctx, req)
	if err != nil {
		return nil, wrapCompletion(model, err)
	}
	return stream, nil
}

func (p *Processor) newRequest(log Log, model string) *llm.ChatRequest {
	return llm.NewChatRequest(model, log.Messages(), p.config.Temperature, p.config.MaxTokens)
}

// TurnInput is one submission from a user interface.
type TurnInput struct {
	Text       string
	Attachment *attachment.Attachment
	Model      string
}

// TurnResult is what a user interface renders after a turn.
type TurnResult struct {
	// Log is the updated log. After a failed completion it holds the user
	// message but no assistant message.
	Log Log

	// Pairs is the display transcript; empty when the turn failed.
	Pairs []llm.DisplayPair

	// Input is the new content of the input box: empty on success, the
	// error text on failure.
	Input string

	// Err is the *llm.CompletionError that aborted the turn, if any.
	Err error
}

// RunTurn performs a whole turn: append the user message, stream the
// completion (calling onFragment for each fragment), append the answer and
// project the transcript. Completion failures abort the turn; nothing is retried.
func (p *Processor) RunTurn(ctx context.Context, log Log, in TurnInput, onFragment func(string) error) TurnResult {
	startTime := time.Now()

	p.logger.Info("new message",
		zap.String("model", in.Model),
		zap.String("content_preview", Truncate(in.Text, 100)),
		zap.Bool("attachment", in.Attachment != nil),
	)

	log = p.AppendUserTurn(ctx, log, in.Text, in.Attachment)

	text, err := p.complete(ctx, log, in.Model, onFragment)
	if err != nil {
		p.logger.Error("completion failed",
			zap.String("model", in.Model),
			zap.Error(err),
			zap.Duration("duration", time.Since(startTime)),
		)
		return TurnResult{
			Log:   log,
			Pairs: []llm.DisplayPair{},
			Input: "Error: " + err.Error(),
			Err:   err,
		}
	}

	request := p.newRequest(log, in.Model)
	log = AppendAssistantTurn(log, text)

	p.logger.Debug("completion finished",
		zap.String("content_preview", Truncate(text, 200)),
		zap.Duration("duration", time.Since(startTime)),
	)

	p.record(ctx, request, text)

	return TurnResult{
		Log:   log,
		Pairs: DisplayPairs(log),
	}
}

func (p *Processor) complete(ctx context.Context, log Log, model string, onFragment func(string) error) (string, error) {
	stream, err := p.RequestCompletion(ctx, log, model)
	if err != nil {
		return "", err
	}

	text, err := llm.Accumulate(stream, onFragment)
	if err != nil {
		return "", wrapCompletion(model, err)
	}
	return text, nil
}

func (p *Processor) record(ctx context.Context, req *llm.ChatRequest, answer string) {
	if p.recorder == nil {
		return
	}

	// the caller may already be gone once the answer is complete
	ctx = context.WithoutCancel(ctx)

	headHash, err := p.recorder.RecordTurn(ctx, &llm.ConversationTurn{
		Request:  req,
		Response: llm.AssistantMessage(answer),
	})
	if err != nil {
		p.logger.Error("failed to archive turn", zap.Error(err))
		return
	}
	p.logger.Info("turn archived", zap.String("head_hash", Truncate(headHash, 16)))
}

func wrapCompletion(model string, err error) error {
	var ce *llm.CompletionError
	if errors.As(err, &ce) {
		return err
	}
	return &llm.CompletionError{Model: model, Err: err}
}

// Truncate shortens s for log previews.
func Truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
