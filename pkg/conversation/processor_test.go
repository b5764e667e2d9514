package conversation_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/docchat/pkg/attachment"
	"github.com/papercomputeco/docchat/pkg/conversation"
	"github.com/papercomputeco/docchat/pkg/llm"
)

// fakeCompleter replays fragments and captures the last request.
type fakeCompleter struct {
	fragments []string
	streamErr error
	startErr  error
	requests  []*llm.ChatRequest
}

func (f *fakeCompleter) StreamCompletion(_ context.Context, req *llm.ChatRequest) (llm.FragmentStream, error) {
	f.requests = append(f.requests, req)
	if f.startErr != nil {
		return nil, f.startErr
	}
	return llm.NewSliceStream(f.fragments, f.streamErr), nil
}

type fakeRecorder struct {
	turns []*llm.ConversationTurn
	err   error
}

func (r *fakeRecorder) RecordTurn(_ context.Context, turn *llm.ConversationTurn) (string, error) {
	r.turns = append(r.turns, turn)
	return "abc123", r.err
}

type pagesExtractor struct {
	pages []string
	calls int
}

func (e *pagesExtractor) ExtractPages(context.Context, []byte) ([]string, error) {
	e.calls++
	return e.pages, nil
}

var _ = Describe("Processor", func() {
	var (
		ctx       context.Context
		completer *fakeCompleter
		recorder  *fakeRecorder
		extractor *pagesExtractor
		processor *conversation.Processor
	)

	BeforeEach(func() {
		ctx = context.Background()
		completer = &fakeCompleter{fragments: []string{"Hi", " there"}}
		recorder = &fakeRecorder{}
		extractor = &pagesExtractor{pages: []string{"alpha ", "beta"}}
		processor = conversation.NewProcessor(conversation.Config{}, completer, zap.NewNop(),
			conversation.WithRecorder(recorder),
			conversation.WithExtractor(extractor),
		)
	})

	Describe("AppendUserTurn", func() {
		It("grows the log by exactly one", func() {
			log := conversation.Reset()
			for _, att := range []*attachment.Attachment{
				nil,
				{Name: "a.pdf"},
				{Name: "a.png"},
			} {
				before := len(log)
				log = processor.AppendUserTurn(ctx, log, "text", att)
				Expect(log).To(HaveLen(before + 1))
				Expect(log[before].Role).To(Equal(llm.RoleUser))
			}
		})

		It("appends the PDF text after the label", func() {
			log := processor.AppendUserTurn(ctx, nil, "Summarize", &attachment.Attachment{Name: "doc.pdf"})
			Expect(log[0].Content).To(Equal("Summarize\n\nPDF contents:\nalpha beta"))
		})

		It("ignores non-PDF attachments without extracting", func() {
			log := processor.AppendUserTurn(ctx, nil, "Hello", &attachment.Attachment{Name: "photo.jpg"})
			Expect(log[0].Content).To(HavePrefix("Hello\n\nFile photo.jpg was attached but not processed"))
			Expect(extractor.calls).To(BeZero())
		})
	})

	Describe("RequestCompletion", func() {
		It("sends the whole log with deterministic sampling", func() {
			log := conversation.Log{
				llm.UserMessage("Hello"),
				llm.AssistantMessage("Hi"),
				llm.UserMessage("More"),
			}

			stream, err := processor.RequestCompletion(ctx, log, "gpt-4o")
			Expect(err).NotTo(HaveOccurred())
			defer stream.Close()

			Expect(completer.requests).To(HaveLen(1))
			req := completer.requests[0]
			Expect(req.Model).To(Equal("gpt-4o"))
			Expect(req.Messages).To(Equal(log.Messages()))
			Expect(req.Stream).To(BeTrue())
			Expect(req.Temperature).To(BeZero())
			Expect(req.MaxTokens).To(Equal(4096))
		})

		It("wraps start failures in a CompletionError", func() {
			completer.startErr = errors.New("401 unauthorized")

			_, err := processor.RequestCompletion(ctx, conversation.Log{llm.UserMessage("x")}, "m")
			var ce *llm.CompletionError
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(ce.Model).To(Equal("m"))
		})
	})

	Describe("RunTurn", func() {
		It("completes the happy path scenario", func() {
			var fragments []string
			result := processor.RunTurn(ctx, conversation.Reset(), conversation.TurnInput{
				Text:  "Hello",
				Model: "gpt-3.5-turbo",
			}, func(f string) error {
				fragments = append(fragments, f)
				return nil
			})

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(fragments).To(Equal([]string{"Hi", " there"}))
			Expect(result.Log).To(Equal(conversation.Log{
				llm.UserMessage("Hello"),
				llm.AssistantMessage("Hi there"),
			}))
			Expect(result.Pairs).To(Equal([]llm.DisplayPair{{User: "Hello", Assistant: "Hi there"}}))
			Expect(result.Input).To(BeEmpty())
		})

		It("leaves only the user message when the stream fails", func() {
			completer.fragments = []string{"Hi"}
			completer.streamErr = errors.New("unexpected EOF")

			result := processor.RunTurn(ctx, conversation.Reset(), conversation.TurnInput{Text: "Hello", Model: "m"}, nil)

			Expect(result.Log).To(Equal(conversation.Log{llm.UserMessage("Hello")}))
			Expect(result.Pairs).To(BeEmpty())
			Expect(result.Input).To(HavePrefix("Error: "))
			Expect(result.Input).To(ContainSubstring("unexpected EOF"))

			var ce *llm.CompletionError
			Expect(errors.As(result.Err, &ce)).To(BeTrue())
			Expect(recorder.turns).To(BeEmpty())
		})

		It("aborts when the consumer cancels mid-stream", func() {
			result := processor.RunTurn(ctx, conversation.Reset(), conversation.TurnInput{Text: "Hello", Model: "m"},
				func(string) error { return context.Canceled })

			Expect(result.Err).To(MatchError(llm.ErrStreamCanceled))
			Expect(result.Log).To(HaveLen(1))
		})

		It("archives the request and answer", func() {
			result := processor.RunTurn(ctx, conversation.Reset(), conversation.TurnInput{Text: "Hello", Model: "m"}, nil)
			Expect(result.Err).NotTo(HaveOccurred())

			Expect(recorder.turns).To(HaveLen(1))
			turn := recorder.turns[0]
			Expect(turn.Request.Messages).To(Equal([]llm.Message{llm.UserMessage("Hello")}))
			Expect(turn.Response).To(Equal(llm.AssistantMessage("Hi there")))
		})

		It("keeps the turn when archiving fails", func() {
			recorder.err = errors.New("disk full")

			result := processor.RunTurn(ctx, conversation.Reset(), conversation.TurnInput{Text: "Hello", Model: "m"}, nil)
			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Log).To(HaveLen(2))
		})

		It("builds on an existing conversation", func() {
			log := conversation.Log{llm.UserMessage("one"), llm.AssistantMessage("1")}

			result := processor.RunTurn(ctx, log, conversation.TurnInput{Text: "two", Model: "m"}, nil)
			Expect(result.Pairs).To(HaveLen(2))
			Expect(completer.requests[0].Messages).To(HaveLen(3))
			Expect(log).To(HaveLen(2))
		})
	})
})
