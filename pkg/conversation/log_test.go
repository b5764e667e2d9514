package conversation_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docchat/pkg/conversation"
	"github.com/papercomputeco/docchat/pkg/llm"
)

// alternating builds a strictly alternating log of n turns.
func alternating(n int) conversation.Log {
	log := conversation.Reset()
	for i := 0; i < n; i++ {
		log = append(log,
			llm.UserMessage(fmt.Sprintf("question %d", i)),
			llm.AssistantMessage(fmt.Sprintf("answer %d", i)),
		)
	}
	return log
}

var _ = Describe("Log", func() {
	Describe("DisplayPairs", func() {
		It("returns nothing for an empty log", func() {
			Expect(conversation.DisplayPairs(conversation.Reset())).To(BeEmpty())
		})

		It("returns n pairs for a log of length 2n", func() {
			for n := 1; n <= 5; n++ {
				log := alternating(n)
				pairs := conversation.DisplayPairs(log)

				Expect(pairs).To(HaveLen(n))
				for i, pair := range pairs {
					Expect(pair.User).To(Equal(log[2*i].Content))
					Expect(pair.Assistant).To(Equal(log[2*i+1].Content))
				}
			}
		})

		It("drops a trailing unpaired entry", func() {
			log := append(alternating(2), llm.UserMessage("pending"))

			pairs := conversation.DisplayPairs(log)
			Expect(pairs).To(HaveLen(2))
			Expect(pairs[1].User).To(Equal("question 1"))
		})

		It("does not misalign after a failed turn left a user message behind", func() {
			log := conversation.Log{
				llm.UserMessage("Hello"),
				llm.UserMessage("Hello"),
				llm.AssistantMessage("Hi there"),
			}

			Expect(conversation.DisplayPairs(log)).To(Equal([]llm.DisplayPair{
				{User: "Hello", Assistant: "Hi there"},
			}))
		})
	})

	Describe("AppendAssistantTurn", func() {
		It("does not write into the caller's backing array", func() {
			base := make(conversation.Log, 1, 4)
			base[0] = llm.UserMessage("Hello")

			a := conversation.AppendAssistantTurn(base, "one")
			b := conversation.AppendAssistantTurn(base, "two")

			Expect(a[1].Content).To(Equal("one"))
			Expect(b[1].Content).To(Equal("two"))
			Expect(base).To(HaveLen(1))
		})
	})

	Describe("Validate", func() {
		It("accepts strict alternation with an optional trailing user message", func() {
			Expect(alternating(3).Validate()).To(Succeed())
			Expect(append(alternating(1), llm.UserMessage("x")).Validate()).To(Succeed())
		})

		It("rejects a log starting with the assistant", func() {
			log := conversation.Log{llm.AssistantMessage("Hi")}
			Expect(log.Validate()).To(MatchError(ContainSubstring("expected role user")))
		})

		It("rejects two user messages in a row", func() {
			log := conversation.Log{llm.UserMessage("a"), llm.UserMessage("b")}
			Expect(log.Validate()).To(HaveOccurred())
		})
	})

	It("Reset returns an empty log", func() {
		log := conversation.Reset()
		Expect(log).To(BeEmpty())
		_, ok := log.Last()
		Expect(ok).To(BeFalse())
	})
})
