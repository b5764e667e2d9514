// Package conversation implements the conversation turn processor: it keeps a
// session's message log, annotates user turns with attachments, streams the
// completion for the whole log and projects the log into display pairs.
package conversation

import (
	"fmt"

	"github.com/papercomputeco/docchat/pkg/llm"
)

// Log is the ordered message history of one session.
// Appending never mutates the receiver's backing array, so a Log value held by
// a caller stays valid after a turn builds on it.
type Log []llm.Message

// Reset discards all state.
func Reset() Log {
	return Log{}
}

// AppendAssistantTurn appends the fully accumulated response.
func AppendAssistantTurn(log Log, text string) Log {
	return log.with(llm.AssistantMessage(text))
}

func (l Log) with(msg llm.Message) Log {
	out := make(Log, len(l), len(l)+1)
	copy(out, l)
	return append(out, msg)
}

// Messages returns the log as plain messages for a completion request.
func (l Log) Messages() []llm.Message {
	return []llm.Message(l)
}

// Last returns the most recent message, if any.
func (l Log) Last() (llm.Message, bool) {
	if len(l) == 0 {
		return llm.Message{}, false
	}
	return l[len(l)-1], true
}

// Validate checks that the log alternates user/assistant starting with user.
// A trailing user message (a turn still in flight, or one whose completion
// failed) is allowed.
func (l Log) Validate() error {
	for i, msg := range l {
		want := llm.RoleUser
		if i%2 == 1 {
			want = llm.RoleAssistant
		}
		if msg.Role != want {
			return fmt.Errorf("message %d: expected role %s, got %s", i, want, msg.Role)
		}
	}
	return nil
}

// DisplayPairs projects the log into (user, assistant) rows. A pair is emitted
// for every user message immediately followed by an assistant message; any
// message without a partner is skipped. On a strictly alternating log of
// length 2n this yields exactly n pairs, and a trailing unanswered user
// message is dropped.
func DisplayPairs(log Log) []llm.DisplayPair {
	pairs := make([]llm.DisplayPair, 0, len(log)/2)
	for i := 0; i+1 < len(log); {
		if log[i].Role == llm.RoleUser && log[i+1].Role == llm.RoleAssistant {
			pairs = append(pairs, llm.DisplayPair{User: log[i].Content, Assistant: log[i+1].Content})
			i += 2
			continue
		}
		i++
	}
	return pairs
}
