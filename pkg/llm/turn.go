package llm

// ConversationTurn is one completed exchange: the request that was sent and
// the assistant message it produced. It is the unit the transcript archive
// records.
type ConversationTurn struct {
	Request  *ChatRequest `json:"request"`
	Response Message      `json:"response"`
}

// Messages returns the request history followed by the response.
func (t *ConversationTurn) Messages() []Message {
	if t.Request == nil {
		return []Message{t.Response}
	}
	out := make([]Message, 0, len(t.Request.Messages)+1)
	out = append(out, t.Request.Messages...)
	return append(out, t.Response)
}
