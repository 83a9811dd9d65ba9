package entity

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ConversationTurn is one immutable message of a chat session.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Message string `json:"message"`
}

// TurnPair builds the two turns appended after a completed exchange.
func TurnPair(question, answer string) []ConversationTurn {
	return []ConversationTurn{
		{Role: RoleUser, Message: question},
		{Role: RoleAssistant, Message: answer},
	}
}

// ChatResult is an AnswerResult plus the history length after the exchange.
type ChatResult struct {
	AnswerResult
	HistoryLength int `json:"history_length"`
}
