package entity

type AskRequest struct {
	Question string `json:"question"`
	K        *int   `json:"k,omitempty"`
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	K         *int   `json:"k,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	ChatEnabled bool   `json:"chat_enabled"`
}

type ChatHistoryDTO struct {
	SessionID string             `json:"session_id"`
	Turns     []ConversationTurn `json:"turns"`
}

type ResultFormat string

const (
	FormatJSON     ResultFormat = "json"
	FormatMarkdown ResultFormat = "markdown"
	FormatDOCX     ResultFormat = "docx"
	FormatPDF      ResultFormat = "pdf"
)

func (f ResultFormat) IsValid() bool {
	switch f {
	case FormatJSON, FormatMarkdown, FormatDOCX, FormatPDF:
		return true
	default:
		return false
	}
}
