package formatter

import (
	"encoding/json"

	"github.com/futig/medrag/internal/entity"
)

const (
	jsonContentType   = "application/json"
	jsonFileExtension = ".json"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (jf *JSONFormatter) Format(transcript entity.ChatHistoryDTO) ([]byte, error) {
	if transcript.Turns == nil {
		transcript.Turns = []entity.ConversationTurn{}
	}
	return json.MarshalIndent(transcript, "", "  ")
}

func (jf *JSONFormatter) ContentType() string {
	return jsonContentType
}

func (jf *JSONFormatter) FileExtension() string {
	return jsonFileExtension
}
