package formatter

import (
	"bytes"
	"fmt"

	"github.com/futig/medrag/internal/entity"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(transcript entity.ChatHistoryDTO) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\nSession: `%s`\n", baseTitle, transcript.SessionID)

	if len(transcript.Turns) == 0 {
		buf.WriteString("\n_No messages yet._\n")
	}

	for _, turn := range transcript.Turns {
		fmt.Fprintf(&buf, "\n**%s:** %s\n", roleLabel(turn.Role), turn.Message)
	}

	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
