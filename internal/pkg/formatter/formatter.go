package formatter

import (
	"fmt"
	"strings"

	"github.com/futig/medrag/internal/entity"
)

const baseTitle = "Medical consultation transcript"

// Formatter renders a chat transcript as a downloadable document.
type Formatter interface {
	Format(transcript entity.ChatHistoryDTO) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatJSON:
		return NewJSONFormatter(), nil
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Filename is the attachment name for a transcript in the given format.
func Filename(sessionID string, f Formatter) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, sessionID)
	return "chat_" + safe + f.FileExtension()
}

func roleLabel(role entity.Role) string {
	switch role {
	case entity.RoleUser:
		return "User"
	case entity.RoleAssistant:
		return "Assistant"
	default:
		return string(role)
	}
}
