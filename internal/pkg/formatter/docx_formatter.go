package formatter

import (
	"bytes"

	"github.com/futig/medrag/internal/entity"
	"github.com/unidoc/unioffice/document"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (mf *DOCXFormatter) Format(transcript entity.ChatHistoryDTO) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	titlePar := doc.AddParagraph()
	titlePar.SetStyle("Heading1")
	titlePar.AddRun().AddText(baseTitle)

	sessionRun := doc.AddParagraph().AddRun()
	sessionRun.Properties().SetItalic(true)
	sessionRun.AddText("Session: " + transcript.SessionID)

	for _, turn := range transcript.Turns {
		par := doc.AddParagraph()

		roleRun := par.AddRun()
		roleRun.Properties().SetBold(true)
		roleRun.AddText(roleLabel(turn.Role) + ": ")

		par.AddRun().AddText(turn.Message)
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (mf *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
