package answer

import (
	"strings"
	"text/template"

	"github.com/futig/medrag/internal/entity"
)

const instructions = `You are a highly reliable and cautious Medical AI Assistant.
Use ONLY the provided medical context to answer the question.

If the answer is not clearly contained in the context,
respond:

"{{ refusal }}"

Rules:
- Do NOT guess.
- Do NOT invent medical information.
- Prefer short, precise medical explanations.
- Include referenced page numbers in your explanation when possible.
`

const statelessBody = `
Question:
{{ .Question }}

Medical Context:
{{ .Context }}

Answer:
`

const chatBody = `- The conversation below only helps to resolve what the question refers to.
  Facts must still come from the medical context.

Conversation so far:
{{ .History }}

Question:
{{ .Question }}

Medical Context:
{{ .Context }}

Answer:
`

var funcs = template.FuncMap{
	"refusal": func() string { return entity.RefusalSentence },
}

var (
	statelessTmpl = template.Must(template.New("stateless").Funcs(funcs).Parse(instructions + statelessBody))
	chatTmpl      = template.Must(template.New("chat").Funcs(funcs).Parse(instructions + chatBody))
)

type promptData struct {
	Question string
	Context  string
	History  string
}

// BuildPrompt renders the single-turn grounded prompt.
func BuildPrompt(question, contextText string) string {
	return render(statelessTmpl, promptData{
		Question: question,
		Context:  contextText,
	})
}

// BuildChatPrompt renders the grounded prompt with prior turns, oldest first,
// as "ROLE: message" lines.
func BuildChatPrompt(history []entity.ConversationTurn, question, contextText string) string {
	return render(chatTmpl, promptData{
		Question: question,
		Context:  contextText,
		History:  formatHistory(history),
	})
}

func formatHistory(history []entity.ConversationTurn) string {
	if len(history) == 0 {
		return "(no previous messages)"
	}

	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, strings.ToUpper(string(turn.Role))+": "+turn.Message)
	}
	return strings.Join(lines, "\n")
}

// render panics on failure: both templates are fixed and the data is plain
// strings, so an error here is a programming mistake.
func render(tmpl *template.Template, data promptData) string {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		panic("render " + tmpl.Name() + " prompt: " + err.Error())
	}
	return sb.String()
}
