package answer

import (
	"strings"
	"testing"

	"github.com/futig/medrag/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestAssembleContext(t *testing.T) {
	passages := []entity.Passage{
		{Text: "first", Source: "a.pdf", Locator: entity.PageLocator(3)},
		{Text: "second", Source: "b.pdf"},
		{Text: "first", Source: "a.pdf", Locator: entity.PageLocator(3)},
	}

	text, sources := AssembleContext(passages)

	assert.Equal(t, "\n\n[Page 3] first\n\n[Page unknown] second\n\n[Page 3] first", text)
	assert.Equal(t, []entity.Source{
		{Source: "a.pdf", Page: entity.PageLocator(3)},
		{Source: "b.pdf"},
		{Source: "a.pdf", Page: entity.PageLocator(3)},
	}, sources)
}

func TestAssembleContext_Empty(t *testing.T) {
	text, sources := AssembleContext(nil)
	assert.Empty(t, text)
	assert.Empty(t, sources)
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("What is asthma?", "\n\n[Page 103] Asthma is a chronic disease.")

	assert.Contains(t, prompt, `"`+entity.RefusalSentence+`"`)
	assert.Contains(t, prompt, "Question:\nWhat is asthma?\n")
	assert.Contains(t, prompt, "[Page 103] Asthma is a chronic disease.")
	assert.True(t, strings.HasSuffix(prompt, "Answer:\n"))
	assert.Equal(t, prompt, BuildPrompt("What is asthma?", "\n\n[Page 103] Asthma is a chronic disease."))
}

func TestBuildChatPrompt(t *testing.T) {
	history := []entity.ConversationTurn{
		{Role: entity.RoleUser, Message: "What is asthma?"},
		{Role: entity.RoleAssistant, Message: "An airway disease [Page 103]."},
	}

	prompt := BuildChatPrompt(history, "What triggers it?", "\n\n[Page 103] Often triggered by allergens.")

	assert.Contains(t, prompt, entity.RefusalSentence)
	assert.Contains(t, prompt, "USER: What is asthma?\nASSISTANT: An airway disease [Page 103].")
	assert.Less(t, strings.Index(prompt, "Conversation so far:"), strings.Index(prompt, "Question:"))
	assert.Less(t, strings.Index(prompt, "Question:"), strings.Index(prompt, "Medical Context:"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "пр", Truncate("привет", 2))
}
