package answer

import (
	"strings"

	"github.com/futig/medrag/internal/entity"
)

// AssembleContext renders passages as "\n\n[Page N] text" blocks in input
// order. sources[i] is the citation of passages[i].
func AssembleContext(passages []entity.Passage) (string, []entity.Source) {
	var sb strings.Builder
	sources := make([]entity.Source, 0, len(passages))

	for _, p := range passages {
		sb.WriteString("\n\n[Page ")
		sb.WriteString(p.Locator.String())
		sb.WriteString("] ")
		sb.WriteString(p.Text)

		sources = append(sources, p.Citation())
	}

	return sb.String(), sources
}
