package evaluation

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/futig/medrag/internal/entity"
	"gopkg.in/yaml.v3"
)

var ErrEmptyDataset = errors.New("evaluation dataset has no questions")

// LoadDataset reads a list of {question: ...} entries from a YAML or JSON
// file. JSON parses as YAML, so both share one decoder.
func LoadDataset(path string) ([]entity.EvalQuestion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	return ParseDataset(data)
}

func ParseDataset(data []byte) ([]entity.EvalQuestion, error) {
	var raw []entity.EvalQuestion
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	questions := make([]entity.EvalQuestion, 0, len(raw))
	for i, q := range raw {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" {
			return nil, fmt.Errorf("parse dataset: entry %d: %w", i, entity.ErrMissingField)
		}
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return nil, ErrEmptyDataset
	}

	return questions, nil
}
