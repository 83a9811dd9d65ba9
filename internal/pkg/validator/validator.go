package validator

import (
	"fmt"
	"strings"

	"github.com/futig/medrag/internal/config"
	"github.com/futig/medrag/internal/entity"
)

// maxQuestionLength bounds prompt size, in runes.
const maxQuestionLength = 4000

// Validator validates API requests and resolves defaults
type Validator struct {
	cfg config.RAGConfig
}

func NewValidator(cfg config.RAGConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAsk checks the request and returns the effective k.
func (v *Validator) ValidateAsk(req *entity.AskRequest) (int, error) {
	if err := validateQuestion(req.Question); err != nil {
		return 0, err
	}
	return v.ResolveK(req.K)
}

// ValidateChat checks the request and returns the effective k.
func (v *Validator) ValidateChat(req *entity.ChatRequest) (int, error) {
	if err := ValidateSessionID(req.SessionID); err != nil {
		return 0, err
	}
	if err := validateQuestion(req.Question); err != nil {
		return 0, err
	}
	return v.ResolveK(req.K)
}

// ResolveK applies the default when k is absent and enforces [1, MaxTopK].
func (v *Validator) ResolveK(k *int) (int, error) {
	if k == nil {
		return v.cfg.DefaultTopK, nil
	}
	if *k < 1 || *k > v.cfg.MaxTopK {
		return 0, fmt.Errorf("%w: k must be between 1 and %d, got %d", entity.ErrInvalidParameter, v.cfg.MaxTopK, *k)
	}
	return *k, nil
}

// ValidateSessionID accepts any non-blank id of reasonable length without
// control characters, since it becomes part of a storage key.
func ValidateSessionID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: session_id", entity.ErrMissingField)
	}
	if len(id) > 128 {
		return fmt.Errorf("%w: session_id longer than 128 bytes", entity.ErrInvalidParameter)
	}
	if strings.ContainsFunc(id, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return fmt.Errorf("%w: session_id contains control characters", entity.ErrInvalidParameter)
	}
	return nil
}

// ValidateFormat checks a transcript export format.
func ValidateFormat(format string) (entity.ResultFormat, error) {
	if format == "" {
		return entity.FormatJSON, nil
	}
	f := entity.ResultFormat(strings.ToLower(format))
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %q (allowed: json, markdown, pdf, docx)", entity.ErrInvalidFormat, format)
	}
	return f, nil
}

func validateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("%w: question", entity.ErrMissingField)
	}
	if len([]rune(question)) > maxQuestionLength {
		return fmt.Errorf("%w: question longer than %d characters", entity.ErrInvalidParameter, maxQuestionLength)
	}
	return nil
}
