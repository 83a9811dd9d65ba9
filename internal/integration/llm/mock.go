package llm

import (
	"context"
	"strings"
	"time"

	"github.com/futig/medrag/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const contextHeader = "Medical Context:"

// MockConnector answers from the first passage of the prompt context, or
// refuses when the context is empty.
type MockConnector struct {
	logger     *zap.Logger
	tokenDelay time.Duration
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger:     logger,
		tokenDelay: 10 * time.Millisecond,
	}
}

func (m *MockConnector) Generate(ctx context.Context, prompt string) (string, error) {
	ctxzap.Info(ctx, "[MOCK] generating answer")
	return mockAnswer(prompt), nil
}

func (m *MockConnector) GenerateStream(ctx context.Context, prompt string) (<-chan entity.Token, error) {
	ctxzap.Info(ctx, "[MOCK] streaming answer")

	answer := mockAnswer(prompt)

	return pump(ctx, "mock", func(emit emitFunc) error {
		for _, word := range strings.SplitAfter(answer, " ") {
			if m.tokenDelay > 0 {
				time.Sleep(m.tokenDelay)
			}
			if !emit(word) {
				return ctx.Err()
			}
		}
		return nil
	}), nil
}

func (m *MockConnector) Close() error {
	return nil
}

func mockAnswer(prompt string) string {
	_, after, found := strings.Cut(prompt, contextHeader)
	if !found {
		return entity.RefusalSentence
	}

	for _, line := range strings.Split(after, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "[Page ") {
			continue
		}

		marker, text, ok := strings.Cut(line, "] ")
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}

		sentence, _, _ := strings.Cut(text, ". ")
		sentence = strings.TrimSuffix(sentence, ".")

		return "According to the medical reference " + marker + "], " + sentence + "."
	}

	return entity.RefusalSentence
}
