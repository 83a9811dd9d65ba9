package answer

import (
	"context"
	"fmt"

	"github.com/futig/medrag/internal/entity"
	"github.com/futig/medrag/internal/pkg/logger"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ChatUsecase answers questions within a session, taking prior turns into
// account and recording each completed exchange.
type ChatUsecase struct {
	*Usecase
	history HistoryRepository
}

func NewChatUsecase(base *Usecase, history HistoryRepository) *ChatUsecase {
	return &ChatUsecase{
		Usecase: base,
		history: history,
	}
}

// Chat answers one question of a session and appends the exchange.
// Nothing is appended when generation fails.
func (uc *ChatUsecase) Chat(ctx context.Context, sessionID, question string, k int) (*entity.ChatResult, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	if err := validateQuestion(question); err != nil {
		return nil, err
	}

	ctx = logger.AddFields(logger.WithAction(ctx, "chat"), zap.String("session_id", sessionID))
	ctx, span := uc.tracer.Start(ctx, "answer.Chat", trace.WithAttributes(attribute.Int("rag.k", k)))
	defer span.End()

	history, err := uc.loadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	passages, retrievalTime, err := uc.retrieve(ctx, question, k)
	if err != nil {
		return nil, err
	}

	contextText, sources := AssembleContext(passages)
	prompt := BuildChatPrompt(history, question, contextText)

	answer, generationTime, err := uc.generate(ctx, prompt, len(passages) == 0)
	if err != nil {
		return nil, err
	}

	updated, err := uc.history.Append(ctx, sessionID, entity.TurnPair(question, answer)...)
	if err != nil {
		ctxzap.Error(ctx, "failed to append chat turns", zap.Error(err))
		return nil, fmt.Errorf("append history: %w", err)
	}

	result := uc.result(answer, passages, sources, entity.NewTiming(retrievalTime, generationTime))

	return &entity.ChatResult{
		AnswerResult:  *result,
		HistoryLength: len(updated),
	}, nil
}

// ChatStream is Chat delivered as frames. The exchange is appended after the
// last text frame and before the trailers.
func (uc *ChatUsecase) ChatStream(ctx context.Context, sessionID, question string, k int) (<-chan entity.Frame, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	if err := validateQuestion(question); err != nil {
		return nil, err
	}

	ctx = logger.AddFields(logger.WithAction(ctx, "chat_stream"), zap.String("session_id", sessionID))
	ctx, span := uc.tracer.Start(ctx, "answer.ChatStream", trace.WithAttributes(attribute.Int("rag.k", k)))

	history, err := uc.loadHistory(ctx, sessionID)
	if err != nil {
		span.End()
		return nil, err
	}

	passages, retrievalTime, err := uc.retrieve(ctx, question, k)
	if err != nil {
		span.End()
		return nil, err
	}

	contextText, sources := AssembleContext(passages)
	prompt := BuildChatPrompt(history, question, contextText)

	record := func(ctx context.Context, answer string) error {
		updated, err := uc.history.Append(ctx, sessionID, entity.TurnPair(question, answer)...)
		if err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		ctxzap.Debug(ctx, "chat turns appended", zap.Int("history_length", len(updated)))
		return nil
	}

	return uc.stream(ctx, span, prompt, len(passages) == 0, sources, retrievalTime, record)
}

// History returns the turns of a session, oldest first.
func (uc *ChatUsecase) History(ctx context.Context, sessionID string) ([]entity.ConversationTurn, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	return uc.loadHistory(ctx, sessionID)
}

// ClearHistory forgets a session.
func (uc *ChatUsecase) ClearHistory(ctx context.Context, sessionID string) error {
	if err := validateSession(sessionID); err != nil {
		return err
	}

	if err := uc.history.Delete(ctx, sessionID); err != nil {
		ctxzap.Error(ctx, "failed to delete chat history", zap.Error(err))
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

func (uc *ChatUsecase) loadHistory(ctx context.Context, sessionID string) ([]entity.ConversationTurn, error) {
	history, err := uc.history.Get(ctx, sessionID)
	if err != nil {
		ctxzap.Error(ctx, "failed to read chat history", zap.Error(err))
		return nil, fmt.Errorf("read history: %w", err)
	}
	return history, nil
}
