package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/futig/medrag/internal/entity"
	"github.com/futig/medrag/internal/pkg/logger"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/futig/medrag/internal/usecase/answer"

type Options struct {
	PreviewLength     int
	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration
}

// Usecase answers single questions grounded in retrieved passages.
type Usecase struct {
	retriever Retriever
	generator Generator
	opts      Options
	tracer    trace.Tracer
	logger    *zap.Logger
}

func NewUsecase(retriever Retriever, generator Generator, opts Options, logger *zap.Logger) *Usecase {
	return &Usecase{
		retriever: retriever,
		generator: generator,
		opts:      opts,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
	}
}

// Ask retrieves up to k passages and returns a grounded answer.
func (uc *Usecase) Ask(ctx context.Context, question string, k int) (*entity.AnswerResult, error) {
	if err := validateQuestion(question); err != nil {
		return nil, err
	}

	ctx = logger.WithAction(ctx, "ask")
	ctx, span := uc.tracer.Start(ctx, "answer.Ask", trace.WithAttributes(attribute.Int("rag.k", k)))
	defer span.End()

	passages, retrievalTime, err := uc.retrieve(ctx, question, k)
	if err != nil {
		return nil, err
	}

	contextText, sources := AssembleContext(passages)

	answer, generationTime, err := uc.generate(ctx, BuildPrompt(question, contextText), len(passages) == 0)
	if err != nil {
		return nil, err
	}

	return uc.result(answer, passages, sources, entity.NewTiming(retrievalTime, generationTime)), nil
}

// AskStream is Ask delivered as frames. Validation and retrieval errors are
// returned directly; later failures end the stream with an error frame.
func (uc *Usecase) AskStream(ctx context.Context, question string, k int) (<-chan entity.Frame, error) {
	if err := validateQuestion(question); err != nil {
		return nil, err
	}

	ctx = logger.WithAction(ctx, "ask_stream")
	ctx, span := uc.tracer.Start(ctx, "answer.AskStream", trace.WithAttributes(attribute.Int("rag.k", k)))

	passages, retrievalTime, err := uc.retrieve(ctx, question, k)
	if err != nil {
		span.End()
		return nil, err
	}

	contextText, sources := AssembleContext(passages)

	return uc.stream(ctx, span, BuildPrompt(question, contextText), len(passages) == 0, sources, retrievalTime, nil)
}

func (uc *Usecase) retrieve(ctx context.Context, question string, k int) ([]entity.Passage, time.Duration, error) {
	ctx, span := uc.tracer.Start(ctx, "answer.retrieve", trace.WithAttributes(attribute.Int("rag.k", k)))
	defer span.End()

	if uc.opts.RetrievalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.opts.RetrievalTimeout)
		defer cancel()
	}

	start := time.Now()
	passages, err := uc.retriever.Retrieve(ctx, question, k)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		ctxzap.Error(ctx, "retrieval failed", zap.Int("k", k), zap.Error(err))

		if !errors.Is(err, entity.ErrRetrievalUnavailable) {
			err = fmt.Errorf("%w: %w", entity.ErrRetrievalUnavailable, err)
		}
		return nil, elapsed, err
	}

	span.SetAttributes(attribute.Int("rag.passages", len(passages)))
	ctxzap.Info(ctx, "passages retrieved",
		zap.Int("k", k),
		zap.Int("count", len(passages)),
		zap.Duration("elapsed", elapsed),
	)

	return passages, elapsed, nil
}

// generate calls the model unless there is nothing to ground the answer on,
// in which case the refusal is returned with zero generation time.
func (uc *Usecase) generate(ctx context.Context, prompt string, emptyContext bool) (string, time.Duration, error) {
	if emptyContext {
		ctxzap.Info(ctx, "no passages retrieved, refusing without generation")
		return entity.RefusalSentence, 0, nil
	}

	ctx, span := uc.tracer.Start(ctx, "answer.generate")
	defer span.End()

	ctx, cancel := uc.generationContext(ctx)
	defer cancel()

	start := time.Now()
	answer, err := uc.generator.Generate(ctx, prompt)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		ctxzap.Error(ctx, "generation failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return "", elapsed, asGenerationFailure(err)
	}

	ctxzap.Info(ctx, "answer generated",
		zap.Int("answer_length", len(answer)),
		zap.Duration("elapsed", elapsed),
	)

	return answer, elapsed, nil
}

// stream produces text frames followed by sources and timing frames.
// onComplete, when set, runs with the full answer before the trailers and
// its failure replaces them with an error frame. reqSpan is ended once the
// stream is over.
func (uc *Usecase) stream(
	ctx context.Context,
	reqSpan trace.Span,
	prompt string,
	emptyContext bool,
	sources []entity.Source,
	retrievalTime time.Duration,
	onComplete func(ctx context.Context, answer string) error,
) (<-chan entity.Frame, error) {
	genCtx, cancel := uc.generationContext(ctx)
	genCtx, span := uc.tracer.Start(genCtx, "answer.generate_stream")

	start := time.Now()
	var tokens <-chan entity.Token
	if emptyContext {
		ctxzap.Info(ctx, "no passages retrieved, refusing without generation")
		tokens = refusalTokens()
	} else {
		var err error
		tokens, err = uc.generator.GenerateStream(genCtx, prompt)
		if err != nil {
			for _, s := range []trace.Span{span, reqSpan} {
				s.RecordError(err)
				s.SetStatus(codes.Error, "generation failed")
				s.End()
			}
			cancel()
			ctxzap.Error(ctx, "failed to start generation stream", zap.Error(err))
			return nil, asGenerationFailure(err)
		}
	}

	frames := make(chan entity.Frame)

	go func() {
		defer close(frames)
		defer reqSpan.End()
		defer span.End()
		// Stop the producer and let it finish before the spans end.
		defer func() {
			cancel()
			for range tokens {
			}
		}()

		send := func(f entity.Frame) bool {
			select {
			case frames <- f:
				return true
			case <-ctx.Done():
				return false
			}
		}

		fail := func(err error) {
			for _, s := range []trace.Span{span, reqSpan} {
				s.RecordError(err)
				s.SetStatus(codes.Error, "stream failed")
			}
			ctxzap.Error(ctx, "answer stream failed", zap.Error(err))
			send(entity.ErrorFrame(err))
		}

		var sb strings.Builder

		// A producer cut short by its deadline ends with an error token, so a
		// plain close means the answer is complete.
		for tok := range tokens {
			if tok.Err != nil {
				fail(asGenerationFailure(tok.Err))
				return
			}
			sb.WriteString(tok.Content)
			if !send(entity.TextFrame(tok.Content)) {
				ctxzap.Info(ctx, "client went away, stream abandoned")
				return
			}
		}

		if ctx.Err() != nil {
			return
		}

		var generationTime time.Duration
		if !emptyContext {
			generationTime = time.Since(start)
		}

		answer := sb.String()
		if onComplete != nil {
			if err := onComplete(ctx, answer); err != nil {
				fail(err)
				return
			}
		}

		timing := entity.NewTiming(retrievalTime, generationTime)
		ctxzap.Info(ctx, "answer streamed",
			zap.Int("answer_length", len(answer)),
			zap.Float64("total_time", timing.TotalTime),
		)

		if !send(entity.SourcesFrame(sources)) {
			return
		}
		send(entity.TimingFrame(timing))
	}()

	return frames, nil
}

func (uc *Usecase) generationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.opts.GenerationTimeout > 0 {
		return context.WithTimeout(ctx, uc.opts.GenerationTimeout)
	}
	return context.WithCancel(ctx)
}

func (uc *Usecase) result(answer string, passages []entity.Passage, sources []entity.Source, timing entity.Timing) *entity.AnswerResult {
	return &entity.AnswerResult{
		Answer:           answer,
		Sources:          sources,
		Timing:           timing,
		RetrievalPreview: previews(passages, uc.opts.PreviewLength),
		Refused:          entity.IsRefusal(answer),
		Passages:         passages,
	}
}

func refusalTokens() <-chan entity.Token {
	tokens := make(chan entity.Token, 1)
	tokens <- entity.Token{Content: entity.RefusalSentence}
	close(tokens)
	return tokens
}

func asGenerationFailure(err error) error {
	if errors.Is(err, entity.ErrGenerationFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", entity.ErrGenerationFailure, err)
}
