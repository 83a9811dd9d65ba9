package builder

import (
	"context"
	"fmt"
	"io"

	"github.com/futig/medrag/internal/config"
	"github.com/futig/medrag/internal/integration/embedding"
	"github.com/futig/medrag/internal/integration/llm"
	"github.com/futig/medrag/internal/integration/qdrant"
	"github.com/futig/medrag/internal/integration/retrieval"
	"github.com/futig/medrag/internal/pkg/retry"
	"github.com/futig/medrag/internal/repository"
	"github.com/futig/medrag/internal/usecase/answer"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type retriever interface {
	answer.Retriever
	Ping(ctx context.Context) error
	io.Closer
}

type generator interface {
	answer.Generator
	io.Closer
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Pipeline is the answer usecase together with the clients it owns.
type Pipeline struct {
	Answer *answer.Usecase

	retriever retriever
	generator generator
	db        *pgxpool.Pool
	logger    *zap.Logger
}

// BuildPipeline wires retrieval and generation from cfg. The server and the
// evaluation CLI share it.
func BuildPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	p := &Pipeline{logger: logger}

	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		p.retriever = retrieval.NewMockRetriever(logger)
		p.generator = llm.NewMockConnector(logger)
	} else {
		logger.Info("Using real connectors for external services",
			zap.String("embedder", cfg.EmbedderCfg.Provider),
			zap.String("index", cfg.IndexCfg.Provider),
			zap.String("llm", cfg.LLMCfg.Provider),
			zap.String("model", cfg.LLMCfg.Model),
		)

		r, err := p.setupRetriever(ctx, cfg)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("setup retriever: %w", err)
		}
		p.retriever = r

		g, err := setupGenerator(ctx, cfg.LLMCfg, logger)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("setup generator: %w", err)
		}
		p.generator = g
	}

	p.checkReadiness(ctx, cfg)

	p.Answer = answer.NewUsecase(p.retriever, p.generator, answer.Options{
		PreviewLength:     cfg.RAGCfg.PreviewLength,
		RetrievalTimeout:  cfg.RAGCfg.RetrievalTimeout,
		GenerationTimeout: cfg.LLMCfg.Timeout,
	}, logger)
	logger.Info("Answer pipeline initialized")

	return p, nil
}

func (p *Pipeline) setupRetriever(ctx context.Context, cfg *config.Config) (retriever, error) {
	var embedder retrieval.Embedder
	switch cfg.EmbedderCfg.Provider {
	case "openai":
		embedder = embedding.NewOpenAIEmbedder(cfg.EmbedderCfg)
	default:
		e, err := embedding.NewOllamaEmbedder(cfg.EmbedderCfg)
		if err != nil {
			return nil, err
		}
		embedder = e
	}

	var index retrieval.Index
	switch cfg.IndexCfg.Provider {
	case "qdrant":
		idx, err := qdrant.NewIndex(cfg.IndexCfg)
		if err != nil {
			return nil, err
		}
		index = idx
	default:
		db, err := setupDatabase(ctx, cfg, p.logger)
		if err != nil {
			return nil, err
		}
		p.db = db
		index = repository.NewPassagePostgres(db, cfg.IndexCfg.PgvectorTable)
	}

	return retrieval.NewRetriever(embedder, index, p.logger), nil
}

func setupGenerator(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (generator, error) {
	switch cfg.Provider {
	case "openai":
		return llm.NewOpenAIConnector(cfg, logger), nil
	case "anthropic":
		return llm.NewAnthropicConnector(cfg, logger), nil
	case "gemini":
		return llm.NewGeminiConnector(ctx, cfg, logger)
	default:
		return llm.NewOllamaConnector(cfg, logger)
	}
}

// checkReadiness probes the index and the model server. Failures are only
// logged: requests report them as retrieval or generation errors.
func (p *Pipeline) checkReadiness(ctx context.Context, cfg *config.Config) {
	if err := retry.WaitFor(ctx, "retriever", cfg.IndexCfg.Retry, p.logger, p.retriever.Ping); err != nil {
		p.logger.Warn("Retriever is not ready", zap.Error(err))
	}

	if gp, ok := p.generator.(pinger); ok {
		if err := retry.WaitFor(ctx, "llm", cfg.IndexCfg.Retry, p.logger, gp.Ping); err != nil {
			p.logger.Warn("Language model is not ready", zap.Error(err))
		}
	}
}

// Close releases every client the pipeline owns.
func (p *Pipeline) Close() {
	if p.retriever != nil {
		if err := p.retriever.Close(); err != nil {
			p.logger.Warn("Failed to close retriever", zap.Error(err))
		}
	}
	if p.generator != nil {
		if err := p.generator.Close(); err != nil {
			p.logger.Warn("Failed to close generator", zap.Error(err))
		}
	}
	if p.db != nil {
		p.logger.Info("Closing database connections")
		p.db.Close()
	}
}
