package builder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/futig/medrag/internal/api"
	askapi "github.com/futig/medrag/internal/api/ask"
	chatapi "github.com/futig/medrag/internal/api/chat"
	"github.com/futig/medrag/internal/config"
	"github.com/futig/medrag/internal/pkg/logger"
	"github.com/futig/medrag/internal/pkg/validator"
	"github.com/futig/medrag/internal/usecase/answer"
	"go.uber.org/zap"
)

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	log.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
		zap.Bool("mocks", cfg.EnableMocks),
	)

	pipeline, err := BuildPipeline(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	history := setupHistory(ctx, cfg.SessionCfg, log)

	// Initialize validators
	reqValidator := validator.NewValidator(cfg.RAGCfg)

	// Setup API handlers
	askHandler := askapi.NewHandler(pipeline.Answer, reqValidator)

	var chatHandler *chatapi.Handler
	if history != nil {
		chatUC := answer.NewChatUsecase(pipeline.Answer, history)
		chatHandler = chatapi.NewHandler(chatUC, reqValidator)
	}
	log.Info("API handlers initialized", zap.Bool("chat_enabled", chatHandler != nil))

	// Setup router
	router := api.SetupRouter(askHandler, chatHandler, cfg.ServerRequestTimeout, log)
	log.Info("HTTP router configured")

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	log.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server:   server,
		pipeline: pipeline,
		history:  history,
		logger:   log,
	}, nil
}
