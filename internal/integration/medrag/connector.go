package medrag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/futig/medrag/internal/config"
	"github.com/futig/medrag/internal/entity"
	"github.com/futig/medrag/internal/integration/common"
	pkghttp "github.com/futig/medrag/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	askEndpoint       = "/ask"
	askStreamEndpoint = "/ask-stream"
	healthEndpoint    = "/health"
)

// Connector calls a running answer service over HTTP. The evaluation CLI
// uses it to measure a deployed instance.
type Connector struct {
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(cfg config.HTTPClientConfig, logger *zap.Logger) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg, logger),
		logger:    logger,
	}
}

// Ask posts a question to /ask.
func (c *Connector) Ask(ctx context.Context, question string, k int) (*entity.AnswerResult, error) {
	ctxzap.Debug(ctx, "asking remote answer service", zap.Int("k", k))

	req := entity.AskRequest{Question: question, K: &k}

	var resp entity.AnswerResult
	if err := c.connector.DoRequest(ctx, http.MethodPost, askEndpoint, req, &resp); err != nil {
		ctxzap.Error(ctx, "remote ask failed", zap.Error(err))
		return nil, classify(err)
	}

	return &resp, nil
}

// AskStream posts a question to /ask-stream and returns the raw stream in
// the given wire format. The caller must close it.
func (c *Connector) AskStream(ctx context.Context, question string, k int, format string) (io.ReadCloser, error) {
	req := entity.AskRequest{Question: question, K: &k}

	var opts []pkghttp.RequestOpt
	if format != "" {
		opts = append(opts, pkghttp.WithQuery("format", format))
	}

	body, err := c.connector.OpenStream(ctx, http.MethodPost, askStreamEndpoint, req, opts...)
	if err != nil {
		ctxzap.Error(ctx, "remote ask stream failed", zap.Error(err))
		return nil, classify(err)
	}

	return body, nil
}

// Health fetches /health.
func (c *Connector) Health(ctx context.Context) (*entity.HealthResponse, error) {
	var resp entity.HealthResponse
	if err := c.connector.DoRequest(ctx, http.MethodGet, healthEndpoint, nil, &resp); err != nil {
		return nil, classify(err)
	}
	return &resp, nil
}

// classify maps transport errors back onto the domain sentinels.
func classify(err error) error {
	var httpErr *pkghttp.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusServiceUnavailable:
			return fmt.Errorf("%w: %w", entity.ErrSessionUnavailable, err)
		case httpErr.StatusCode >= 400 && httpErr.StatusCode < 500:
			return fmt.Errorf("%w: %w", entity.ErrMalformedInput, err)
		default:
			return fmt.Errorf("%w: %w", entity.ErrGenerationFailure, err)
		}
	}

	var netErr *pkghttp.NetworkError
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", entity.ErrRetrievalUnavailable, err)
	}

	return err
}
