package common

import (
	"net/http"

	"github.com/futig/medrag/internal/config"
	pkgHTTP "github.com/futig/medrag/pkg/http"
	"go.uber.org/zap"
)

func httpOptions(cfg config.HTTPClientConfig) []pkgHTTP.HttpOpts {
	return []pkgHTTP.HttpOpts{
		pkgHTTP.WithRequestTimeout(cfg.RequestTimeout),
		pkgHTTP.WithConnClientTimeout(cfg.ConnTimeout),
		pkgHTTP.WithClientKeepAlive(cfg.KeepAlive),
		pkgHTTP.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkgHTTP.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkgHTTP.WithRequestLogging(),
	}
}

// NewBaseConnector builds a JSON connector for services we call directly.
func NewBaseConnector(cfg config.HTTPClientConfig, logger *zap.Logger) *pkgHTTP.Connector {
	connCfg := &pkgHTTP.ConnectorConfig{
		Logger:  logger,
		BaseURL: cfg.Url,
	}

	opts := append(httpOptions(cfg), pkgHTTP.WithAuthToken(cfg.Token))

	return pkgHTTP.NewConnector(connCfg, opts...)
}

// NewSDKClient builds the *http.Client handed to vendor SDKs. Credentials
// are left to the SDK since each one sets its own auth header.
func NewSDKClient(cfg config.HTTPClientConfig) *http.Client {
	return pkgHTTP.NewClient(httpOptions(cfg)...)
}

// NewBearerClient builds an *http.Client that authenticates with cfg.Token.
// Used for self-hosted Ollama behind a reverse proxy.
func NewBearerClient(cfg config.HTTPClientConfig) *http.Client {
	opts := append(httpOptions(cfg), pkgHTTP.WithAuthToken(cfg.Token))
	return pkgHTTP.NewClient(opts...)
}

func generationOptions(cfg config.LLMConfig) []pkgHTTP.HttpOpts {
	return append(httpOptions(cfg.HTTPClientConfig),
		pkgHTTP.WithStreaming(),
		pkgHTTP.WithMaxConnsPerHost(cfg.MaxConns),
	)
}

// NewGenerationClient builds the *http.Client for LLM SDKs. It has no
// overall timeout; generation is bounded by the LLM_GENERATION_TIMEOUT
// context deadline so token streams are not cut mid-answer.
func NewGenerationClient(cfg config.LLMConfig) *http.Client {
	return pkgHTTP.NewClient(generationOptions(cfg)...)
}

// NewGenerationBearerClient is NewGenerationClient authenticating with cfg.Token.
func NewGenerationBearerClient(cfg config.LLMConfig) *http.Client {
	opts := append(generationOptions(cfg), pkgHTTP.WithAuthToken(cfg.Token))
	return pkgHTTP.NewClient(opts...)
}
