package common

import (
	"testing"
	"time"

	"github.com/futig/medrag/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNewSDKClient_UsesRequestTimeout(t *testing.T) {
	client := NewSDKClient(config.HTTPClientConfig{RequestTimeout: 40 * time.Second})

	assert.Equal(t, 40*time.Second, client.Timeout)
}

func TestNewGenerationClient_NoOverallTimeout(t *testing.T) {
	cfg := config.LLMConfig{
		HTTPClientConfig: config.HTTPClientConfig{RequestTimeout: 40 * time.Second, Token: "secret"},
		MaxConns:         2,
	}

	assert.Zero(t, NewGenerationClient(cfg).Timeout)
	assert.Zero(t, NewGenerationBearerClient(cfg).Timeout)
}
