package ai

import (
	"errors"

	"github.com/hrygo/agentcache/internal/profile"
)

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string // openai, siliconflow
	Model      string // text-embedding-3-small
	Dimensions int    // 1536
	APIKey     string
	BaseURL    string
	RPS        float64 // outbound requests per second, 0 disables the limit
}

// NewEmbeddingConfigFromProfile creates embedding config from profile.
// It returns nil when the vector tier is disabled.
func NewEmbeddingConfigFromProfile(p *profile.Profile) *EmbeddingConfig {
	if !p.IsEmbeddingEnabled() {
		return nil
	}

	return &EmbeddingConfig{
		Provider:   p.Embedding.Provider,
		Model:      p.Embedding.Model,
		Dimensions: p.Embedding.Dimensions,
		APIKey:     p.Embedding.APIKey,
		BaseURL:    p.Embedding.BaseURL,
		RPS:        p.Embedding.RPS,
	}
}

// Validate validates the configuration.
func (c *EmbeddingConfig) Validate() error {
	if c.Provider == "" {
		return errors.New("embedding provider is required")
	}
	if c.APIKey == "" {
		return errors.New("embedding API key is required")
	}
	if c.Model == "" {
		return errors.New("embedding model is required")
	}
	if c.Dimensions < 0 {
		return errors.New("embedding dimensions must not be negative")
	}
	return nil
}
