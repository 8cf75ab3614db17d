package ai

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/agentcache/internal/profile"
)

func TestNewEmbeddingConfigFromProfile(t *testing.T) {
	p, err := profile.Load(viper.New(), "")
	require.NoError(t, err)

	assert.Nil(t, NewEmbeddingConfigFromProfile(p), "disabled by default")

	p.Driver = "postgres"
	p.Embedding.Enabled = true
	p.Embedding.APIKey = "sk-test"

	cfg := NewEmbeddingConfigFromProfile(p)
	require.NotNil(t, cfg)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Model)
	assert.Equal(t, 1536, cfg.Dimensions)
	assert.Equal(t, 5.0, cfg.RPS)
	assert.NoError(t, cfg.Validate())

	p.Driver = "sqlite"
	assert.Nil(t, NewEmbeddingConfigFromProfile(p), "sqlite has no vector tier")
}

func TestEmbeddingConfigValidate(t *testing.T) {
	valid := EmbeddingConfig{Provider: "openai", Model: "m", APIKey: "k"}

	tests := []struct {
		name   string
		mutate func(c *EmbeddingConfig)
	}{
		{"missing provider", func(c *EmbeddingConfig) { c.Provider = "" }},
		{"missing key", func(c *EmbeddingConfig) { c.APIKey = "" }},
		{"missing model", func(c *EmbeddingConfig) { c.Model = "" }},
		{"negative dimensions", func(c *EmbeddingConfig) { c.Dimensions = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
