package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/hrygo/agentcache/plugin/ai/similarity"
)

// EnvPrefix is the prefix of every environment variable read by Load,
// e.g. AGENTCACHE_PORT or AGENTCACHE_SIMILARITY_THRESHOLD.
const EnvPrefix = "AGENTCACHE"

// Profile is the configuration to start the knowledge cache server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string `mapstructure:"mode"`
	// Addr is the binding address for server
	Addr string `mapstructure:"addr"`
	// Port is the binding port for server
	Port int `mapstructure:"port"`
	// Data is the data directory
	Data string `mapstructure:"data"`
	// DSN points to where the knowledge records are stored
	DSN string `mapstructure:"dsn"`
	// Driver is the database driver (sqlite or postgres)
	Driver string `mapstructure:"driver"`
	// Version is the current version of server
	Version string `mapstructure:"version"`

	// RedisURL enables the shared L2 exact-hash tier when set (redis://host:port/db).
	RedisURL string `mapstructure:"redis_url"`
	// JWTSecret enables HS256 bearer authentication on the API when set.
	JWTSecret string `mapstructure:"jwt_secret"`
	// RateLimitRPS and RateLimitBurst bound API requests per client.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`

	Embedding  EmbeddingProfile  `mapstructure:"embedding"`
	Similarity SimilarityProfile `mapstructure:"similarity"`
	Cache      CacheProfile      `mapstructure:"cache"`
}

// EmbeddingProfile configures the optional vector tier.
type EmbeddingProfile struct {
	Enabled    bool    `mapstructure:"enabled"`
	Provider   string  `mapstructure:"provider"` // openai, siliconflow
	APIKey     string  `mapstructure:"api_key"`
	BaseURL    string  `mapstructure:"base_url"`
	Model      string  `mapstructure:"model"`
	Dimensions int     `mapstructure:"dimensions"`
	RPS        float64 `mapstructure:"rps"` // outbound embedding requests per second
}

// SimilarityProfile configures the composite matcher and candidate selection.
type SimilarityProfile struct {
	Threshold float64            `mapstructure:"threshold"`
	Weights   similarity.Weights `mapstructure:"weights"`
	// DomainThresholds overrides Threshold per agent domain (research, analysis, ...).
	DomainThresholds map[string]float64 `mapstructure:"domain_thresholds"`
	// CandidateLimit caps the records scored by the semantic tier.
	CandidateLimit int `mapstructure:"candidate_limit"`
	// CandidateWindow only scores records younger than this.
	CandidateWindow time.Duration `mapstructure:"candidate_window"`
	// VectorLimit caps nearest neighbours fetched by the vector tier.
	VectorLimit int `mapstructure:"vector_limit"`
}

// CacheProfile configures the exact-hash tiers.
type CacheProfile struct {
	L1Capacity      int           `mapstructure:"l1_capacity"`
	L1TTL           time.Duration `mapstructure:"l1_ttl"`
	L2TTL           time.Duration `mapstructure:"l2_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsEmbeddingEnabled returns true if the vector tier can be used.
func (p *Profile) IsEmbeddingEnabled() bool {
	return p.Embedding.Enabled && p.Embedding.APIKey != "" && p.Driver == "postgres"
}

// MatcherConfig returns the similarity configuration for domain, applying
// a per-domain threshold override when one exists.
func (p *Profile) MatcherConfig(domain string) similarity.Config {
	cfg := similarity.Config{
		Threshold: p.Similarity.Threshold,
		Weights:   p.Similarity.Weights,
	}
	if t, ok := p.Similarity.DomainThresholds[strings.ToLower(domain)]; ok {
		cfg.Threshold = t
	}
	return cfg
}

// SetDefaults registers every key with its default so that AutomaticEnv
// can resolve it during Unmarshal.
func SetDefaults(v *viper.Viper) {
	weights := similarity.DefaultWeights()

	v.SetDefault("mode", "demo")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8081)
	v.SetDefault("data", "")
	v.SetDefault("dsn", "")
	v.SetDefault("driver", "sqlite")
	v.SetDefault("version", "dev")
	v.SetDefault("redis_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("rate_limit_rps", 10.0)
	v.SetDefault("rate_limit_burst", 20)

	v.SetDefault("embedding.enabled", false)
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("embedding.rps", 5.0)

	v.SetDefault("similarity.threshold", similarity.DefaultThreshold)
	v.SetDefault("similarity.weights.jaccard", weights.Jaccard)
	v.SetDefault("similarity.weights.cosine", weights.Cosine)
	v.SetDefault("similarity.weights.levenshtein", weights.Levenshtein)
	v.SetDefault("similarity.domain_thresholds", map[string]float64{})
	v.SetDefault("similarity.candidate_limit", 200)
	v.SetDefault("similarity.candidate_window", 30*24*time.Hour)
	v.SetDefault("similarity.vector_limit", 20)

	v.SetDefault("cache.l1_capacity", 1000)
	v.SetDefault("cache.l1_ttl", 30*time.Minute)
	v.SetDefault("cache.l2_ttl", 24*time.Hour)
	v.SetDefault("cache.cleanup_interval", time.Minute)
}

// Load builds a Profile from defaults, the optional config file and
// AGENTCACHE_* environment variables, in increasing precedence.
func Load(v *viper.Viper, configFile string) (*Profile, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}

	p := &Profile{}
	if err := v.Unmarshal(p); err != nil {
		return nil, errors.Wrap(err, "failed to decode profile")
	}

	lowered := make(map[string]float64, len(p.Similarity.DomainThresholds))
	for domain, t := range p.Similarity.DomainThresholds {
		lowered[strings.ToLower(domain)] = t
	}
	p.Similarity.DomainThresholds = lowered

	return p, nil
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", p.Driver)
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "agentcache")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/agentcache"
		}
	}

	if p.Driver == "sqlite" && p.DSN == "" {
		if p.Data == "" {
			p.Data = "."
		}
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("agentcache_%s.db", p.Mode))
	}

	if err := p.MatcherConfig("").Validate(); err != nil {
		return errors.Wrap(err, "invalid similarity configuration")
	}
	for domain, t := range p.Similarity.DomainThresholds {
		if err := similarity.ValidateThreshold(t); err != nil {
			return errors.Wrapf(err, "invalid threshold for domain %s", domain)
		}
	}

	return nil
}
