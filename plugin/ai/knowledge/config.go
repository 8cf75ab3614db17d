package knowledge

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/agentcache/internal/profile"
	"github.com/hrygo/agentcache/plugin/ai/similarity"
)

// Config configures the lookup tiers.
type Config struct {
	Matcher similarity.Config
	// DomainThresholds overrides Matcher.Threshold per lower-cased domain.
	DomainThresholds map[string]float64
	CandidateLimit   int           // records scored by the semantic tier
	CandidateWindow  time.Duration // only records younger than this are scored, 0 = no limit
	VectorLimit      int           // nearest neighbours fetched by the vector tier
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Matcher:         similarity.DefaultConfig(),
		CandidateLimit:  200,
		CandidateWindow: 30 * 24 * time.Hour,
		VectorLimit:     20,
	}
}

// ConfigFromProfile builds the configuration from profile.
func ConfigFromProfile(p *profile.Profile) Config {
	return Config{
		Matcher:          p.MatcherConfig(""),
		DomainThresholds: p.Similarity.DomainThresholds,
		CandidateLimit:   p.Similarity.CandidateLimit,
		CandidateWindow:  p.Similarity.CandidateWindow,
		VectorLimit:      p.Similarity.VectorLimit,
	}
}

// buildMatchers returns the default matcher and one matcher per domain override.
func (c Config) buildMatchers() (*similarity.Matcher, map[string]*similarity.Matcher, error) {
	base, err := similarity.NewMatcher(c.Matcher)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid matcher configuration")
	}

	byDomain := make(map[string]*similarity.Matcher, len(c.DomainThresholds))
	for domain, threshold := range c.DomainThresholds {
		m, err := base.WithThreshold(threshold)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "invalid threshold for domain %s", domain)
		}
		byDomain[normalizeDomain(domain)] = m
	}
	return base, byDomain, nil
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// reservedDomainChars are the cache key separator and the SCAN MATCH glob
// metacharacters. A domain carrying one could address keys of other domains.
const reservedDomainChars = ":*?[]\\"

// checkDomain normalizes domain and rejects empty or reserved values.
func checkDomain(domain string) (string, error) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return "", invalidInput("domain is required")
	}
	if strings.ContainsAny(domain, reservedDomainChars) {
		return "", invalidInput("domain must not contain any of " + reservedDomainChars)
	}
	return domain, nil
}
