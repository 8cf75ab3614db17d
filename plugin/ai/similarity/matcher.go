package similarity

// Result is the outcome of comparing two queries.
type Result struct {
	Similarity float64 `json:"similarity"`
	IsMatch    bool    `json:"is_match"`
	Metrics    Metrics `json:"metrics"`
}

// Match is the outcome of FindBestMatch. Record is nil and Index is -1
// when no candidate clears the threshold.
type Match[T any] struct {
	Record     *T
	Index      int
	Similarity float64 // best score seen, even when below threshold
	IsMatch    bool
}

// Matcher scores query pairs with a fixed, validated configuration.
// A Matcher is immutable and safe for concurrent use.
type Matcher struct {
	cfg Config
}

// NewMatcher validates cfg and returns a Matcher.
func NewMatcher(cfg Config) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{cfg: cfg}, nil
}

// Config returns the matcher configuration.
func (m *Matcher) Config() Config {
	return m.cfg
}

// WithThreshold returns a copy of m using threshold.
func (m *Matcher) WithThreshold(threshold float64) (*Matcher, error) {
	cfg := m.cfg
	cfg.Threshold = threshold
	return NewMatcher(cfg)
}

// Compare returns the composite similarity of a and b.
func (m *Matcher) Compare(a, b string) Result {
	return m.compareNormalized(Normalize(a), Normalize(b))
}

func (m *Matcher) compareNormalized(a, b string) Result {
	metrics := computeNormalized(a, b)
	w := m.cfg.Weights
	score := (w.Jaccard*metrics.Jaccard + w.Cosine*metrics.Cosine + w.Levenshtein*metrics.Levenshtein) / w.Sum()
	score = clamp(score)

	return Result{
		Similarity: score,
		IsMatch:    score >= m.cfg.Threshold,
		Metrics:    metrics,
	}
}

// FindBestMatch scores query against the text of every record and returns
// the highest-scoring one if it clears the matcher threshold. All records
// are scanned; on equal scores the earliest record wins.
func FindBestMatch[T any](m *Matcher, query string, records []T, text func(T) string) (*Match[T], error) {
	if m == nil || text == nil {
		return nil, ErrInvalidInput
	}

	normalizedQuery := Normalize(query)
	bestIndex := -1
	bestScore := 0.0
	for i := range records {
		result := m.compareNormalized(normalizedQuery, Normalize(text(records[i])))
		if bestIndex < 0 || result.Similarity > bestScore {
			bestIndex = i
			bestScore = result.Similarity
		}
	}

	if bestIndex < 0 || bestScore < m.cfg.Threshold {
		return &Match[T]{Index: -1, Similarity: bestScore}, nil
	}
	return &Match[T]{
		Record:     &records[bestIndex],
		Index:      bestIndex,
		Similarity: bestScore,
		IsMatch:    true,
	}, nil
}

// Option overrides part of DefaultConfig for CompositeSimilarity.
type Option func(*Config)

// WithThreshold sets the match threshold.
func WithThreshold(threshold float64) Option {
	return func(c *Config) { c.Threshold = threshold }
}

// WithWeights sets the metric weights.
func WithWeights(w Weights) Option {
	return func(c *Config) { c.Weights = w }
}

// CompositeSimilarity compares a and b using DefaultConfig adjusted by opts.
func CompositeSimilarity(a, b string, opts ...Option) (Result, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	m, err := NewMatcher(cfg)
	if err != nil {
		return Result{}, err
	}
	return m.Compare(a, b), nil
}

// BestMatch is FindBestMatch with DefaultConfig and the given threshold.
func BestMatch[T any](query string, records []T, text func(T) string, threshold float64) (*Match[T], error) {
	m, err := NewMatcher(Config{Threshold: threshold, Weights: DefaultWeights()})
	if err != nil {
		return nil, err
	}
	return FindBestMatch(m, query, records, text)
}
