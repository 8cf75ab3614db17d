package store

import (
	"errors"

	"github.com/hrygo/agentcache/internal/profile"
)

// ErrVectorSearchNotSupported is returned by drivers without pgvector.
var ErrVectorSearchNotSupported = errors.New("vector search requires PostgreSQL with pgvector")

// MaxListLimit caps every list query.
const MaxListLimit = 1000

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// SupportsVectorSearch reports whether the driver can serve the vector tier.
func (s *Store) SupportsVectorSearch() bool {
	return s.driver.Type() == "postgres"
}

func (s *Store) Close() error {
	return s.driver.Close()
}
