package store

import (
	"context"
	"embed"
	"log/slog"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Migration files live in store/migration/{driver}/LATEST.sql. Every
// statement is idempotent (IF NOT EXISTS), so Migrate can be re-run safely
// against an initialized database.

//go:embed migration
var migrationFS embed.FS

// LatestSchemaFileName is the name of the full schema file.
const LatestSchemaFileName = "LATEST.sql"

// Migrate applies the latest schema for the current driver.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database initialization")
	}

	statements, err := latestSchema(s.driver.Type())
	if err != nil {
		return err
	}

	for _, stmt := range statements {
		if _, err := s.driver.GetDB().ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute migration statement: %s", firstLine(stmt))
		}
	}

	if !initialized {
		slog.Info("database schema initialized", slog.String("driver", s.driver.Type()))
	}
	return nil
}

// latestSchema returns the statements of LATEST.sql for driver.
func latestSchema(driver string) ([]string, error) {
	buf, err := migrationFS.ReadFile(path.Join("migration", driver, LatestSchemaFileName))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read latest schema for driver %s", driver)
	}
	return splitStatements(string(buf)), nil
}

// splitStatements splits a schema file on statement-terminating semicolons.
func splitStatements(schema string) []string {
	var statements []string
	for _, part := range strings.Split(schema, ";") {
		stmt := strings.TrimSpace(part)
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
