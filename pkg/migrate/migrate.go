package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is relative to the repository root.
const DefaultDir = "pkg/migrate/migrations"

const (
	CmdUp     = "up"
	CmdDown   = "down"
	CmdStatus = "status"
)

// Run applies one goose command against a Postgres database and returns a
// line per migration it touched or inspected.
func Run(ctx context.Context, db *sql.DB, dir, command string) ([]string, error) {
	switch command {
	case CmdUp, CmdDown, CmdStatus:
	default:
		return nil, fmt.Errorf("unknown migrate command %q", command)
	}
	provider, err := newProvider(db, dir)
	if err != nil {
		return nil, err
	}

	switch command {
	case CmdUp:
		results, err := provider.Up(ctx)
		return describeResults(results), wrapGoose(command, err)
	case CmdDown:
		result, err := provider.Down(ctx)
		if result == nil {
			return nil, wrapGoose(command, err)
		}
		return describeResults([]*goose.MigrationResult{result}), wrapGoose(command, err)
	default:
		statuses, err := provider.Status(ctx)
		if err != nil {
			return nil, wrapGoose(command, err)
		}
		lines := make([]string, 0, len(statuses))
		for _, st := range statuses {
			line := fmt.Sprintf("%-8s %s", st.State, filepath.Base(st.Source.Path))
			if !st.AppliedAt.IsZero() {
				line += " at " + st.AppliedAt.UTC().Format(time.RFC3339)
			}
			lines = append(lines, line)
		}
		return lines, nil
	}
}

// MigrateToVersion moves the schema up or down until target is the newest
// applied version.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir, target string) ([]string, error) {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil || len(target) != len(versionLayout) {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", target)
	}
	provider, err := newProvider(db, dir)
	if err != nil {
		return nil, err
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("read db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == version:
		return nil, nil
	case current < version:
		results, err = provider.UpTo(ctx, version)
	default:
		results, err = provider.DownTo(ctx, version)
	}
	return describeResults(results), wrapGoose("to "+target, err)
}

func newProvider(db *sql.DB, dir string) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("load migrations from %q: %w", dir, err)
	}
	return provider, nil
}

func describeResults(results []*goose.MigrationResult) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("%-4s %s (%s)", r.Direction, filepath.Base(r.Source.Path), r.Duration.Round(time.Millisecond)))
	}
	return lines
}

func wrapGoose(command string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", command, err)
}
