// Package migrations embeds the SQL schema and applies it in file name order.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Apply executes every embedded migration in order. The scripts are written
// to be idempotent so Apply can run on every start.
func Apply(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	entries, err := files.ReadDir(".")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		script, err := files.ReadFile(entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		if _, err := db.ExecContext(ctx, string(script)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", entry.Name(), err)
		}

		logger.Info("Migration applied", "file", entry.Name())
	}

	return nil
}
