package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed *.sql
var files embed.FS

// Up applies every *.up.sql file in name order. The scripts are idempotent.
func Up(ctx context.Context, db *pgxpool.Pool) error {
	return apply(ctx, db, "*.up.sql", false)
}

// Down applies every *.down.sql file in reverse name order.
func Down(ctx context.Context, db *pgxpool.Pool) error {
	return apply(ctx, db, "*.down.sql", true)
}

func apply(ctx context.Context, db *pgxpool.Pool, pattern string, reverse bool) error {
	names, err := fs.Glob(files, pattern)
	if err != nil {
		return err
	}
	slices.Sort(names)
	if reverse {
		slices.Reverse(names)
	}

	for _, name := range names {
		script, err := files.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if strings.TrimSpace(string(script)) == "" {
			continue
		}
		// no arguments: pgx sends it over the simple protocol, so multiple statements are fine
		if _, err := db.Exec(ctx, string(script)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
