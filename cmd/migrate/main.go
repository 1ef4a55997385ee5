// CLI tool to apply pending database migrations embedded from db/.
// Checks the migrations table to skip already-applied files and wraps each
// migration + record insert in a single transaction.
// Usage: go run ./cmd/migrate [up|status]
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"lg/energy-balance-api/db"
)

func main() {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply database migrations",
		SilenceUsage: true,
		// Bare `migrate` behaves like `migrate up`.
		RunE: func(cmd *cobra.Command, args []string) error { return withConn(cmd.Context(), up) },
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			RunE:  func(cmd *cobra.Command, args []string) error { return withConn(cmd.Context(), up) },
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			RunE:  func(cmd *cobra.Command, args []string) error { return withConn(cmd.Context(), status) },
		},
	)
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// withConn opens a single connection from DB_URL for the duration of fn.
func withConn(ctx context.Context, fn func(context.Context, *pgx.Conn, []string) error) error {
	_ = godotenv.Load()
	conn, err := pgx.Connect(ctx, os.Getenv("DB_URL"))
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	files, err := fs.Glob(db.Migrations, "*.sql")
	if err != nil || len(files) == 0 {
		return fmt.Errorf("no embedded migration files")
	}
	sort.Strings(files)
	return fn(ctx, conn, files)
}

// appliedMigrations reads the migrations table, which may not exist yet.
func appliedMigrations(ctx context.Context, conn *pgx.Conn) map[string]bool {
	applied := make(map[string]bool)
	rows, err := conn.Query(ctx, "SELECT migration FROM migrations")
	if err != nil {
		return applied
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return applied
	}
	for _, name := range names {
		applied[name] = true
	}
	return applied
}

func up(ctx context.Context, conn *pgx.Conn, files []string) error {
	applied := appliedMigrations(ctx, conn)
	ran := 0
	for _, filename := range files {
		if applied[filename] {
			fmt.Printf("  skip: %s\n", filename)
			continue
		}
		content, err := fs.ReadFile(db.Migrations, filename)
		if err != nil {
			return fmt.Errorf("read %s: %w", filename, err)
		}
		err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return fmt.Errorf("run %s: %w", filename, err)
			}
			_, err := tx.Exec(ctx, "INSERT INTO migrations (migration, description) VALUES ($1, $2)",
				filename, descriptionFromFilename(filename))
			if err != nil {
				return fmt.Errorf("record %s: %w", filename, err)
			}
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return err
		}
		fmt.Printf("  applied: %s\n", filename)
		ran++
	}

	if ran == 0 {
		fmt.Println("No pending migrations.")
	} else {
		fmt.Printf("\n%d migration(s) applied.\n", ran)
	}
	return nil
}

func status(ctx context.Context, conn *pgx.Conn, files []string) error {
	applied := appliedMigrations(ctx, conn)
	pending := 0
	for _, filename := range files {
		state := "applied"
		if !applied[filename] {
			state = "pending"
			pending++
		}
		fmt.Printf("  %-8s %s (%s)\n", state, filename, descriptionFromFilename(filename))
	}
	fmt.Printf("\n%d pending.\n", pending)
	return nil
}

var migrationPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-\d{3}-`)

// descriptionFromFilename strips the YYYY-MM-DD-NNN- prefix and .sql suffix.
func descriptionFromFilename(filename string) string {
	name := strings.TrimSuffix(filename, ".sql")
	name = migrationPrefix.ReplaceAllString(name, "")
	return strings.ReplaceAll(name, "-", " ")
}
