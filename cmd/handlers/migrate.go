package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"papertimes/internal/config"
	"papertimes/internal/persistence"
)

// NewMigrateCmd creates the migrate command for database migrations
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage database schema migrations.

Subcommands:
  up       Apply all pending migrations
  status   Show migration status

Applied migrations are tracked in the schema_migrations table. serve and
worker also apply pending migrations on startup.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatus(cmd.Context())
		},
	})

	return cmd
}

func runMigrateUp(ctx context.Context) error {
	db, err := openDatabase(ctx, config.Get())
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := persistence.NewMigrator(db).Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Printf("Applied %d migration(s)\n", n)
	return nil
}

func runMigrateStatus(ctx context.Context) error {
	db, err := openDatabase(ctx, config.Get())
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := persistence.NewMigrator(db).Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	if len(status) == 0 {
		fmt.Println("No migrations found")
		return nil
	}

	fmt.Printf("%-10s %-10s %s\n", "Version", "Status", "Description")
	pending := 0
	for _, m := range status {
		state := "applied"
		if !m.Applied {
			state = "pending"
			pending++
		}
		fmt.Printf("%-10d %-10s %s\n", m.Version, state, m.Description)
	}

	fmt.Printf("\nApplied: %d | Pending: %d | Total: %d\n", len(status)-pending, pending, len(status))
	if pending > 0 {
		fmt.Println("Run 'papertimes migrate up' to apply pending migrations")
	}
	return nil
}
