package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/medrec/medrec/internal/config"
	"github.com/medrec/medrec/internal/platform/db"
	"github.com/medrec/medrec/internal/platform/token"
	"github.com/medrec/medrec/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medrec-server",
		Short: "Medical record services",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(keygenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "serve <service>",
		Short:     "Start one service",
		Long:      "Start one service: " + strings.Join(config.Services, ", ") + ".",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: config.Services,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(args[0])
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the schema of one service",
	}
	cmd.AddCommand(
		migrateSub("up", "Apply pending migrations", migrateUp),
		migrateSub("status", "List applied and pending migrations", migrateStatus),
	)
	return cmd
}

func migrateSub(use, short string, run func(*cobra.Command, *db.Migrator, string) error) *cobra.Command {
	sub := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrator, schema, closeFn, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			return run(cmd, migrator, schema)
		},
	}
	migrateFlags(sub)
	return sub
}

func migrateUp(cmd *cobra.Command, m *db.Migrator, schema string) error {
	n, err := m.Up(commandContext(cmd), schema)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", schema, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: applied %d migration(s)\n", schema, n)
	return nil
}

func migrateStatus(cmd *cobra.Command, m *db.Migrator, schema string) error {
	statuses, err := m.Status(commandContext(cmd), schema)
	if err != nil {
		return fmt.Errorf("status of %s: %w", schema, err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED AT")
	for _, s := range statuses {
		at := "pending"
		if s.AppliedAt != nil {
			at = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", s.Version, s.Name, at)
	}
	return w.Flush()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func migrateFlags(cmd *cobra.Command) {
	cmd.Flags().String("service", "", "Service whose migrations to run")
	cmd.Flags().String("schema", "public", "Target schema for migrations")
	cmd.Flags().String("dir", "", "Read migrations from this root instead of the embedded set; each service has a subdirectory")
	_ = cmd.MarkFlagRequired("service")
}

func openMigrator(cmd *cobra.Command) (*db.Migrator, string, func(), error) {
	service, _ := cmd.Flags().GetString("service")
	schema, _ := cmd.Flags().GetString("schema")
	dir, _ := cmd.Flags().GetString("dir")

	if !config.IsService(service) || !config.NeedsDatabase(service) {
		return nil, "", nil, fmt.Errorf("service %q has no database", service)
	}
	if err := db.ValidateSchema(schema); err != nil {
		return nil, "", nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, "", nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, "", nil, fmt.Errorf("DATABASE_URL is required")
	}

	ctx := commandContext(cmd)
	files, err := migrations.For(service)
	if dir != "" {
		files, err = os.DirFS(filepath.Join(dir, service)), nil
	}
	if err != nil {
		return nil, "", nil, err
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL,
		db.WithConns(2, 0),
		db.WithApplicationName("medrec-migrate-"+service),
	)
	if err != nil {
		return nil, "", nil, err
	}
	return db.NewMigrator(pool, files), schema, pool.Close, nil
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a random hex signing key for TOKEN_SIGNING_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := token.GenerateHexKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}
