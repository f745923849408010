package db

import (
	"context"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	schemaPattern    = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	migrationPattern = regexp.MustCompile(`^(\d+)_[^/]+\.sql$`)
)

// ValidateSchema rejects schema names that cannot be safely interpolated into
// SET search_path.
func ValidateSchema(schema string) error {
	if !schemaPattern.MatchString(schema) {
		return fmt.Errorf("invalid schema name %q", schema)
	}
	return nil
}

// Migration is one versioned SQL file, e.g. 001_prescription.sql.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationStatus pairs a known migration with the time it was applied, if
// it has been.
type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// Migrator applies the migrations of a single service to a schema. Applied
// versions are tracked in <schema>._migrations.
type Migrator struct {
	pool  *pgxpool.Pool
	files fs.FS
}

// NewMigrator reads migrations from the root of files.
func NewMigrator(pool *pgxpool.Pool, files fs.FS) *Migrator {
	return &Migrator{pool: pool, files: files}
}

// Load parses every NNN_name.sql file at the root of the migration set and
// returns them by ascending version. Other files are ignored; two files with
// the same version are an error.
func (m *Migrator) Load() ([]Migration, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	seen := make(map[int]string)
	var out []Migration
	for _, entry := range entries {
		match := migrationPattern.FindStringSubmatch(entry.Name())
		if entry.IsDir() || match == nil {
			continue
		}
		version, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", entry.Name(), err)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, entry.Name(), version)
		}
		seen[version] = entry.Name()

		body, err := fs.ReadFile(m.files, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: entry.Name(), SQL: string(body)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Up applies every pending migration to schema, creating the schema first if
// needed, and returns how many ran. Each migration commits on its own so a
// failure leaves the earlier ones in place.
func (m *Migrator) Up(ctx context.Context, schema string) (int, error) {
	pending, err := m.plan(ctx, schema)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, st := range pending {
		if st.Applied {
			continue
		}
		mig := st.migration
		applied, err := m.apply(ctx, schema, mig)
		if err != nil {
			return ran, fmt.Errorf("apply migration %s: %w", mig.Name, err)
		}
		if applied {
			ran++
		}
	}
	return ran, nil
}

// Status reports every known migration for schema, applied or not.
func (m *Migrator) Status(ctx context.Context, schema string) ([]MigrationStatus, error) {
	plan, err := m.plan(ctx, schema)
	if err != nil {
		return nil, err
	}
	out := make([]MigrationStatus, len(plan))
	for i, st := range plan {
		out[i] = st.MigrationStatus
	}
	return out, nil
}

type plannedMigration struct {
	MigrationStatus
	migration Migration
}

func (m *Migrator) plan(ctx context.Context, schema string) ([]plannedMigration, error) {
	if err := ValidateSchema(schema); err != nil {
		return nil, err
	}
	migrations, err := m.Load()
	if err != nil {
		return nil, err
	}
	if err := m.ensureTable(ctx, schema); err != nil {
		return nil, err
	}
	applied, err := m.appliedAt(ctx, schema)
	if err != nil {
		return nil, err
	}
	return merge(migrations, applied), nil
}

func (m *Migrator) ensureTable(ctx context.Context, schema string) error {
	ddl := fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %[1]s;
CREATE TABLE IF NOT EXISTS %[1]s._migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, schema)
	if _, err := m.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("prepare %s._migrations: %w", schema, err)
	}
	return nil
}

func (m *Migrator) appliedAt(ctx context.Context, schema string) (map[int]time.Time, error) {
	rows, err := m.pool.Query(ctx, fmt.Sprintf(`SELECT version, applied_at FROM %s._migrations`, schema))
	if err != nil {
		return nil, fmt.Errorf("list applied migrations in %s: %w", schema, err)
	}
	type row struct {
		Version   int
		AppliedAt time.Time
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByPos[row])
	if err != nil {
		return nil, fmt.Errorf("list applied migrations in %s: %w", schema, err)
	}
	out := make(map[int]time.Time, len(list))
	for _, r := range list {
		out[r.Version] = r.AppliedAt
	}
	return out, nil
}

// apply runs mig under a transaction-scoped advisory lock on the schema, so
// two processes migrating the same schema never run a file twice. It reports
// false when another process applied mig first.
func (m *Migrator) apply(ctx context.Context, schema string, mig Migration) (bool, error) {
	applied := false
	err := pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, schema); err != nil {
			return fmt.Errorf("lock schema: %w", err)
		}

		var done bool
		err := tx.QueryRow(ctx,
			fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s._migrations WHERE version = $1)`, schema),
			mig.Version,
		).Scan(&done)
		if err != nil {
			return fmt.Errorf("check version: %w", err)
		}
		if done {
			return nil
		}

		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL search_path TO %s, public", schema)); err != nil {
			return fmt.Errorf("set search_path: %w", err)
		}
		if strings.TrimSpace(mig.SQL) != "" {
			if _, err := tx.Exec(ctx, mig.SQL); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `INSERT INTO _migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name); err != nil {
			return fmt.Errorf("record version: %w", err)
		}
		applied = true
		return nil
	})
	return applied, err
}

func merge(migrations []Migration, applied map[int]time.Time) []plannedMigration {
	out := make([]plannedMigration, 0, len(migrations))
	for _, mig := range migrations {
		st := plannedMigration{
			MigrationStatus: MigrationStatus{Version: mig.Version, Name: mig.Name},
			migration:       mig,
		}
		if at, ok := applied[mig.Version]; ok {
			st.Applied = true
			st.AppliedAt = &at
		}
		out = append(out, st)
	}
	return out
}
