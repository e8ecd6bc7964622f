package migrations

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"biasclean/internal"
)

//go:embed sql/*.sql
var embedded embed.FS

// Migrator applies the embedded schema migrations and records each one with
// its checksum in schema_migrations
type Migrator struct {
	db     *sql.DB
	files  fs.FS
	logger *internal.Logger
}

// NewMigrator creates a migrator over the embedded migration files
func NewMigrator(db *sql.DB, logger *internal.Logger) *Migrator {
	if logger == nil {
		logger = internal.NewDiscardLogger()
	}
	return &Migrator{db: db, files: embedded, logger: logger.With("Migrator")}
}

// MigrationFile represents a migration file
type MigrationFile struct {
	Version  string
	Name     string
	SQL      string
	Checksum string
}

// Status is one migration's applied state
type Status struct {
	Version string `json:"version"`
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
}

// ErrChecksumMismatch means an applied migration was edited afterwards
var ErrChecksumMismatch = errors.New("migration checksum mismatch")

const ledgerDDL = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`

// Up executes all pending migrations
func (m *Migrator) Up(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, ledgerDDL); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}
	files, err := LoadFiles(m.files)
	if err != nil {
		return fmt.Errorf("failed to find migration files: %w", err)
	}

	for _, file := range files {
		if checksum, ok := applied[file.Version]; ok {
			if checksum != file.Checksum {
				return fmt.Errorf("%w: %s", ErrChecksumMismatch, file.Version)
			}
			continue
		}
		if err := m.apply(ctx, file); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Version, err)
		}
		m.logger.Info("applied migration %s (%s)", file.Version, file.Name)
	}
	return nil
}

// Status lists every known migration and whether it has been applied
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	if _, err := m.db.ExecContext(ctx, ledgerDDL); err != nil {
		return nil, fmt.Errorf("failed to ensure migrations table: %w", err)
	}
	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	files, err := LoadFiles(m.files)
	if err != nil {
		return nil, err
	}

	out := make([]Status, len(files))
	for i, f := range files {
		_, ok := applied[f.Version]
		out[i] = Status{Version: f.Version, Name: f.Name, Applied: ok}
	}
	return out, nil
}

func (m *Migrator) appliedMigrations(ctx context.Context) (map[string]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, err
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, file MigrationFile) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, file.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)", file.Version, file.Checksum); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}

// LoadFiles reads NNN_name.sql files from fsys, sorted by version
func LoadFiles(fsys fs.FS) ([]MigrationFile, error) {
	var files []MigrationFile
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".sql") {
			return nil
		}

		// 001_mitigation_reports.sql
		parts := strings.SplitN(strings.TrimSuffix(path.Base(p), ".sql"), "_", 2)
		if len(parts) < 2 {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		files = append(files, MigrationFile{
			Version:  parts[0],
			Name:     parts[1],
			SQL:      string(data),
			Checksum: checksum(data),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Version < files[j].Version
	})
	for i := 1; i < len(files); i++ {
		if files[i].Version == files[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %s", files[i].Version)
		}
	}
	return files, nil
}

// Embedded returns the migrations compiled into the binary
func Embedded() ([]MigrationFile, error) {
	return LoadFiles(embedded)
}

func checksum(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
