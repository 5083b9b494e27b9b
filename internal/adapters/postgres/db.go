package postgres

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Settings carries the connection knobs the auth schema is tuned for. Zero
// values fall back to defaults sized for the login/refresh write pattern:
// many short transactions, no long-running queries.
type Settings struct {
	URL             string
	MaxOpenConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.MaxOpenConns <= 0 {
		s.MaxOpenConns = 20
	}
	if s.ConnMaxIdleTime <= 0 {
		s.ConnMaxIdleTime = 15 * time.Minute
	}
	if s.ConnMaxLifetime <= 0 {
		s.ConnMaxLifetime = time.Hour
	}
	if s.PingTimeout <= 0 {
		s.PingTimeout = 5 * time.Second
	}
	return s
}

func pgLogger() *slog.Logger {
	return slog.Default().With(
		"service", "auth-service",
		"module", "postgres",
		"layer", "adapter",
	)
}

// Connect opens the GORM pool for the auth schema and verifies it with a
// bounded ping. PrepareStmt pays off on the hot login/refresh statements;
// TranslateError is required so unique violations on users.email,
// users.document_number and refresh_tokens.token_hash surface as
// gorm.ErrDuplicatedKey for the conflict mapping.
func Connect(ctx context.Context, settings Settings) (*gorm.DB, error) {
	settings = settings.withDefaults()

	db, err := gorm.Open(postgres.Open(settings.URL), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(settings.MaxOpenConns)
	sqlDB.SetMaxIdleConns(settings.MaxOpenConns / 2)
	sqlDB.SetConnMaxIdleTime(settings.ConnMaxIdleTime)
	sqlDB.SetConnMaxLifetime(settings.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, settings.PingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	pgLogger().InfoContext(ctx, "postgres pool ready",
		"operation", "connect",
		"outcome", "success",
		"max_open_conns", settings.MaxOpenConns,
	)
	return db, nil
}

// RunMigrations applies the embedded auth-schema migrations in lexical order.
// Statements are idempotent (IF NOT EXISTS throughout), so re-running the
// full set at every startup is safe and keeps binary and schema in lockstep.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	names, err := migrationNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		raw, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := db.WithContext(ctx).Exec(string(raw)).Error; err != nil {
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
	}

	pgLogger().InfoContext(ctx, "auth schema migrations applied",
		"operation", "run_migrations",
		"outcome", "success",
		"migrations", strings.Join(names, ","),
	)
	return nil
}

func migrationNames() ([]string, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
