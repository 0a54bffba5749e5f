// Package sqlite provides a SQLite-backed scoring storage implementation.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sqlitemigrate "github.com/teamtally/teamtally/internal/platform/storage/sqlitemigrate"
	"github.com/teamtally/teamtally/internal/services/scoring/domain/variable"
	"github.com/teamtally/teamtally/internal/services/scoring/storage"
	"github.com/teamtally/teamtally/internal/services/scoring/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists scoring state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// encodeDefaultValue renders a variable default for the default_value column.
// The data_type column decides how it is read back.
func encodeDefaultValue(d variable.Descriptor) string {
	switch d.DataType {
	case variable.DataTypeNumber:
		return strconv.FormatFloat(d.Default.AsNumber(), 'f', -1, 64)
	case variable.DataTypeBoolean:
		return strconv.FormatBool(d.Default.AsBoolean())
	default:
		return d.Default.AsText()
	}
}

func decodeDefaultValue(dataType variable.DataType, raw string) variable.Value {
	switch dataType {
	case variable.DataTypeNumber:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return variable.Number(0)
		}
		return variable.Number(parsed)
	case variable.DataTypeBoolean:
		return variable.Boolean(strings.TrimSpace(raw) == "true")
	default:
		return variable.Text(raw)
	}
}

// Open opens a SQLite scoring store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

var (
	_ storage.TeamStore      = (*Store)(nil)
	_ storage.PlayerStore    = (*Store)(nil)
	_ storage.RuleStore      = (*Store)(nil)
	_ storage.ProfileStore   = (*Store)(nil)
	_ storage.VariableStore  = (*Store)(nil)
	_ storage.MatchStore     = (*Store)(nil)
	_ storage.LedgerStore    = (*Store)(nil)
	_ storage.TelemetryStore = (*Store)(nil)
)
