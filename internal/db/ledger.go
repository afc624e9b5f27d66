package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gracechapel/outreach-backend/internal/pkg/envutil"
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/types"
)

// LedgerService owns the engine's local database: review flags awaiting
// manual attention and the per-event outcome log. The member data itself
// lives in the remote base, not here.
type LedgerService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLedgerService(log *logger.Logger) (*LedgerService, error) {
	serviceLog := log.With("service", "LedgerService")

	driver := strings.ToLower(envutil.Str("LEDGER_DRIVER", "postgres"))

	var (
		gdb *gorm.DB
		err error
	)
	switch driver {
	case "sqlite":
		path := envutil.Str("LEDGER_SQLITE_PATH", "ledger.db")
		gdb, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
	case "postgres":
		host := envutil.Str("POSTGRES_HOST", "localhost")
		port := envutil.Str("POSTGRES_PORT", "5432")
		user := envutil.Str("POSTGRES_USER", "postgres")
		password := envutil.Str("POSTGRES_PASSWORD", "")
		name := envutil.Str("POSTGRES_NAME", "outreach")
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
		gdb, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unknown LEDGER_DRIVER %q", driver)
	}
	if err != nil {
		serviceLog.Error("failed to connect ledger database", "driver", driver, "error", err)
		return nil, fmt.Errorf("connect ledger database: %w", err)
	}

	return &LedgerService{db: gdb, log: serviceLog}, nil
}

func (s *LedgerService) AutoMigrateAll() error {
	s.log.Info("migrating ledger tables...")
	if err := s.db.AutoMigrate(
		&types.ReviewFlag{},
		&types.EventLog{},
	); err != nil {
		s.log.Error("ledger migration failed", "error", err)
		return fmt.Errorf("ledger automigrate: %w", err)
	}
	return nil
}

func (s *LedgerService) DB() *gorm.DB {
	return s.db
}

// Healthy reports whether the underlying connection still answers.
func (s *LedgerService) Healthy() bool {
	if s == nil || s.db == nil {
		return false
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}
