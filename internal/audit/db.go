package audit

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"akamai-analyzer/internal/config"
	"akamai-analyzer/internal/logging"
)

// Open connects to the configured database and migrates the audit table.
// It returns a NopSink when no DSN is configured.
func Open(cfg *config.Config) (Sink, error) {
	if cfg.Database.DSN == "" {
		logging.For("Audit").Info("no database configured, audit disabled")
		return NopSink{}, nil
	}

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.Database.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	logging.For("Audit").WithField("driver", cfg.Database.Driver).Info("database connected and migrated")
	return NewGormSink(db), nil
}
