package db

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lab-allocation-backend/config"
	"lab-allocation-backend/internal/model"
)

// Init opens the configured database, applies the connection pool settings and runs migrations.
func Init(cfg *config.DatabaseConfig, log *logrus.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Info("running database migrations")
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.Driver == "postgres" {
		log.Info("applying postgres check constraints")
		if err := applyPostgresConstraints(db); err != nil {
			log.WithError(err).Warn("failed to apply some check constraints, continuing without them")
		}
	}

	log.Info("database initialization complete")
	return db, nil
}

// Dialector picks the gorm driver for a configured driver name.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Migrate creates or updates the tables the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.System{},
		&model.Request{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

// applyPostgresConstraints mirrors the model invariants as CHECK constraints so that
// writes from outside the service cannot break them either.
func applyPostgresConstraints(db *gorm.DB) error {
	constraints := []struct{ table, name, check string }{
		{
			table: "systems",
			name:  "systems_status_valid",
			check: "status IN ('available', 'occupied', 'reserved', 'maintenance')",
		},
		{
			table: "systems",
			name:  "systems_assignment_matches_status",
			check: "(status IN ('occupied', 'reserved')) = (assigned_login_id IS NOT NULL)",
		},
		{
			table: "requests",
			name:  "requests_window_valid",
			check: "end_time > start_time",
		},
		{
			table: "requests",
			name:  "requests_status_valid",
			check: "status IN ('pending', 'approved', 'rejected', 'cancelled')",
		},
	}

	for _, c := range constraints {
		ddl := fmt.Sprintf(
			"DO $$ BEGIN ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s); "+
				"EXCEPTION WHEN duplicate_object THEN NULL; END $$;",
			c.table, c.name, c.check)
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", c.name, err)
		}
	}
	return nil
}
