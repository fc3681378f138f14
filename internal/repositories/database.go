package repositories

import (
	"fmt"
	"time"

	"gemstore/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenDatabase connects to the configured database. driver is "postgres" or
// "sqlite". Driver errors are translated so unique violations surface as
// gorm.ErrDuplicatedKey.
func OpenDatabase(driver, dsn string, logger logrus.FieldLogger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gormLog := gormlogger.New(
		logrusWriter{logger},
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// AutoMigrate creates or updates every table the storefront owns.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Session{}, &models.Product{}, &models.OrderRequest{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

type logrusWriter struct {
	logger logrus.FieldLogger
}

func (w logrusWriter) Printf(format string, args ...interface{}) {
	w.logger.WithField("component", "gorm").Warnf(format, args...)
}
