package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/scrapify/scrapify-backend/internal/config"
	"github.com/scrapify/scrapify-backend/internal/models"
)

var DB *gorm.DB

// Connect opens the PostgreSQL connection described by cfg and stores it in DB.
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	// For Cloud Run with Cloud SQL
	socketDir := "/cloudsql"

	var dsn string
	if cfg.InstanceConnectionName != "" {
		// Production: Connect via Unix socket
		dsn = fmt.Sprintf("host=%s/%s user=%s password=%s dbname=%s sslmode=disable",
			socketDir, cfg.InstanceConnectionName, cfg.User, cfg.Password, cfg.Name)
		log.Info("connecting to Cloud SQL via socket", zap.String("instance", cfg.InstanceConnectionName))
	} else {
		// Local development: Connect via TCP
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
			cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode)
		log.Info("connecting to PostgreSQL", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
	}

	return Open(dsn, log)
}

// Open connects using a raw DSN. Tests use it with container-provided DSNs.
func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	DB = db
	log.Info("database connected")
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Address{},
		&models.Booking{},
		&models.BookingImage{},
		&models.OTP{},
		&models.OutboxTask{},
	)
}
