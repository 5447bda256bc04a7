package database

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/pathclassifier/config"
	"github.com/camden-git/pathclassifier/models"
)

// Options selects and tunes the database connection.
type Options struct {
	Driver   string // config.DriverSQLite or config.DriverMySQL
	Path     string // sqlite file path
	DSN      string // mysql dsn
	LogLevel string // silent, error, warn, info
}

// OptionsFromConfig extracts the database options from the application config.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Driver:   cfg.DatabaseDriver,
		Path:     cfg.DatabasePath,
		DSN:      cfg.DatabaseDSN,
		LogLevel: cfg.DatabaseLogLevel,
	}
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// sqliteDSN enables foreign keys (cascades), WAL and immediate transactions so
// concurrent writers wait on the busy timeout instead of failing a lock upgrade.
func sqliteDSN(path string) string {
	params := "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return "file:" + path + "?" + params
}

// InitGormDB initializes and returns a GORM database instance
func InitGormDB(opts Options) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  parseLogLevel(opts.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var dialector gorm.Dialector
	switch opts.Driver {
	case config.DriverSQLite, "":
		dialector = sqlite.Open(sqliteDSN(opts.Path))
	case config.DriverMySQL:
		dialector = mysql.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		// timestamps are compared as stored values, keep them in one zone
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database using GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Printf("database: GORM %s database initialized", opts.Driver)
	return db, nil
}

// AutoMigrateModels migrates every schema used by the classifier.
func AutoMigrateModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Image{},
		&models.Label{},
		&models.Submission{},
		&models.Score{},
	)
	if err != nil {
		return fmt.Errorf("GORM AutoMigrate failed: %w", err)
	}
	for _, stmt := range caseSensitiveColumns(db.Dialector.Name()) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply binary collation: %w", err)
		}
	}
	log.Println("database: GORM AutoMigrate completed successfully.")
	return nil
}

// caseSensitiveColumns returns the statements that make label text compare byte-wise. The
// default MySQL collations fold case, which would merge "Tumor" and "tumor" into one label.
// sqlite compares with BINARY already.
func caseSensitiveColumns(dialect string) []string {
	if dialect != config.DriverMySQL {
		return nil
	}
	return []string{
		"ALTER TABLE labels MODIFY text VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL",
	}
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
