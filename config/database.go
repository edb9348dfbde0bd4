package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const mysqlErrDuplicateEntry = 1062

// DSN builds the MySQL connection string for the warehouse.
func (s *Settings) DSN() string {
	cfg := mysqldriver.NewConfig()
	cfg.User = s.DBUser
	cfg.Passwd = s.DBPassword
	cfg.DBName = s.DBName
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%s", s.DBHost, s.DBPort)
	// Cloud Run + Cloud SQL: when DB_HOST is "/cloudsql/<CONNECTION_NAME>",
	// connect using a Unix domain socket provided by Cloud SQL Auth Proxy.
	if strings.HasPrefix(s.DBHost, "/cloudsql/") {
		cfg.Net = "unix"
		cfg.Addr = s.DBHost
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	// RowsAffected counts matched rows, so an idempotent UPDATE still reports the row.
	cfg.ClientFoundRows = true
	return cfg.FormatDSN()
}

// ConnectDatabaseWithRetry opens the pool and blocks until the database answers.
// The returned handle is owned by the caller and must be closed at shutdown.
func ConnectDatabaseWithRetry(s *Settings) *gorm.DB {
	var attempt int
	for {
		attempt++
		db, err := ConnectDatabase(s)
		if err == nil {
			log.Printf("connected to database (attempt=%d)", attempt)
			return db
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// ConnectDatabase makes a single connection attempt.
func ConnectDatabase(s *Settings) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(s.DSN()), initConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// concurrent report requests queue on the pool
	if s.DBMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(s.DBMaxOpenConns)
	}
	if s.DBMaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(s.DBMaxIdleConns)
	}
	if s.DBConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(s.DBConnMaxLifetime)
	}
	if s.DBConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(s.DBConnMaxIdleTime)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if pluginErr := db.Use(otelgorm.NewPlugin()); pluginErr != nil {
		log.Printf("db connected but failed to install otelgorm plugin: %v", pluginErr)
	}
	return db, nil
}

// CloseDatabase releases the pool.
func CloseDatabase(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil && sqlDB != nil {
		_ = sqlDB.Close()
	}
}

// IsDuplicateKey reports whether err is a MySQL unique constraint violation.
func IsDuplicateKey(err error) bool {
	var me *mysqldriver.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}

func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
	}
}

// InitLog Connection Log Configuration
func initLog() logger.Interface {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // Output to standard output
		logger.Config{
			Colorful:                  false,
			LogLevel:                  logger.Error,
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
		},
	)
	return newLogger
}

func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
