package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Config holds database configuration.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connection wraps sql.DB.
type Connection struct {
	DB *sql.DB
}

// NewConnection opens a MySQL connection, retrying the initial ping with
// linear backoff so the service survives a database that is still booting.
func NewConnection(cfg Config) (*Connection, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	var database *sql.DB
	var err error

	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		database, err = sql.Open("mysql", dsn)
		if err == nil {
			err = database.Ping()
		}
		if err == nil {
			break
		}
		if i == maxRetries-1 {
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
		}
		time.Sleep(time.Second * time.Duration(i+1))
	}

	if cfg.MaxOpenConns > 0 {
		database.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		database.SetMaxOpenConns(25)
	}
	if cfg.MaxIdleConns > 0 {
		database.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		database.SetMaxIdleConns(5)
	}
	if cfg.ConnMaxLifetime > 0 {
		database.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		database.SetConnMaxLifetime(5 * time.Minute)
	}

	return &Connection{DB: database}, nil
}

// Close closes the database connection.
func (c *Connection) Close() error {
	return c.DB.Close()
}

// Ping verifies the connection is alive.
func (c *Connection) Ping() error {
	return c.DB.Ping()
}
