package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"petanco-intake-api/internal/models"
)

// Supported database/sql drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DB persists inbound messages through database/sql.
type DB struct {
	conn   *sql.DB
	driver string
}

// Open connects with the given driver and initializes the schema.
func Open(driver, dsn string) (*DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
	}

	db, err := New(conn, driver)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// New wraps an existing connection. The schema is created if missing.
func New(conn *sql.DB, driver string) (*DB, error) {
	db := &DB{conn: conn, driver: driver}

	if err := db.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS inbound_messages (
			id TEXT PRIMARY KEY,
			channel TEXT NOT NULL,
			subject TEXT NOT NULL,
			from_display TEXT NOT NULL,
			from_name TEXT NOT NULL,
			from_email TEXT NOT NULL,
			fields TEXT NOT NULL,
			body TEXT NOT NULL,
			meta TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_inbound_channel ON inbound_messages(channel)`,
		`CREATE INDEX IF NOT EXISTS idx_inbound_created_at ON inbound_messages(created_at)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// Save inserts the submission and returns its generated id.
func (db *DB) Save(ctx context.Context, sub models.CanonicalSubmission) (string, error) {
	fieldsJSON, err := json.Marshal(sub.Fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	metaJSON, err := json.Marshal(sub.Meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode meta: %w", err)
	}

	id := uuid.NewString()
	query := db.rebind(`INSERT INTO inbound_messages (
		id, channel, subject, from_display, from_name, from_email,
		fields, body, meta, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = db.conn.ExecContext(ctx, query,
		id,
		sub.Channel,
		sub.Subject,
		sub.FromDisplay,
		sub.FromName,
		sub.FromEmail,
		string(fieldsJSON),
		sub.Body,
		string(metaJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert inbound message: %w", err)
	}

	return id, nil
}

// rebind rewrites ? placeholders as $n for Postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
