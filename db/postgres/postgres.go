package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/lib/pq"
)

type PostgresDB struct {
	Conn *sql.DB
	URL  string

	MaxOpenConns     int
	StatementTimeout time.Duration
}

func NewPostgresDB(databaseURL string, maxOpenConns int, statementTimeout time.Duration) *PostgresDB {
	if maxOpenConns <= 0 {
		maxOpenConns = 5
	}
	return &PostgresDB{URL: databaseURL, MaxOpenConns: maxOpenConns, StatementTimeout: statementTimeout}
}

func (p *PostgresDB) Connect(ctx context.Context) error {
	dsn, err := p.dsn()
	if err != nil {
		return err
	}
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("postgres: open: %w", err)
	}

	// Small pool; the hosted database caps connections per role.
	conn.SetMaxOpenConns(p.MaxOpenConns)
	conn.SetMaxIdleConns(max(1, p.MaxOpenConns/2))
	conn.SetConnMaxLifetime(30 * time.Minute)

	p.Conn = conn
	if err := p.Ping(ctx); err != nil {
		conn.Close()
		p.Conn = nil
		return err
	}
	return nil
}

func (p *PostgresDB) Disconnect() error {
	if p.Conn != nil {
		return p.Conn.Close()
	}
	return nil
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.Conn.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// dsn adds session parameters to the configured URL. lib/pq forwards
// unknown keys to the server as run-time parameters.
func (p *PostgresDB) dsn() (string, error) {
	if p.StatementTimeout <= 0 {
		return p.URL, nil
	}
	u, err := url.Parse(p.URL)
	if err != nil {
		return "", fmt.Errorf("postgres: parse url: %w", err)
	}
	q := u.Query()
	q.Set("statement_timeout", strconv.FormatInt(p.StatementTimeout.Milliseconds(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
