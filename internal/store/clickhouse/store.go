// Package clickhouse reads and writes candles in a ClickHouse archive table.
// It is the columnar alternative to the SQLite candle store for long
// histories; strategies and runs always stay in SQLite.
package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"trading-backtestv1/internal/model"
)

// Config holds ClickHouse connection settings.
type Config struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" default:"9000"`
	Database        string        `yaml:"database" default:"default"`
	User            string        `yaml:"user" default:"default"`
	Password        string        `yaml:"password"`
	Table           string        `yaml:"table" default:"candles"`
	UseHTTP         bool          `yaml:"use_http"`
	MaxOpenConns    int           `yaml:"max_open_conns" default:"10"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"5m"`
	DialTimeout     time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
}

// Store implements model.CandleReader and model.CandleWriter.
type Store struct {
	db    *sql.DB
	table string
}

// New opens a connection pool, pings the server and ensures the candle
// table exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("clickhouse: host is required")
	}
	if cfg.Table == "" {
		cfg.Table = "candles"
	}

	db, err := sql.Open("clickhouse", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns / 2)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	s := &Store{db: db, table: cfg.Table}
	if err := s.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("clickhouse connected", "host", cfg.Host, "database", cfg.Database, "table", cfg.Table)
	return s, nil
}

// DB returns the underlying pool for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// InitSchema creates the candle table if it does not exist. Re-ingested
// candles replace older rows with the same key on merge.
func (s *Store) InitSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			symbol    LowCardinality(String),
			timeframe LowCardinality(String),
			ts        Int64,
			open      Float64,
			high      Float64,
			low       Float64,
			close     Float64,
			volume    Float64
		) ENGINE = ReplacingMergeTree
		ORDER BY (symbol, timeframe, ts)`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("clickhouse init schema: %w", err)
	}
	return nil
}

// ReadCandles returns candles ordered by time ascending. Zero bounds are open.
func (s *Store) ReadCandles(ctx context.Context, symbol, timeframe string, from, to int64) ([]model.Candle, error) {
	q, args := readQuery(s.table, symbol, timeframe, from, to)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("clickhouse read candles: %w", err)
	}
	defer rows.Close()

	out := make([]model.Candle, 0, 1024)
	for rows.Next() {
		var c model.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("clickhouse scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clickhouse rows: %w", err)
	}
	return out, nil
}

// WriteCandles inserts candles as a single native batch.
func (s *Store) WriteCandles(ctx context.Context, symbol, timeframe string, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clickhouse begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (symbol, timeframe, ts, open, high, low, close, volume)", s.table))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("clickhouse prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, timeframe, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("clickhouse append: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("clickhouse commit: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// readQuery builds the candle range query. FINAL collapses rows that a
// re-ingest has not merged yet.
func readQuery(table, symbol, timeframe string, from, to int64) (string, []any) {
	q := fmt.Sprintf(`SELECT ts, open, high, low, close, volume FROM %s FINAL
		WHERE symbol = ? AND timeframe = ?`, table)
	args := []any{symbol, timeframe}
	if from > 0 {
		q += " AND ts >= ?"
		args = append(args, from)
	}
	if to > 0 {
		q += " AND ts <= ?"
		args = append(args, to)
	}
	return q + " ORDER BY ts ASC", args
}

func buildDSN(cfg Config) string {
	scheme := "clickhouse://"
	if cfg.UseHTTP {
		scheme = "clickhouse+http://"
	}
	dsn := fmt.Sprintf("%s%s:%s@%s:%d/%s", scheme, cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	sep := "?"
	add := func(key string, val any) {
		dsn += fmt.Sprintf("%s%s=%v", sep, key, val)
		sep = "&"
	}
	if cfg.DialTimeout > 0 {
		add("dial_timeout", cfg.DialTimeout)
	}
	if cfg.ReadTimeout > 0 {
		add("read_timeout", cfg.ReadTimeout)
	}
	return dsn
}
