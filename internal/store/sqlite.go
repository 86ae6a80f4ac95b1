package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/plife507/TRADE-sub002/internal/errors"
	"github.com/plife507/TRADE-sub002/internal/models"
)

// SQLiteStore implements BarStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite-backed bar store at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		idx INTEGER NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, timeframe, idx)
	);

	CREATE INDEX IF NOT EXISTS idx_bars_series ON bars(symbol, timeframe);
	CREATE INDEX IF NOT EXISTS idx_bars_idx ON bars(symbol, timeframe, idx);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveBars upserts bars for a symbol and timeframe in a single transaction.
// Indicator values are not persisted; they are recomputed on replay.
func (s *SQLiteStore) SaveBars(ctx context.Context, symbol, timeframe string, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, timeframe, idx, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx, symbol, timeframe, b.Idx, b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return fmt.Errorf("failed to insert bar %d: %w", b.Idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LoadBars retrieves all bars for a symbol and timeframe in index order.
// Returns a DataError wrapping ErrDataNotFound when the series is empty.
func (s *SQLiteStore) LoadBars(ctx context.Context, symbol, timeframe string) ([]models.Bar, error) {
	bars, err := s.queryBars(ctx, `
		SELECT idx, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND timeframe = ?
		ORDER BY idx ASC
	`, symbol, timeframe)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, errors.NewDataError("bars", symbol, fmt.Sprintf("no bars for timeframe %s", timeframe), errors.ErrDataNotFound)
	}
	return bars, nil
}

// LoadBarRange retrieves bars with fromIdx <= idx <= toIdx in index order.
func (s *SQLiteStore) LoadBarRange(ctx context.Context, symbol, timeframe string, fromIdx, toIdx int) ([]models.Bar, error) {
	if toIdx < fromIdx {
		return nil, errors.NewDataError("bars", symbol, fmt.Sprintf("invalid range [%d, %d]", fromIdx, toIdx), nil)
	}
	return s.queryBars(ctx, `
		SELECT idx, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND timeframe = ? AND idx >= ? AND idx <= ?
		ORDER BY idx ASC
	`, symbol, timeframe, fromIdx, toIdx)
}

func (s *SQLiteStore) queryBars(ctx context.Context, query string, args ...interface{}) ([]models.Bar, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Idx, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bars: %w", err)
	}

	return bars, nil
}

// BarCount returns the number of stored bars for a symbol and timeframe.
func (s *SQLiteStore) BarCount(ctx context.Context, symbol, timeframe string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bars WHERE symbol = ? AND timeframe = ?
	`, symbol, timeframe).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bars: %w", err)
	}
	return count, nil
}

// ListSeries returns every stored symbol+timeframe series with its bar count.
func (s *SQLiteStore) ListSeries(ctx context.Context) ([]Series, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, timeframe, COUNT(*)
		FROM bars
		GROUP BY symbol, timeframe
		ORDER BY symbol, timeframe
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	defer rows.Close()

	var series []Series
	for rows.Next() {
		var sr Series
		if err := rows.Scan(&sr.Symbol, &sr.Timeframe, &sr.Bars); err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		series = append(series, sr)
	}

	return series, rows.Err()
}
