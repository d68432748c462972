package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "optionflow/internal/errors"
	"optionflow/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
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

// initSchema creates all required tables and indexes.
// All timestamps are UTC epoch seconds.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Raw last-traded-price observations
	CREATE TABLE IF NOT EXISTS ticks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		ts INTEGER NOT NULL,
		ltp REAL NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 0
	);

	-- Full quote snapshots from the vendor stream
	CREATE TABLE IF NOT EXISTS quote_ticks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		ts INTEGER NOT NULL,
		ltp REAL NOT NULL,
		open REAL,
		high REAL,
		low REAL,
		close REAL,
		volume INTEGER,
		change REAL,
		change_percent REAL
	);

	-- Order book depth, levels stored as JSON arrays
	CREATE TABLE IF NOT EXISTS depth_ticks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		ts INTEGER NOT NULL,
		bids TEXT NOT NULL,
		asks TEXT NOT NULL
	);

	-- Spot quotes persisted alongside each option-chain fetch
	CREATE TABLE IF NOT EXISTS underlying_quotes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		exchange TEXT NOT NULL,
		ts INTEGER NOT NULL,
		ltp REAL NOT NULL,
		open REAL,
		high REAL,
		low REAL,
		close REAL,
		volume INTEGER,
		oi INTEGER
	);

	-- Per-contract option quotes, append-only; latest row per
	-- (strike, option_type) is the current OI view
	CREATE TABLE IF NOT EXISTS option_oi (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		underlying TEXT NOT NULL,
		exchange TEXT NOT NULL,
		expiry TEXT NOT NULL,
		strike REAL NOT NULL,
		option_type TEXT NOT NULL,
		ts INTEGER NOT NULL,
		oi INTEGER NOT NULL,
		oi_change INTEGER NOT NULL DEFAULT 0,
		volume INTEGER NOT NULL DEFAULT 0,
		ltp REAL NOT NULL DEFAULT 0,
		bid REAL NOT NULL DEFAULT 0,
		ask REAL NOT NULL DEFAULT 0,
		iv REAL NOT NULL DEFAULT 0
	);

	-- One row per contract per exchange-local day; oi_start and oi_end
	-- are written by separate upserts and must not clobber each other
	CREATE TABLE IF NOT EXISTS oi_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		underlying TEXT NOT NULL,
		exchange TEXT NOT NULL,
		expiry TEXT NOT NULL,
		strike REAL NOT NULL,
		option_type TEXT NOT NULL,
		oi_start INTEGER NOT NULL DEFAULT 0,
		oi_end INTEGER NOT NULL DEFAULT 0,
		UNIQUE(date, underlying, exchange, expiry, strike, option_type)
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_ticks_symbol_ts ON ticks(symbol, ts);
	CREATE INDEX IF NOT EXISTS idx_quote_ticks_symbol_ts ON quote_ticks(symbol, ts);
	CREATE INDEX IF NOT EXISTS idx_depth_ticks_symbol_ts ON depth_ticks(symbol, ts);
	CREATE INDEX IF NOT EXISTS idx_underlying_quotes_symbol_ts ON underlying_quotes(symbol, ts);
	CREATE INDEX IF NOT EXISTS idx_option_oi_key ON option_oi(underlying, expiry, exchange, strike, option_type);
	CREATE INDEX IF NOT EXISTS idx_option_oi_ts ON option_oi(ts);
	CREATE INDEX IF NOT EXISTS idx_oi_snapshots_key ON oi_snapshots(underlying, expiry, exchange, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func validateTick(t models.Tick) error {
	if t.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", apperrors.ErrMalformedRecord)
	}
	if t.LTP <= 0 || math.IsNaN(t.LTP) || math.IsInf(t.LTP, 0) {
		return fmt.Errorf("%w: bad price %v for %s", apperrors.ErrMalformedRecord, t.LTP, t.Symbol)
	}
	return nil
}

// ============================================================================
// Tick Methods
// ============================================================================

// InsertTick persists a single trade tick. Malformed records are rejected.
func (s *SQLiteStore) InsertTick(ctx context.Context, tick models.Tick) error {
	if err := validateTick(tick); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ticks (symbol, ts, ltp, quantity) VALUES (?, ?, ?, ?)
	`, tick.Symbol, tick.Timestamp.UTC().Unix(), tick.LTP, tick.Quantity)
	if err != nil {
		return fmt.Errorf("failed to insert tick: %w", err)
	}
	return nil
}

// InsertTicks persists a batch of ticks in one transaction.
func (s *SQLiteStore) InsertTicks(ctx context.Context, ticks []models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	for _, t := range ticks {
		if err := validateTick(t); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ticks (symbol, ts, ltp, quantity) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range ticks {
		if _, err := stmt.ExecContext(ctx, t.Symbol, t.Timestamp.UTC().Unix(), t.LTP, t.Quantity); err != nil {
			return fmt.Errorf("failed to insert tick: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// InsertQuoteTick persists a full quote snapshot.
func (s *SQLiteStore) InsertQuoteTick(ctx context.Context, tick models.QuoteTick) error {
	if tick.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", apperrors.ErrMalformedRecord)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quote_ticks (symbol, ts, ltp, open, high, low, close, volume, change, change_percent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, tick.Symbol, tick.Timestamp.UTC().Unix(), tick.LTP, tick.Open, tick.High, tick.Low, tick.Close, tick.Volume, tick.Change, tick.ChangePercent)
	if err != nil {
		return fmt.Errorf("failed to insert quote tick: %w", err)
	}
	return nil
}

// InsertDepthTick persists an order-book depth snapshot.
func (s *SQLiteStore) InsertDepthTick(ctx context.Context, tick models.DepthTick) error {
	if tick.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", apperrors.ErrMalformedRecord)
	}

	bids, _ := json.Marshal(tick.Bids)
	asks, _ := json.Marshal(tick.Asks)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO depth_ticks (symbol, ts, bids, asks) VALUES (?, ?, ?, ?)
	`, tick.Symbol, tick.Timestamp.UTC().Unix(), string(bids), string(asks))
	if err != nil {
		return fmt.Errorf("failed to insert depth tick: %w", err)
	}
	return nil
}

// ActiveSymbols returns distinct symbols with at least one tick since the
// given time.
func (s *SQLiteStore) ActiveSymbols(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT symbol FROM ticks WHERE ts >= ? ORDER BY symbol ASC
	`, since.UTC().Unix())
	if err != nil {
		return nil, apperrors.NewDataError("active_symbols", "", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

// TicksBetween returns ticks for symbol with start <= ts < end, ascending.
func (s *SQLiteStore) TicksBetween(ctx context.Context, symbol string, start, end time.Time) ([]models.Tick, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, ts, ltp, quantity
		FROM ticks
		WHERE symbol = ? AND ts >= ? AND ts < ?
		ORDER BY ts ASC, id ASC
	`, symbol, start.UTC().Unix(), end.UTC().Unix())
	if err != nil {
		return nil, apperrors.NewDataError("ticks_between", symbol, err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

// TicksForAggregation returns up to limit most-recent priced ticks for
// symbol, replayed in ascending order. Rows with a null or non-positive
// price are excluded.
func (s *SQLiteStore) TicksForAggregation(ctx context.Context, symbol string, limit int) ([]models.Tick, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, ts, ltp, quantity FROM (
			SELECT id, symbol, ts, ltp, quantity
			FROM ticks
			WHERE symbol = ? AND ltp IS NOT NULL AND ltp > 0
			ORDER BY ts DESC, id DESC
			LIMIT ?
		) ORDER BY ts ASC, id ASC
	`, symbol, limit)
	if err != nil {
		return nil, apperrors.NewDataError("ticks_for_aggregation", symbol, err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

// LatestTicks returns up to limit most-recent ticks for symbol in ascending
// order, with no price filter.
func (s *SQLiteStore) LatestTicks(ctx context.Context, symbol string, limit int) ([]models.Tick, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, ts, ltp, quantity FROM (
			SELECT id, symbol, ts, ltp, quantity
			FROM ticks
			WHERE symbol = ?
			ORDER BY ts DESC, id DESC
			LIMIT ?
		) ORDER BY ts ASC, id ASC
	`, symbol, limit)
	if err != nil {
		return nil, apperrors.NewDataError("latest_ticks", symbol, err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

func scanTicks(rows *sql.Rows) ([]models.Tick, error) {
	var ticks []models.Tick
	for rows.Next() {
		var t models.Tick
		var ts int64
		if err := rows.Scan(&t.Symbol, &ts, &t.LTP, &t.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan tick: %w", err)
		}
		t.Timestamp = time.Unix(ts, 0).UTC()
		ticks = append(ticks, t)
	}
	return ticks, rows.Err()
}

// ============================================================================
// Open Interest Methods
// ============================================================================

// InsertOptionQuote appends one observed option quote.
func (s *SQLiteStore) InsertOptionQuote(ctx context.Context, quote models.OptionQuote) error {
	if quote.Underlying == "" || quote.Expiry == "" {
		return fmt.Errorf("%w: missing underlying or expiry", apperrors.ErrMalformedRecord)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO option_oi (underlying, exchange, expiry, strike, option_type, ts, oi, oi_change, volume, ltp, bid, ask, iv)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, quote.Underlying, quote.Exchange, quote.Expiry, quote.Strike, quote.Type,
		quote.Timestamp.UTC().Unix(), quote.OI, quote.OIChange, quote.Volume,
		quote.LTP, quote.Bid, quote.Ask, quote.IV)
	if err != nil {
		return fmt.Errorf("failed to insert option quote: %w", err)
	}
	return nil
}

// InsertUnderlyingQuote persists the spot quote observed during a chain fetch.
func (s *SQLiteStore) InsertUnderlyingQuote(ctx context.Context, quote models.Quote) error {
	if quote.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", apperrors.ErrMalformedRecord)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO underlying_quotes (symbol, exchange, ts, ltp, open, high, low, close, volume, oi)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, quote.Symbol, quote.Exchange, quote.Timestamp.UTC().Unix(), quote.LTP,
		quote.Open, quote.High, quote.Low, quote.Close, quote.Volume, quote.OI)
	if err != nil {
		return fmt.Errorf("failed to insert underlying quote: %w", err)
	}
	return nil
}

// LatestOI returns the most recent option quote per (strike, type) for one
// underlying/expiry/exchange.
func (s *SQLiteStore) LatestOI(ctx context.Context, underlying, expiry string, exchange models.Exchange) (map[models.OptionKey]models.OptionQuote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.underlying, o.exchange, o.expiry, o.strike, o.option_type, o.ts, o.oi, o.oi_change, o.volume, o.ltp, o.bid, o.ask, o.iv
		FROM option_oi o
		JOIN (
			SELECT strike, option_type, MAX(ts) AS max_ts
			FROM option_oi
			WHERE underlying = ? AND expiry = ? AND exchange = ?
			GROUP BY strike, option_type
		) latest ON o.strike = latest.strike AND o.option_type = latest.option_type AND o.ts = latest.max_ts
		WHERE o.underlying = ? AND o.expiry = ? AND o.exchange = ?
	`, underlying, expiry, exchange, underlying, expiry, exchange)
	if err != nil {
		return nil, apperrors.NewDataError("latest_oi", underlying, err)
	}
	defer rows.Close()

	result := make(map[models.OptionKey]models.OptionQuote)
	for rows.Next() {
		var q models.OptionQuote
		var ts int64
		if err := rows.Scan(&q.Underlying, &q.Exchange, &q.Expiry, &q.Strike, &q.Type, &ts,
			&q.OI, &q.OIChange, &q.Volume, &q.LTP, &q.Bid, &q.Ask, &q.IV); err != nil {
			return nil, fmt.Errorf("failed to scan option quote: %w", err)
		}
		q.Timestamp = time.Unix(ts, 0).UTC()
		result[models.OptionKey{Strike: q.Strike, Type: q.Type}] = q
	}

	return result, rows.Err()
}

// SaveStartSnapshots upserts the start-of-day OI column for each contract.
// Re-writes within the same day overwrite oi_start and leave oi_end alone.
func (s *SQLiteStore) SaveStartSnapshots(ctx context.Context, date, underlying, expiry string, exchange models.Exchange, oi map[models.OptionKey]int64) error {
	return s.saveSnapshots(ctx, date, underlying, expiry, exchange, oi, true)
}

// SaveEndSnapshots upserts the end-of-day OI column, preserving oi_start.
func (s *SQLiteStore) SaveEndSnapshots(ctx context.Context, date, underlying, expiry string, exchange models.Exchange, oi map[models.OptionKey]int64) error {
	return s.saveSnapshots(ctx, date, underlying, expiry, exchange, oi, false)
}

func (s *SQLiteStore) saveSnapshots(ctx context.Context, date, underlying, expiry string, exchange models.Exchange, oi map[models.OptionKey]int64, start bool) error {
	if len(oi) == 0 {
		return nil
	}

	query := `
		INSERT INTO oi_snapshots (date, underlying, exchange, expiry, strike, option_type, oi_start)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, underlying, exchange, expiry, strike, option_type)
		DO UPDATE SET oi_start = excluded.oi_start
	`
	if !start {
		query = `
		INSERT INTO oi_snapshots (date, underlying, exchange, expiry, strike, option_type, oi_end)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, underlying, exchange, expiry, strike, option_type)
		DO UPDATE SET oi_end = excluded.oi_end
	`
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for key, value := range oi {
		if _, err := stmt.ExecContext(ctx, date, underlying, exchange, expiry, key.Strike, key.Type, value); err != nil {
			return fmt.Errorf("failed to upsert snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Snapshots returns the snapshot rows for one day and chain key.
func (s *SQLiteStore) Snapshots(ctx context.Context, date, underlying, expiry string, exchange models.Exchange) (map[models.OptionKey]models.OISnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, underlying, exchange, expiry, strike, option_type, oi_start, oi_end
		FROM oi_snapshots
		WHERE date = ? AND underlying = ? AND expiry = ? AND exchange = ?
	`, date, underlying, expiry, exchange)
	if err != nil {
		return nil, apperrors.NewDataError("snapshots", underlying, err)
	}
	defer rows.Close()

	result := make(map[models.OptionKey]models.OISnapshot)
	for rows.Next() {
		var snap models.OISnapshot
		if err := rows.Scan(&snap.Date, &snap.Underlying, &snap.Exchange, &snap.Expiry,
			&snap.Strike, &snap.Type, &snap.OIStart, &snap.OIEnd); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		result[models.OptionKey{Strike: snap.Strike, Type: snap.Type}] = snap
	}

	return result, rows.Err()
}

// LastSnapshotDateBefore returns the most recent snapshot date strictly
// before date for the chain key, or "" if none exists.
func (s *SQLiteStore) LastSnapshotDateBefore(ctx context.Context, date, underlying, expiry string, exchange models.Exchange) (string, error) {
	var prev sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(date) FROM oi_snapshots
		WHERE date < ? AND underlying = ? AND expiry = ? AND exchange = ?
	`, date, underlying, expiry, exchange).Scan(&prev)
	if err != nil && err != sql.ErrNoRows {
		return "", apperrors.NewDataError("last_snapshot_date", underlying, err)
	}
	if !prev.Valid {
		return "", nil
	}
	return prev.String, nil
}
