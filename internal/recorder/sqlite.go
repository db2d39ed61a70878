package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shadiayoub/okx-bot/internal/model"
)

// SQLiteRecorder persists trading history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the dashboard can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp        INTEGER NOT NULL,
			symbol           TEXT NOT NULL,
			price            REAL,
			ema_signal       REAL,
			rsi_signal       REAL,
			bollinger_signal REAL,
			macd_signal      REAL,
			volume_signal    REAL,
			momentum_signal  REAL,
			ml_value         REAL,
			ml_confidence    REAL,
			model_version    TEXT,
			score            REAL,
			classification   TEXT,
			noop_reason      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_ts ON signals(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			symbol    TEXT NOT NULL,
			side      TEXT,
			size      REAL,
			price     REAL,
			notional  REAL,
			kind      TEXT,
			status    TEXT,
			detail    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_ts ON orders(timestamp)`,

		`CREATE TABLE IF NOT EXISTS realized_pnl (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			side        TEXT,
			size        REAL,
			entry_price REAL,
			exit_price  REAL,
			pnl         REAL,
			reason      TEXT,
			opened_at   INTEGER,
			closed_at   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pnl_ts ON realized_pnl(timestamp)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			kind      TEXT,
			message   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(timestamp)`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordSignal(rec *SignalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(`INSERT INTO signals (
		timestamp, symbol, price,
		ema_signal, rsi_signal, bollinger_signal, macd_signal, volume_signal, momentum_signal,
		ml_value, ml_confidence, model_version, score, classification, noop_reason
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), rec.Symbol, rec.Price,
		rec.Signals.EMA, rec.Signals.RSI, rec.Signals.Bollinger,
		rec.Signals.MACD, rec.Signals.Volume, rec.Signals.Momentum,
		rec.Prediction.Value, rec.Prediction.Confidence, rec.Prediction.ModelVersion,
		rec.Combined.Score, string(rec.Combined.Class), rec.NoOpReason,
	)
	return err
}

func (r *SQLiteRecorder) RecordOrder(rec *OrderRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(`INSERT INTO orders (
		timestamp, symbol, side, size, price, notional, kind, status, detail
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), rec.Symbol, string(rec.Side), rec.Size, rec.Price,
		rec.Notional, rec.Kind, rec.Status, rec.Detail,
	)
	return err
}

func (r *SQLiteRecorder) RecordPnL(rec *model.RealizedPnL) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(`INSERT INTO realized_pnl (
		timestamp, symbol, side, size, entry_price, exit_price, pnl, reason, opened_at, closed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), rec.Symbol, string(rec.Side), rec.Size,
		rec.EntryPrice, rec.ExitPrice, rec.PnL, rec.Reason,
		rec.OpenedAt.Unix(), rec.ClosedAt.Unix(),
	)
	return err
}

func (r *SQLiteRecorder) RecordAlert(kind, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(`INSERT INTO alerts (timestamp, kind, message) VALUES (?, ?, ?)`,
		time.Now().Unix(), kind, message)
	return err
}

// Close closes the underlying database.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
