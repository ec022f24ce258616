package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"arbscan/internal/application/port"
	"arbscan/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS opportunities (
  id TEXT PRIMARY KEY,
  symbol TEXT NOT NULL,
  buy_venue TEXT NOT NULL,
  sell_venue TEXT NOT NULL,
  buy_price REAL NOT NULL,
  sell_price REAL NOT NULL,
  spread REAL NOT NULL,
  spread_percent REAL NOT NULL,
  net_profit REAL NOT NULL,
  net_profit_percent REAL NOT NULL,
  risk_score REAL NOT NULL,
  confidence REAL NOT NULL,
  available_volume REAL NOT NULL,
  recommended_volume REAL NOT NULL,
  payload TEXT NOT NULL,
  ts_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opps_symbol ON opportunities(symbol);
CREATE INDEX IF NOT EXISTS idx_opps_ts ON opportunities(ts_ms);
`)
	return err
}

func (r *Repo) SaveOpportunity(ctx context.Context, opp *model.ArbitrageOpportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO opportunities(
			id, symbol, buy_venue, sell_venue, buy_price, sell_price,
			spread, spread_percent, net_profit, net_profit_percent,
			risk_score, confidence, available_volume, recommended_volume,
			payload, ts_ms, created_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, opp.ID, opp.Symbol, opp.BuyVenue, opp.SellVenue, opp.BuyPrice, opp.SellPrice,
		opp.Spread, opp.SpreadPercent, opp.NetProfit, opp.NetProfitPercent,
		opp.RiskScore, opp.Confidence, opp.Volume.Available, opp.Volume.Recommended,
		string(payload), opp.Timestamp, time.Now().UnixMilli())
	return err
}

func (r *Repo) GetLatestBySymbol(ctx context.Context, symbol string) (*model.ArbitrageOpportunity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT payload FROM opportunities
		WHERE symbol = ?
		ORDER BY ts_ms DESC
		LIMIT 1
	`, symbol)

	var payload string
	if err := row.Scan(&payload); err != nil {
		return nil, err
	}
	var opp model.ArbitrageOpportunity
	if err := json.Unmarshal([]byte(payload), &opp); err != nil {
		return nil, err
	}
	return &opp, nil
}

func (r *Repo) DeleteOlderThan(ctx context.Context, beforeMs int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM opportunities WHERE ts_ms < ?`, beforeMs)
	return err
}

var _ port.OpportunityRepository = (*Repo)(nil)
