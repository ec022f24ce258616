package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/jackc/pgx/v5/stdlib"

	"arbscan/internal/application/port"
	"arbscan/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

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
  net_profit DOUBLE PRECISION NOT NULL,
  risk_score DOUBLE PRECISION NOT NULL,
  payload JSONB NOT NULL,
  ts_ms BIGINT NOT NULL
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
		INSERT INTO opportunities(id, symbol, buy_venue, sell_venue, net_profit, risk_score, payload, ts_ms)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, opp.ID, opp.Symbol, opp.BuyVenue, opp.SellVenue, opp.NetProfit, opp.RiskScore, payload, opp.Timestamp)
	return err
}

func (r *Repo) GetLatestBySymbol(ctx context.Context, symbol string) (*model.ArbitrageOpportunity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT payload FROM opportunities
		WHERE symbol = $1
		ORDER BY ts_ms DESC
		LIMIT 1
	`, symbol)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		return nil, err
	}
	var opp model.ArbitrageOpportunity
	if err := json.Unmarshal(payload, &opp); err != nil {
		return nil, err
	}
	return &opp, nil
}

func (r *Repo) DeleteOlderThan(ctx context.Context, beforeMs int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM opportunities WHERE ts_ms < $1`, beforeMs)
	return err
}

var _ port.OpportunityRepository = (*Repo)(nil)
