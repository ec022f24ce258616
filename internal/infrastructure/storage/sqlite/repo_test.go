package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"arbscan/internal/domain/model"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := New(filepath.Join(t.TempDir(), "opps.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func sampleOpportunity(id, symbol string, ts int64) *model.ArbitrageOpportunity {
	return &model.ArbitrageOpportunity{
		ID:               id,
		Symbol:           symbol,
		BuyVenue:         "binance",
		SellVenue:        "okx",
		BuyPrice:         101,
		SellPrice:        103,
		Spread:           2,
		SpreadPercent:    1.98,
		Volume:           model.VolumeInfo{Available: 5000, Recommended: 500},
		Fees:             model.FeeBreakdown{BuyFee: 0.101, SellFee: 0.103, Total: 0.204},
		NetProfit:        1.796,
		NetProfitPercent: 1.778,
		RiskScore:        5,
		Confidence:       72,
		ExecutionSteps:   []string{"buy", "transfer", "sell"},
		Warnings:         []string{"one or both quotes served from cache, prices may be stale"},
		Timestamp:        ts,
	}
}

func TestSaveAndGetLatest(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UnixMilli()
	old := sampleOpportunity("opp-1", "BTC/USDT", now-1000)
	latest := sampleOpportunity("opp-2", "BTC/USDT", now)
	other := sampleOpportunity("opp-3", "ETH/USDT", now)

	for _, opp := range []*model.ArbitrageOpportunity{old, latest, other} {
		if err := r.SaveOpportunity(ctx, opp); err != nil {
			t.Fatalf("save %s: %v", opp.ID, err)
		}
	}

	got, err := r.GetLatestBySymbol(ctx, "BTC/USDT")
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if got.ID != "opp-2" {
		t.Errorf("expected newest record opp-2, got %s", got.ID)
	}
	if got.BuyVenue != "binance" || got.SellVenue != "okx" {
		t.Errorf("venue round-trip broken: buy=%s sell=%s", got.BuyVenue, got.SellVenue)
	}
	if got.NetProfit != latest.NetProfit {
		t.Errorf("net profit round-trip: expected %f, got %f", latest.NetProfit, got.NetProfit)
	}
	if len(got.ExecutionSteps) != 3 || len(got.Warnings) != 1 {
		t.Errorf("payload round-trip lost nested fields: steps=%d warnings=%d",
			len(got.ExecutionSteps), len(got.Warnings))
	}
}

func TestGetLatestUnknownSymbol(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.GetLatestBySymbol(context.Background(), "DOGE/USDT")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows for unknown symbol, got %v", err)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UnixMilli()
	if err := r.SaveOpportunity(ctx, sampleOpportunity("stale", "BTC/USDT", now-10_000)); err != nil {
		t.Fatalf("save stale: %v", err)
	}
	if err := r.SaveOpportunity(ctx, sampleOpportunity("fresh", "BTC/USDT", now)); err != nil {
		t.Fatalf("save fresh: %v", err)
	}

	if err := r.DeleteOlderThan(ctx, now-5_000); err != nil {
		t.Fatalf("delete older than: %v", err)
	}

	got, err := r.GetLatestBySymbol(ctx, "BTC/USDT")
	if err != nil {
		t.Fatalf("get latest after delete: %v", err)
	}
	if got.ID != "fresh" {
		t.Errorf("expected fresh record to survive, got %s", got.ID)
	}

	if err := r.DeleteOlderThan(ctx, now+1); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if _, err := r.GetLatestBySymbol(ctx, "BTC/USDT"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected empty table after full delete, got %v", err)
	}
}

func TestDuplicateIDRejected(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	opp := sampleOpportunity("dup", "BTC/USDT", time.Now().UnixMilli())
	if err := r.SaveOpportunity(ctx, opp); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := r.SaveOpportunity(ctx, opp); err == nil {
		t.Error("expected primary key violation on duplicate id")
	}
}
