package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"arbscan/internal/domain/model"
)

// RunContinuous sweeps every configured symbol, reports the top opportunity
// per symbol, then sleeps cfg.Interval and goes again. Cancellation is
// cooperative: the context is checked at loop boundaries, in-flight fetches
// finish first. Errors inside one pass are logged and never stop the loop.
func (s *Scanner) RunContinuous(ctx context.Context, cfg model.ScanConfig) error {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}

	log.Info().
		Strs("symbols", cfg.Symbols).
		Strs("venues", cfg.Venues).
		Dur("interval", cfg.Interval).
		Msg("continuous scan started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("continuous scan stopped")
			return ctx.Err()
		default:
		}

		for _, symbol := range cfg.Symbols {
			opps, err := s.Scan(ctx, symbol, cfg.Venues, cfg)
			if err != nil {
				log.Error().Err(err).Str("symbol", symbol).Msg("scan pass failed")
				continue
			}
			if len(opps) == 0 {
				log.Debug().Str("symbol", symbol).Msg("no opportunities")
				continue
			}

			top := opps[0]
			log.Info().
				Str("symbol", top.Symbol).
				Str("buy", top.BuyVenue).
				Str("sell", top.SellVenue).
				Float64("spread_pct", top.SpreadPercent).
				Float64("net_profit", top.NetProfit).
				Float64("risk", top.RiskScore).
				Float64("confidence", top.Confidence).
				Int("total", len(opps)).
				Msg("opportunity detected")

			s.sink(ctx, opps)
		}

		s.prune(ctx)

		if err := sleepCtx(ctx, cfg.Interval); err != nil {
			log.Info().Msg("continuous scan stopped")
			return err
		}
	}
}

// sink persists and publishes a pass's opportunities. Sink failures are
// logged, not propagated: losing a record must not stop scanning.
func (s *Scanner) sink(ctx context.Context, opps []*model.ArbitrageOpportunity) {
	for _, opp := range opps {
		if s.repo != nil {
			if err := s.repo.SaveOpportunity(ctx, opp); err != nil {
				log.Error().Err(err).Str("id", opp.ID).Msg("save opportunity failed")
			}
		}
		if s.publisher != nil {
			if err := s.publisher.PublishOpportunity(ctx, opp); err != nil {
				log.Error().Err(err).Str("id", opp.ID).Msg("publish opportunity failed")
			}
		}
	}
}

// prune drops persisted opportunities that have aged out of the retention
// window, keeping the repository bounded over long runs.
func (s *Scanner) prune(ctx context.Context) {
	if s.repo == nil {
		return
	}
	cutoff := time.Now().Add(-s.retention).UnixMilli()
	if err := s.repo.DeleteOlderThan(ctx, cutoff); err != nil {
		log.Error().Err(err).Msg("retention prune failed")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
