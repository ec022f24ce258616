package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"arbscan/internal/application/port"
	"arbscan/internal/domain/model"
	domainservice "arbscan/internal/domain/service"
)

// opportunityRetention bounds how long a scored opportunity stays in the
// scanner's in-memory store before the retention sweep evicts it.
const opportunityRetention = 5 * time.Minute

// Scanner orchestrates cache-first, limiter-guarded quote collection across a
// venue set and turns pairwise spreads into scored opportunities. It owns the
// in-memory opportunity store; repository and publisher are optional sinks.
type Scanner struct {
	gateways  map[string]port.VenueGateway
	cache     port.QuoteCache
	limiter   port.Limiter
	fees      *domainservice.FeeModel
	repo      port.OpportunityRepository
	publisher port.SignalPublisher

	mu            sync.Mutex
	opportunities map[string]*model.ArbitrageOpportunity
	retention     time.Duration
}

// ScannerDeps collects everything a Scanner needs. Repo and Publisher may be
// nil; persistence and publishing are then skipped. Retention <= 0 falls back
// to the default window.
type ScannerDeps struct {
	Gateways  map[string]port.VenueGateway
	Cache     port.QuoteCache
	Limiter   port.Limiter
	Fees      *domainservice.FeeModel
	Repo      port.OpportunityRepository
	Publisher port.SignalPublisher
	Retention time.Duration
}

// NewScanner builds a scanner from explicitly constructed services. There is
// no hidden global state; the caller owns every collaborator.
func NewScanner(deps ScannerDeps) *Scanner {
	retention := deps.Retention
	if retention <= 0 {
		retention = opportunityRetention
	}
	return &Scanner{
		gateways:      deps.Gateways,
		cache:         deps.Cache,
		limiter:       deps.Limiter,
		fees:          deps.Fees,
		repo:          deps.Repo,
		publisher:     deps.Publisher,
		opportunities: make(map[string]*model.ArbitrageOpportunity),
		retention:     retention,
	}
}

// Scan runs one full pass for symbol across venues: fetch, compare, score,
// filter. Venues whose fetch fails are dropped from this pass; a partial scan
// beats a failed one. The result is sorted descending by absolute net profit.
func (s *Scanner) Scan(ctx context.Context, symbol string, venues []string, cfg model.ScanConfig) ([]*model.ArbitrageOpportunity, error) {
	if symbol == "" {
		return nil, fmt.Errorf("scan: symbol is empty")
	}
	if len(venues) < 2 {
		return nil, fmt.Errorf("scan: need at least 2 venues, got %d", len(venues))
	}

	quotes := s.collectQuotes(ctx, symbol, venues)
	if len(quotes) < 2 {
		log.Debug().Str("symbol", symbol).Int("quotes", len(quotes)).Msg("not enough quotes for comparison")
		return nil, nil
	}

	var found []*model.ArbitrageOpportunity
	for _, buy := range quotes {
		for _, sell := range quotes {
			if buy.Venue == sell.Venue {
				continue
			}
			opp := s.evaluatePair(symbol, buy, sell, cfg)
			if opp == nil {
				continue
			}
			if !s.passesThresholds(opp, cfg) {
				continue
			}
			found = append(found, opp)
		}
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].NetProfit > found[j].NetProfit
	})

	s.remember(found)
	return found, nil
}

// collectQuotes resolves each venue's ticker, preferring the cache and
// falling back to a limiter-guarded live fetch. Failed venues are skipped.
func (s *Scanner) collectQuotes(ctx context.Context, symbol string, venues []string) []*model.PriceQuote {
	var quotes []*model.PriceQuote
	var reqs []port.BatchRequest
	var missed []string

	for _, venue := range venues {
		gw, ok := s.gateways[venue]
		if !ok || !gw.SupportsTicker() {
			log.Warn().Str("venue", venue).Msg("venue has no ticker gateway, skipping")
			continue
		}
		if q, ok := s.cache.GetTicker(venue, symbol); ok {
			cached := *q
			cached.FromCache = true
			quotes = append(quotes, &cached)
			continue
		}
		missed = append(missed, venue)
		reqs = append(reqs, port.BatchRequest{
			Venue: venue,
			Op: func(ctx context.Context) (any, error) {
				return gw.FetchTicker(ctx, symbol)
			},
		})
	}

	if len(reqs) == 0 {
		return quotes
	}

	for i, res := range s.limiter.ExecuteBatch(ctx, reqs) {
		venue := missed[i]
		if !res.Success {
			log.Warn().Err(res.Err).Str("venue", venue).Str("symbol", symbol).Msg("ticker fetch failed, dropping venue from scan")
			continue
		}
		t, ok := res.Value.(*port.Ticker)
		if !ok || t == nil {
			continue
		}
		q := &model.PriceQuote{
			Venue:      venue,
			Symbol:     symbol,
			Bid:        t.Bid,
			Ask:        t.Ask,
			Last:       t.Last,
			BaseVolume: t.BaseVolume,
			Timestamp:  t.Timestamp,
		}
		s.cache.SetTicker(venue, symbol, q)
		quotes = append(quotes, q)
	}
	return quotes
}

// evaluatePair scores one ordered (buy, sell) pairing. It returns nil when
// the pairing is not a candidate: negative spread, malformed quotes, missing
// volume, or fees eating the whole spread. Malformed data is "no
// opportunity", never an error.
func (s *Scanner) evaluatePair(symbol string, buy, sell *model.PriceQuote, cfg model.ScanConfig) *model.ArbitrageOpportunity {
	if !buy.Valid() || !sell.Valid() {
		return nil
	}
	if buy.Ask >= sell.Bid {
		return nil
	}
	if buy.BaseVolume <= 0 || sell.BaseVolume <= 0 {
		return nil
	}

	spread := sell.Bid - buy.Ask
	spreadPercent := spread / buy.Ask * 100

	var fees model.FeeBreakdown
	if cfg.IncludeFees {
		fees = s.fees.ArbitrageFees(buy.Venue, sell.Venue, buy.Ask, sell.Bid, cfg.IncludeWithdrawal)
	}
	netProfit := spread - fees.Total
	if netProfit <= 0 {
		return nil
	}

	available := min(buy.BaseVolume, sell.BaseVolume)
	in := domainservice.ScoreInput{
		SpreadPercent:   spreadPercent,
		AvailableVolume: available,
		BuyFromCache:    buy.FromCache,
		SellFromCache:   sell.FromCache,
	}
	risk := domainservice.RiskScore(in)
	recommended := domainservice.RecommendedVolume(available, risk)

	now := time.Now()
	return &model.ArbitrageOpportunity{
		ID:                  fmt.Sprintf("%s_%s_%s_%d_%s", symbol, buy.Venue, sell.Venue, now.UnixMilli(), uuid.NewString()[:8]),
		Symbol:              symbol,
		BuyVenue:            buy.Venue,
		SellVenue:           sell.Venue,
		BuyPrice:            buy.Ask,
		SellPrice:           sell.Bid,
		Spread:              spread,
		SpreadPercent:       spreadPercent,
		Volume:              model.VolumeInfo{Available: available, Recommended: recommended},
		Fees:                fees,
		NetProfit:           netProfit,
		NetProfitPercent:    netProfit / buy.Ask * 100,
		EstimatedProfitUSD:  netProfit * recommended,
		RiskScore:           risk,
		Confidence:          domainservice.Confidence(in, risk),
		EstimatedExecutionS: domainservice.EstimateExecutionSeconds(buy.Venue, sell.Venue),
		ExecutionSteps:      domainservice.ExecutionSteps(symbol, buy.Venue, sell.Venue, buy.Ask, sell.Bid, recommended),
		Warnings:            domainservice.Warnings(in, risk),
		Timestamp:           now.UnixMilli(),
	}
}

func (s *Scanner) passesThresholds(opp *model.ArbitrageOpportunity, cfg model.ScanConfig) bool {
	if opp.NetProfitPercent < cfg.MinProfitPercent {
		return false
	}
	if cfg.MaxRiskScore > 0 && opp.RiskScore > cfg.MaxRiskScore {
		return false
	}
	if opp.Volume.Available < cfg.MinVolume {
		return false
	}
	return true
}

// remember stores the pass's opportunities and sweeps entries older than the
// retention window.
func (s *Scanner) remember(opps []*model.ArbitrageOpportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.retention).UnixMilli()
	for id, opp := range s.opportunities {
		if opp.Timestamp < cutoff {
			delete(s.opportunities, id)
		}
	}
	for _, opp := range opps {
		s.opportunities[opp.ID] = opp
	}
}

// Latest returns the most recent opportunity for symbol, preferring the
// in-memory store and falling back to the repository. A nil result with nil
// error means nothing has been seen within the retention window.
func (s *Scanner) Latest(ctx context.Context, symbol string) (*model.ArbitrageOpportunity, error) {
	s.mu.Lock()
	var latest *model.ArbitrageOpportunity
	for _, opp := range s.opportunities {
		if opp.Symbol != symbol {
			continue
		}
		if latest == nil || opp.Timestamp > latest.Timestamp {
			latest = opp
		}
	}
	s.mu.Unlock()

	if latest != nil {
		return latest, nil
	}
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.GetLatestBySymbol(ctx, symbol)
}

// Opportunities returns the currently retained opportunities, newest first.
func (s *Scanner) Opportunities() []*model.ArbitrageOpportunity {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.ArbitrageOpportunity, 0, len(s.opportunities))
	for _, opp := range s.opportunities {
		out = append(out, opp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}
