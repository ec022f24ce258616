package service

import (
	"strings"

	"arbscan/internal/domain/model"
)

// defaultProfile is deliberately expensive. An unknown venue must never look
// cheaper than it really is, or the scanner starts reporting phantom profit.
var defaultProfile = model.FeeProfile{
	Venue:            "default",
	MakerRate:        0.002,
	TakerRate:        0.0035,
	WithdrawalFeeUSD: 25,
}

var builtinProfiles = map[string]model.FeeProfile{
	"binance":  {Venue: "binance", MakerRate: 0.001, TakerRate: 0.001, WithdrawalFeeUSD: 15},
	"bybit":    {Venue: "bybit", MakerRate: 0.001, TakerRate: 0.001, WithdrawalFeeUSD: 10},
	"okx":      {Venue: "okx", MakerRate: 0.0008, TakerRate: 0.001, WithdrawalFeeUSD: 5},
	"kraken":   {Venue: "kraken", MakerRate: 0.0016, TakerRate: 0.0026, WithdrawalFeeUSD: 15},
	"coinbase": {Venue: "coinbase", MakerRate: 0.004, TakerRate: 0.006, WithdrawalFeeUSD: 25},
	"kucoin":   {Venue: "kucoin", MakerRate: 0.001, TakerRate: 0.001, WithdrawalFeeUSD: 10},
}

// FeeModel resolves per-venue fee schedules. It is immutable after
// construction and safe for concurrent use.
type FeeModel struct {
	profiles map[string]model.FeeProfile
}

// NewFeeModel builds a fee model from the built-in table with optional
// per-venue overrides layered on top.
func NewFeeModel(overrides map[string]model.FeeProfile) *FeeModel {
	profiles := make(map[string]model.FeeProfile, len(builtinProfiles)+len(overrides))
	for venue, p := range builtinProfiles {
		profiles[venue] = p
	}
	for venue, p := range overrides {
		key := normalizeVenue(venue)
		p.Venue = key
		profiles[key] = p
	}
	return &FeeModel{profiles: profiles}
}

func normalizeVenue(venue string) string {
	return strings.ToLower(strings.TrimSpace(venue))
}

// Profile returns the venue's fee schedule, or the conservative default for
// venues the model does not know.
func (fm *FeeModel) Profile(venue string) model.FeeProfile {
	if p, ok := fm.profiles[normalizeVenue(venue)]; ok {
		return p
	}
	return defaultProfile
}

// TradingFee returns the fee charged on a trade of the given notional value.
func (fm *FeeModel) TradingFee(venue string, notional float64, maker bool) float64 {
	p := fm.Profile(venue)
	if maker {
		return notional * p.MakerRate
	}
	return notional * p.TakerRate
}

// WithdrawalFee returns the flat USD cost of moving funds off the venue.
func (fm *FeeModel) WithdrawalFee(venue string) float64 {
	return fm.Profile(venue).WithdrawalFeeUSD
}

// ArbitrageFees computes the full cost of buying at buyPrice on buyVenue and
// selling at sellPrice on sellVenue. Both legs pay taker rates: arbitrage
// assumes immediate marketable execution, not resting orders. The withdrawal
// fee applies only when the legs sit on different venues and the caller
// opted in.
func (fm *FeeModel) ArbitrageFees(buyVenue, sellVenue string, buyPrice, sellPrice float64, includeWithdrawal bool) model.FeeBreakdown {
	fees := model.FeeBreakdown{
		BuyFee:  fm.TradingFee(buyVenue, buyPrice, false),
		SellFee: fm.TradingFee(sellVenue, sellPrice, false),
	}
	if includeWithdrawal && normalizeVenue(buyVenue) != normalizeVenue(sellVenue) {
		fees.WithdrawalFee = fm.WithdrawalFee(buyVenue)
	}
	fees.Total = fees.BuyFee + fees.SellFee + fees.WithdrawalFee
	return fees
}
