package model

import "time"

// FeeProfile holds the static fee schedule of one venue. Rates are fractions
// (0.001 = 0.1%), the withdrawal fee is a flat USD amount.
type FeeProfile struct {
	Venue            string  `json:"venue"`
	MakerRate        float64 `json:"maker_rate"`
	TakerRate        float64 `json:"taker_rate"`
	WithdrawalFeeUSD float64 `json:"withdrawal_fee_usd"`
}

// FeeBreakdown itemizes the round-trip cost of one buy-here/sell-there trade.
type FeeBreakdown struct {
	BuyFee        float64 `json:"buy_fee"`
	SellFee       float64 `json:"sell_fee"`
	WithdrawalFee float64 `json:"withdrawal_fee"`
	Total         float64 `json:"total"`
}

// VolumeInfo pairs what the market offers with what the scanner is willing
// to recommend after risk damping.
type VolumeInfo struct {
	Available   float64 `json:"available"`
	Recommended float64 `json:"recommended"`
}

// ArbitrageOpportunity is one scored cross-venue spread. Identity embeds the
// creation timestamp so the same pairing detected in later iterations yields
// a distinct record.
type ArbitrageOpportunity struct {
	ID                  string       `json:"id"`
	Symbol              string       `json:"symbol"`
	BuyVenue            string       `json:"buy_venue"`
	SellVenue           string       `json:"sell_venue"`
	BuyPrice            float64      `json:"buy_price"`  // buy venue ask
	SellPrice           float64      `json:"sell_price"` // sell venue bid
	Spread              float64      `json:"spread"`     // SellPrice - BuyPrice
	SpreadPercent       float64      `json:"spread_percent"`
	Volume              VolumeInfo   `json:"volume"`
	Fees                FeeBreakdown `json:"fees"`
	NetProfit           float64      `json:"net_profit"` // per unit, after fees
	NetProfitPercent    float64      `json:"net_profit_percent"`
	EstimatedProfitUSD  float64      `json:"estimated_profit_usd"` // NetProfit x recommended volume
	RiskScore           float64      `json:"risk_score"` // 1 (safest) .. 10
	Confidence          float64      `json:"confidence"` // 0 .. 100
	EstimatedExecutionS float64      `json:"estimated_execution_seconds"`
	ExecutionSteps      []string     `json:"execution_steps"`
	Warnings            []string     `json:"warnings,omitempty"`
	Timestamp           int64        `json:"ts_ms"`
}

// ScanConfig carries the caller-supplied thresholds for one scan invocation.
// It is passed by value and never persisted.
type ScanConfig struct {
	MinProfitPercent  float64
	MaxRiskScore      float64
	MinVolume         float64
	IncludeFees       bool
	IncludeWithdrawal bool
	Venues            []string
	Symbols           []string
	Interval          time.Duration
}

// DefaultScanConfig returns permissive thresholds: any positive net profit,
// any risk, any volume, fees included, 5s between continuous passes.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		MinProfitPercent:  0,
		MaxRiskScore:      10,
		MinVolume:         0,
		IncludeFees:       true,
		IncludeWithdrawal: true,
		Interval:          5 * time.Second,
	}
}
