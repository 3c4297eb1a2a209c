package gate

import (
	"fmt"
	"math"
	"strings"

	"dealflow/internal/config"
	"dealflow/internal/domain"
)

// Gatekeeper decides whether a lead is worth pursuing. Evaluation is pure:
// same inputs, same result, no I/O.
type Gatekeeper struct {
	MinOrder        float64
	MinMarginPct    float64
	PlatformFeePct  float64
	PlatformFees    map[string]float64
	LaborBaselines  map[domain.Complexity]float64
	LaborCostFactor float64
	SuggestMarkup   float64
	SuggestRound    float64
}

// Result carries the verdict and the numbers behind it.
type Result struct {
	Verdict        domain.Verdict `json:"verdict"`
	MarginPct      float64        `json:"margin_pct"`
	NetProfit      float64        `json:"net_profit"`
	PlatformFee    float64        `json:"platform_fee"`
	SuggestedPrice float64        `json:"suggested_price,omitempty"`
	Reason         string         `json:"reason"`
}

// New builds a Gatekeeper from config.
func New(cfg *config.Config) Gatekeeper {
	baselines := make(map[domain.Complexity]float64, len(cfg.Gate.LaborBaselines))
	for level, hours := range cfg.Gate.LaborBaselines {
		baselines[domain.Complexity(level)] = hours
	}
	return Gatekeeper{
		MinOrder:        cfg.Gate.MinOrder,
		MinMarginPct:    cfg.Gate.MinMarginPct,
		PlatformFeePct:  cfg.Gate.PlatformFeePct,
		PlatformFees:    cfg.Gate.PlatformFees,
		LaborBaselines:  baselines,
		LaborCostFactor: cfg.Gate.LaborCostFactor,
		SuggestMarkup:   cfg.Gate.SuggestMarkup,
		SuggestRound:    cfg.Gate.SuggestRound,
	}
}

func (g Gatekeeper) feeRate(platform string) float64 {
	if rate, ok := g.PlatformFees[strings.ToLower(strings.TrimSpace(platform))]; ok {
		return rate
	}
	return g.PlatformFeePct
}

func (g Gatekeeper) laborBaseline(c domain.Complexity) float64 {
	if baseline, ok := g.LaborBaselines[c]; ok {
		return baseline
	}
	return g.LaborBaselines[domain.ComplexityMedium]
}

// Evaluate applies the profitability rules to one lead.
func (g Gatekeeper) Evaluate(budget float64, complexity domain.Complexity, description, platform string) Result {
	if budget <= 0 || budget < g.MinOrder {
		return Result{
			Verdict: domain.VerdictDecline,
			Reason:  fmt.Sprintf("budget %.2f below minimum order %.2f", budget, g.MinOrder),
		}
	}
	fee := budget * g.feeRate(platform)
	baseline := g.laborBaseline(complexity)
	netProfit := budget - fee - baseline*g.LaborCostFactor
	marginPct := netProfit / budget * 100
	if marginPct < g.MinMarginPct {
		suggested := roundTo(budget*g.SuggestMarkup, g.SuggestRound)
		return Result{
			Verdict:        domain.VerdictNegotiate,
			MarginPct:      marginPct,
			NetProfit:      netProfit,
			PlatformFee:    fee,
			SuggestedPrice: suggested,
			Reason:         fmt.Sprintf("margin %.1f%% below floor %.1f%%; counter-offer %.2f", marginPct, g.MinMarginPct, suggested),
		}
	}
	return Result{
		Verdict:     domain.VerdictAccept,
		MarginPct:   marginPct,
		NetProfit:   netProfit,
		PlatformFee: fee,
		Reason:      fmt.Sprintf("margin %.1f%% clears floor %.1f%%", marginPct, g.MinMarginPct),
	}
}

func roundTo(v, step float64) float64 {
	if step <= 0 {
		return math.Round(v)
	}
	return math.Round(v/step) * step
}
