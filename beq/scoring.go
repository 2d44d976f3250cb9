package beq

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

var ErrInvalidScoringParams = errors.New("invalid scoring parameters")

// RiskCurve holds the multiplicative discounts one execution mode applies to
// elevated risk levels. All factors live in (0,1]; a harsher mode means
// smaller factors.
type RiskCurve struct {
	Medium          float64
	High            float64
	PreflightWeight float64
}

// ScoringParams are a tuning surface, not a correctness invariant. The
// properties that must hold regardless of values: scores stay in [0,100],
// scores never decrease with buy amount, and DEGEN >= NORMAL >= SAFE for the
// same signals.
type ScoringParams struct {
	// DefaultIntegrationConfidence is used for providers without history.
	DefaultIntegrationConfidence float64
	// UncertainSellabilityFloor bounds how hard an UNCERTAIN verdict discounts.
	UncertainSellabilityFloor float64
	Safe                      RiskCurve
	Normal                    RiskCurve
	Degen                     RiskCurve
}

func DefaultScoringParams() ScoringParams {
	return ScoringParams{
		DefaultIntegrationConfidence: 0.9,
		UncertainSellabilityFloor:    0.5,
		Safe:                         RiskCurve{Medium: 0.6, High: 0.25, PreflightWeight: 1.0},
		Normal:                       RiskCurve{Medium: 0.75, High: 0.45, PreflightWeight: 0.7},
		Degen:                        RiskCurve{Medium: 0.9, High: 0.7, PreflightWeight: 0.35},
	}
}

func validateCurve(c RiskCurve) error {
	for _, f := range []float64{c.Medium, c.High, c.PreflightWeight} {
		if math.IsNaN(f) || f < 0 || f > 1 {
			return ErrInvalidScoringParams
		}
	}
	if c.High > c.Medium {
		return ErrInvalidScoringParams
	}
	return nil
}

func (p ScoringParams) Validate() error {
	if p.DefaultIntegrationConfidence <= 0 || p.DefaultIntegrationConfidence > 1 {
		return ErrInvalidScoringParams
	}
	if p.UncertainSellabilityFloor < 0 || p.UncertainSellabilityFloor > 1 {
		return ErrInvalidScoringParams
	}
	for _, c := range []RiskCurve{p.Safe, p.Normal, p.Degen} {
		if err := validateCurve(c); err != nil {
			return err
		}
	}
	// mode ordering: degen must never discount harder than normal, nor
	// normal harder than safe
	if p.Degen.Medium < p.Normal.Medium || p.Normal.Medium < p.Safe.Medium ||
		p.Degen.High < p.Normal.High || p.Normal.High < p.Safe.High ||
		p.Degen.PreflightWeight > p.Normal.PreflightWeight || p.Normal.PreflightWeight > p.Safe.PreflightWeight {
		return ErrInvalidScoringParams
	}
	return nil
}

func (p ScoringParams) curve(mode ExecutionMode) RiskCurve {
	switch mode {
	case ModeSafe:
		return p.Safe
	case ModeDegen:
		return p.Degen
	default:
		return p.Normal
	}
}

// ScoreInput is everything the engine needs to score one candidate quote.
type ScoreInput struct {
	ProviderID string
	BuyAmount  *big.Int
	// MaxBuyAmount is the best buy amount observed across all candidates.
	MaxBuyAmount *big.Int
	// IntegrationConfidence is how trusted the provider's raw quote accuracy
	// is; zero means "no history", which falls back to the default.
	IntegrationConfidence float64
	Signals               RiskSignals
	Mode                  ExecutionMode
}

type ScoringEngine struct {
	params ScoringParams
}

func NewScoringEngine(params ScoringParams) (*ScoringEngine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &ScoringEngine{params: params}, nil
}

// Score computes beqScore = OutputScore x QualityMultiplier x RiskMultiplier,
// each bounded, scaled to [0,100]. RawOutputRank is filled in later by the
// ranking pass.
func (e *ScoringEngine) Score(in ScoreInput) ScoreBreakdown {
	var explanation []string

	output := outputScore(in.BuyAmount, in.MaxBuyAmount)
	switch {
	case output == 0:
		explanation = append(explanation, "no priced output")
	case output == 1:
		explanation = append(explanation, "best output among candidates")
	default:
		explanation = append(explanation, fmt.Sprintf("output at %.1f%% of leader", output*100))
	}

	quality, qualityWhy := e.qualityMultiplier(in)
	explanation = append(explanation, qualityWhy...)

	curve := e.params.curve(in.Mode)
	risk, riskWhy := riskMultiplier(in.Signals, curve)
	explanation = append(explanation, riskWhy...)

	disqualified, dqWhy := disqualify(in.Signals, in.Mode)
	explanation = append(explanation, dqWhy...)

	score := clamp(output*quality*risk*100, 0, 100)
	return ScoreBreakdown{
		BEQScore:     score,
		Disqualified: disqualified,
		Explanation:  explanation,
	}
}

// outputScore is the quote's buy amount relative to the best observed,
// in [0,1]. Zero-output quotes score zero regardless of other factors.
func outputScore(buy, maxBuy *big.Int) float64 {
	if buy == nil || maxBuy == nil || buy.Sign() <= 0 || maxBuy.Sign() <= 0 {
		return 0
	}
	ratio, _ := new(big.Rat).SetFrac(buy, maxBuy).Float64()
	return clamp(ratio, 0, 1)
}

func (e *ScoringEngine) qualityMultiplier(in ScoreInput) (float64, []string) {
	var explanation []string

	integration := in.IntegrationConfidence
	if integration <= 0 || integration > 1 {
		integration = e.params.DefaultIntegrationConfidence
	}

	sellFactor := 1.0
	switch {
	case in.Signals.Sellability == nil:
		explanation = append(explanation, "sellability unknown, no oracle opinion")
	case in.Signals.Sellability.Status == SellabilityOK:
		explanation = append(explanation, "sellability confirmed")
	case in.Signals.Sellability.Status == SellabilityUncertain:
		// discount toward the floor proportionally to oracle confidence
		sellFactor = 1 - (1-e.params.UncertainSellabilityFloor)*in.Signals.Sellability.Confidence
		explanation = append(explanation, fmt.Sprintf("sellability uncertain: x%.2f", sellFactor))
	default:
		sellFactor = 0.1
		explanation = append(explanation, "sellability failed")
	}

	return clamp(integration*sellFactor, 0, 1), explanation
}

func levelFactor(v LevelVerdict, curve RiskCurve) float64 {
	switch v.Level {
	case RiskHigh:
		return curve.High
	case RiskMedium:
		return curve.Medium
	default:
		return 1
	}
}

func riskMultiplier(signals RiskSignals, curve RiskCurve) (float64, []string) {
	var explanation []string
	mult := 1.0

	for _, s := range []struct {
		name    string
		verdict LevelVerdict
	}{
		{"revert risk", signals.RevertRisk},
		{"mev exposure", signals.MevExposure},
		{"churn", signals.Churn},
	} {
		f := levelFactor(s.verdict, curve)
		if f < 1 {
			mult *= f
			explanation = append(explanation, fmt.Sprintf("%s %s: x%.2f", s.name, s.verdict.Level, f))
		}
	}

	if pf := signals.Preflight; pf != nil && pf.PRevert > 0 {
		discount := 1 - pf.PRevert*pf.Confidence*curve.PreflightWeight
		mult *= clamp(discount, 0, 1)
		explanation = append(explanation, fmt.Sprintf("preflight pRevert %.2f: x%.2f", pf.PRevert, discount))
	}

	return clamp(mult, 0, 1), explanation
}

// disqualify removes a quote from the risk-adjusted ranking entirely.
// Harsher modes disqualify more: SAFE bails on a failed sellability or a
// failed preflight, NORMAL on failed sellability, DEGEN only when both agree
// the token is toxic.
func disqualify(signals RiskSignals, mode ExecutionMode) (bool, []string) {
	sellFailed := signals.Sellability != nil && signals.Sellability.Status == SellabilityFail
	preflightFailed := signals.Preflight != nil && !signals.Preflight.Ok

	switch mode {
	case ModeSafe:
		if sellFailed {
			return true, []string{"disqualified: sellability FAIL in safe mode"}
		}
		if preflightFailed {
			return true, []string{"disqualified: preflight failed in safe mode"}
		}
	case ModeDegen:
		if sellFailed && preflightFailed {
			return true, []string{"disqualified: sellability FAIL and preflight failed"}
		}
	default:
		if sellFailed {
			return true, []string{"disqualified: sellability FAIL"}
		}
	}
	return false, nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}
