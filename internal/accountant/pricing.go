package accountant

import "math"

// TokenPricing is a per-million-token price vector for one model, mirroring
// original_source/models/pricing.py's TokenPricing dataclass.
type TokenPricing struct {
	InputPrice       float64
	OutputPrice      float64
	CachedInputPrice float64
	AudioInputPrice  float64
	AudioOutputPrice float64
}

// PricingTier is a cost multiplier applied on top of the region multiplier,
// mirroring pricing.py's PricingTier enum.
type PricingTier float64

const (
	PricingStandard   PricingTier = 1.0
	PricingDiscounted PricingTier = 0.9
	PricingPremium    PricingTier = 1.2
)

// RegionMultipliers mirrors pricing.py's REGION_MULTIPLIERS table.
var RegionMultipliers = map[string]float64{
	"US":      1.0,
	"EU":      1.2,
	"UK":      1.15,
	"IN":      0.8,
	"BR":      0.85,
	"DEFAULT": 1.0,
}

// RegionMultiplier looks up a region's price multiplier, falling back to the
// default multiplier for unknown regions.
func RegionMultiplier(region string) float64 {
	if m, ok := RegionMultipliers[region]; ok {
		return m
	}
	return RegionMultipliers["DEFAULT"]
}

// Usage is the token/audio counts a cost projection is computed over.
type Usage struct {
	InputTokens       int64
	OutputTokens      int64
	CachedInputTokens int64
	AudioInputTokens  int64
	AudioOutputTokens int64
}

// ProjectCost mirrors pricing.py::calculate_usage_cost exactly: each count
// is priced per-million at the region-adjusted rate, summed, then scaled by
// the pricing tier and rounded to 6 decimals. It never mutates any stored
// counter — it is a pure function of usage and price.
func ProjectCost(u Usage, pricing TokenPricing, region string, tier PricingTier) float64 {
	mult := RegionMultiplier(region)

	cost := perMillion(u.InputTokens, pricing.InputPrice, mult) +
		perMillion(u.OutputTokens, pricing.OutputPrice, mult) +
		perMillion(u.CachedInputTokens, pricing.CachedInputPrice, mult) +
		perMillion(u.AudioInputTokens, pricing.AudioInputPrice, mult) +
		perMillion(u.AudioOutputTokens, pricing.AudioOutputPrice, mult)

	cost *= float64(tier)
	return round6(cost)
}

func perMillion(count int64, pricePerMillion, regionMultiplier float64) float64 {
	return (float64(count) / 1_000_000.0) * pricePerMillion * regionMultiplier
}

func round6(v float64) float64 {
	const scale = 1e6
	return math.Round(v*scale) / scale
}

// ModelPricing mirrors pricing.py's MODEL_PRICING table for the models the
// relay's default configuration recognizes. Operators may extend this via
// their own Config wiring; it is not read from environment variables since
// pricing data changes far less often than deploy-time config.
var ModelPricing = map[string]TokenPricing{
	"gpt-4o-realtime-preview-2024-12-17": {
		InputPrice:       5.0,
		OutputPrice:      20.0,
		CachedInputPrice: 2.5,
		AudioInputPrice:  100.0,
		AudioOutputPrice: 200.0,
	},
}
