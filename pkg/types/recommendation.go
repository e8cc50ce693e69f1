// File: pkg/types/recommendation.go
// ============================================
package types

import "strings"

// Recommendation is the categorical summary a provider attaches to a snapshot
type Recommendation string

const (
	RecStrongBuy  Recommendation = "STRONG_BUY"
	RecBuy        Recommendation = "BUY"
	RecNeutral    Recommendation = "NEUTRAL"
	RecSell       Recommendation = "SELL"
	RecStrongSell Recommendation = "STRONG_SELL"
	RecUnknown    Recommendation = "UNKNOWN"
)

// ParseRecommendation maps free-form provider text onto the closed set.
// Anything it does not recognise is UNKNOWN.
func ParseRecommendation(s string) Recommendation {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)

	switch Recommendation(norm) {
	case RecStrongBuy, RecBuy, RecNeutral, RecSell, RecStrongSell:
		return Recommendation(norm)
	}
	return RecUnknown
}

// RecommendationFromScore converts TradingView's Recommend.All value (-1..1)
// using the same bands as the TradingView widgets
func RecommendationFromScore(v float64) Recommendation {
	switch {
	case v < -1 || v > 1:
		return RecUnknown
	case v < -0.5:
		return RecStrongSell
	case v < -0.1:
		return RecSell
	case v <= 0.1:
		return RecNeutral
	case v <= 0.5:
		return RecBuy
	default:
		return RecStrongBuy
	}
}

func (r Recommendation) IsBuy() bool {
	return r == RecBuy || r == RecStrongBuy
}

func (r Recommendation) IsSell() bool {
	return r == RecSell || r == RecStrongSell
}
