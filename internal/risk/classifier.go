package risk

import "context"

// IPRiskTier buckets the origin address reputation.
type IPRiskTier string

const (
	IPRiskLow    IPRiskTier = "low"
	IPRiskMedium IPRiskTier = "medium"
	IPRiskHigh   IPRiskTier = "high"
)

// Features is the behavioral input to the classifier.
//
// RecencyHours and IPRiskTier are not wired to real telemetry yet; callers
// pass the placeholder defaults below until a telemetry source exists.
type Features struct {
	FailedAttempts int        `json:"failed_attempts"`
	RecencyHours   float64    `json:"recency_hours"`
	IPRiskTier     IPRiskTier `json:"ip_risk_tier"`
}

// Placeholder feature values used in the absence of telemetry.
const (
	PlaceholderRecencyHours = 0.5
	PlaceholderIPRiskTier   = IPRiskLow
)

// PlaceholderFeatures builds the classifier input for an account with the
// given failed-attempt count and placeholder telemetry.
func PlaceholderFeatures(failedAttempts int) Features {
	return Features{
		FailedAttempts: failedAttempts,
		RecencyHours:   PlaceholderRecencyHours,
		IPRiskTier:     PlaceholderIPRiskTier,
	}
}

// Classifier maps behavioral features to a lock recommendation. The
// recommendation only drives narration, never the hard lock decision.
type Classifier interface {
	Predict(ctx context.Context, f Features) (bool, error)
}
