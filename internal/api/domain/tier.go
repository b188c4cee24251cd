package domain

// Subscription tiers
const (
	TierFree   = "free"
	TierPro    = "pro"
	TierStudio = "studio"
)

// TierLimits holds the fixed quota and request bounds of a tier
type TierLimits struct {
	MonthlyJobs        int
	RequestsPerMinute  int
	MinDurationSeconds int
	MaxDurationSeconds int
	MaxWidth           int
	MaxHeight          int
}

var tierLimits = map[string]TierLimits{
	TierFree: {
		MonthlyJobs:        5,
		RequestsPerMinute:  3,
		MinDurationSeconds: 2,
		MaxDurationSeconds: 8,
		MaxWidth:           1280,
		MaxHeight:          720,
	},
	TierPro: {
		MonthlyJobs:        100,
		RequestsPerMinute:  12,
		MinDurationSeconds: 2,
		MaxDurationSeconds: 30,
		MaxWidth:           1920,
		MaxHeight:          1080,
	},
	TierStudio: {
		MonthlyJobs:        1000,
		RequestsPerMinute:  60,
		MinDurationSeconds: 2,
		MaxDurationSeconds: 120,
		MaxWidth:           3840,
		MaxHeight:          2160,
	},
}

// LimitsForTier returns the limits of a tier. Unknown tiers fall back to
// the free tier so a bad row in the users table fails closed.
func LimitsForTier(tier string) TierLimits {
	limits, ok := tierLimits[tier]
	if !ok {
		return tierLimits[TierFree]
	}
	return limits
}
