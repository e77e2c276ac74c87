package enum

// ActivityLevel classifies a guild's message volume within the analysis window.
type ActivityLevel string

const (
	ActivityLevelLow      ActivityLevel = "low"
	ActivityLevelMedium   ActivityLevel = "medium"
	ActivityLevelHigh     ActivityLevel = "high"
	ActivityLevelVeryHigh ActivityLevel = "very_high"
)

// Valid reports whether l is a known level.
func (l ActivityLevel) Valid() bool {
	switch l {
	case ActivityLevelLow, ActivityLevelMedium, ActivityLevelHigh, ActivityLevelVeryHigh:
		return true
	}
	return false
}
