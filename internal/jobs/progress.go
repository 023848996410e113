package jobs

// Progress milestones for the job lifecycle. Values are advisory; callers may
// only rely on monotonicity within an attempt and on 100/0 at the terminal
// states.
const (
	progressStarted       = 10
	progressSubmitted     = 20
	progressPollCeiling   = 80
	progressFallbackReset = 50
	progressMaterializing = 90
)

// pollProgress projects elapsed poll attempts onto the 20..80 band so status
// readers always see motion without ever observing false completion.
func pollProgress(attempt, maxAttempts int) int {
	if maxAttempts <= 0 || attempt <= 0 {
		return progressSubmitted
	}
	p := progressSubmitted + (progressPollCeiling-progressSubmitted)*attempt/maxAttempts
	if p > progressPollCeiling {
		return progressPollCeiling
	}
	return p
}
