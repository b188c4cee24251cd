package domain

// Job statuses. The lifecycle is monotone: pending -> processing -> terminal.
// A job never moves back to an earlier status.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job types
const (
	JobTypeGenerate = "generate"
	JobTypeEnhance  = "enhance"
)

// statusRanks orders statuses along the lifecycle. Both terminal statuses
// share the top rank so neither can overwrite the other.
var statusRanks = map[string]int{
	JobStatusPending:    0,
	JobStatusProcessing: 1,
	JobStatusCompleted:  2,
	JobStatusFailed:     2,
}

// StatusRank returns the lifecycle rank of a status, or -1 for unknown values
func StatusRank(status string) int {
	rank, ok := statusRanks[status]
	if !ok {
		return -1
	}
	return rank
}

// IsTerminalStatus reports whether a status is completed or failed
func IsTerminalStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}

// CanTransition reports whether moving from one status to another respects
// the monotone lifecycle. Terminal states accept no further transitions.
func CanTransition(from, to string) bool {
	fromRank := StatusRank(from)
	toRank := StatusRank(to)
	if fromRank < 0 || toRank < 0 {
		return false
	}
	if IsTerminalStatus(from) {
		return false
	}
	return toRank > fromRank
}

// JobSpec carries the validated request parameters of a generation or
// enhancement job. Parameters are immutable after the job is created.
type JobSpec struct {
	Type            string
	Prompt          string
	SourceURL       string
	DurationSeconds int
	Width           int
	Height          int
	FPS             int
	Style           string
	Quality         string
	OutputFormat    string
	CallbackURL     string
}
