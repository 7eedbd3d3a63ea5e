package review

// Status is the review lifecycle state machine.
//
// IN_PROGRESS -> COMPLETED
// IN_PROGRESS -> FAILED
//
// Terminal states are one-way: a review never re-enters IN_PROGRESS and no
// findings may be attached after the terminal transition.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step. The only legal steps are IN_PROGRESS to a terminal state.
func (s Status) CanTransition(next Status) bool {
	return s == StatusInProgress && next.Terminal()
}
