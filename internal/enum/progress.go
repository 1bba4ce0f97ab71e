package enum

type ProgressEventType string

const (
	ProgressEventStatus   ProgressEventType = "status"
	ProgressEventProgress ProgressEventType = "progress"
	ProgressEventComplete ProgressEventType = "complete"
	ProgressEventError    ProgressEventType = "error"
)

func (t ProgressEventType) String() string {
	return string(t)
}

// Terminal reports whether the event type ends a session's stream.
func (t ProgressEventType) Terminal() bool {
	return t == ProgressEventComplete || t == ProgressEventError
}
