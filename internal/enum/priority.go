package enum

type Priority string

const (
	PriorityUrgent    Priority = "urgent"
	PriorityImportant Priority = "important"
	PriorityNormal    Priority = "normal"
	PriorityArchive   Priority = "archive"
)

func (p Priority) String() string {
	return string(p)
}

// GetPriority normalizes free-form model output to a known priority,
// falling back to normal for anything unrecognized.
func GetPriority(s string) Priority {
	switch s {
	case "urgent", "important", "normal", "archive":
		return Priority(s)
	default:
		return PriorityNormal
	}
}
