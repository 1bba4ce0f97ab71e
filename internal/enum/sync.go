package enum

type SyncMode string

const (
	SyncModeFirst       SyncMode = "first"
	SyncModeIncremental SyncMode = "incremental"
)

func (m SyncMode) String() string {
	return string(m)
}

type SyncStatus string

const (
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
)

func (s SyncStatus) String() string {
	return string(s)
}

// Terminal reports whether the status is an end state for a session.
func (s SyncStatus) Terminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed
}

type SyncPhase string

const (
	SyncPhaseConnecting SyncPhase = "connecting"
	SyncPhaseListing    SyncPhase = "listing"
	SyncPhaseFetching   SyncPhase = "fetching"
	SyncPhaseConfirming SyncPhase = "confirming"
	SyncPhaseFinalizing SyncPhase = "finalizing"
)

func (p SyncPhase) String() string {
	return string(p)
}
