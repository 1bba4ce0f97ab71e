package sync

import (
	"github.com/mailsift/mailsift/config"
	"github.com/mailsift/mailsift/internal/enum"
)

// SyncParameters is the tuning profile one run executes under. The
// values are frozen into the session row at open so a finished run
// documents what it actually did, independent of later config changes.
type SyncParameters struct {
	DaysWindow int
	BatchSize  int
	DelayMs    int
}

// ProfileFor picks the parameter set for a sync mode. First syncs walk
// a wider window with smaller batches and longer pauses; incremental
// syncs cover recent days more aggressively.
func ProfileFor(mode enum.SyncMode, cfg *config.SyncConfig) SyncParameters {
	if mode == enum.SyncModeFirst {
		return SyncParameters{
			DaysWindow: cfg.FirstSyncDays,
			BatchSize:  cfg.FirstSyncBatchSize,
			DelayMs:    cfg.FirstSyncDelayMs,
		}
	}
	return SyncParameters{
		DaysWindow: cfg.IncrementalSyncDays,
		BatchSize:  cfg.IncrementalSyncBatchSize,
		DelayMs:    cfg.IncrementalSyncDelayMs,
	}
}
