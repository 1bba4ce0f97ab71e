package sync

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailsift/mailsift/internal/enum"
	er "github.com/mailsift/mailsift/internal/errors"
	"github.com/mailsift/mailsift/internal/models"
	"github.com/mailsift/mailsift/internal/utils"
)

// fakeSessionRepo is an in-memory SyncSessionRepository with the same
// conditional-update semantics as the real one: terminal transitions
// only apply to in_progress rows.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.SyncSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*models.SyncSession)}
}

func (f *fakeSessionRepo) Create(ctx context.Context, session *models.SyncSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = utils.Now()
	}
	stored := *session
	f.sessions[session.ID] = &stored
	return nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, id string) (*models.SyncSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionRepo) GetLastCompleted(ctx context.Context, mailboxID string) (*models.SyncSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *models.SyncSession
	for _, session := range f.sessions {
		if session.MailboxID != mailboxID || session.Status != enum.SyncStatusCompleted {
			continue
		}
		if last == nil || session.StartedAt.After(last.StartedAt) {
			last = session
		}
	}
	if last == nil {
		return nil, nil
	}
	copied := *last
	return &copied, nil
}

func (f *fakeSessionRepo) IncrementCounters(ctx context.Context, id string, discovered, fetched, classified int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return errors.Errorf("session %s not found", id)
	}
	session.Discovered += discovered
	session.Fetched += fetched
	session.Classified += classified
	return nil
}

func (f *fakeSessionRepo) SetTerminalStatus(ctx context.Context, id string, status enum.SyncStatus, errorMessage string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok || session.Status != enum.SyncStatusInProgress {
		return 0, nil
	}
	session.Status = status
	session.ErrorMessage = errorMessage
	session.CompletedAt = utils.Ptr(utils.Now())
	return 1, nil
}

func (f *fakeSessionRepo) ListRecent(ctx context.Context, mailboxID string, limit int) ([]*models.SyncSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.SyncSession, 0)
	for _, session := range f.sessions {
		if session.MailboxID == mailboxID {
			copied := *session
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestSessionTracker_Open_FreezesParameters(t *testing.T) {
	// Arrange
	repo := newFakeSessionRepo()
	tracker := newSessionTracker(repo)

	// Act
	session, err := tracker.Open(context.Background(), "primary", enum.SyncModeFirst, SyncParameters{DaysWindow: 7, BatchSize: 10, DelayMs: 500})

	// Assert
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	assert.Equal(t, enum.SyncStatusInProgress, session.Status)
	assert.Equal(t, 7, session.DaysWindow)
	assert.Equal(t, 10, session.BatchSize)
	assert.Equal(t, 500, session.DelayMs)

	stored, err := repo.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, enum.SyncModeFirst, stored.Mode)
}

func TestSessionTracker_Advance_AccumulatesCounters(t *testing.T) {
	// Arrange
	repo := newFakeSessionRepo()
	tracker := newSessionTracker(repo)
	session, err := tracker.Open(context.Background(), "primary", enum.SyncModeFirst, SyncParameters{DaysWindow: 7, BatchSize: 10, DelayMs: 0})
	require.NoError(t, err)

	// Act
	require.NoError(t, tracker.Advance(context.Background(), session.ID, 5, 0, 0))
	require.NoError(t, tracker.Advance(context.Background(), session.ID, 0, 3, 2))
	require.NoError(t, tracker.Advance(context.Background(), session.ID, 0, 2, 1))

	// Assert
	stored, err := repo.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Discovered)
	assert.Equal(t, 5, stored.Fetched)
	assert.Equal(t, 3, stored.Classified)
}

func TestSessionTracker_Advance_RejectsNegativeDeltas(t *testing.T) {
	repo := newFakeSessionRepo()
	tracker := newSessionTracker(repo)

	err := tracker.Advance(context.Background(), "any", -1, 0, 0)

	require.Error(t, err)
}

func TestSessionTracker_Close_SetsTerminalState(t *testing.T) {
	// Arrange
	repo := newFakeSessionRepo()
	tracker := newSessionTracker(repo)
	session, err := tracker.Open(context.Background(), "primary", enum.SyncModeFirst, SyncParameters{DaysWindow: 7, BatchSize: 10, DelayMs: 0})
	require.NoError(t, err)

	// Act
	err = tracker.Close(context.Background(), session.ID, enum.SyncStatusCompleted, "")

	// Assert
	require.NoError(t, err)
	stored, err := repo.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.SyncStatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
	assert.Empty(t, stored.ErrorMessage)
}

func TestSessionTracker_Close_SecondCloseFailsLoudly(t *testing.T) {
	// Arrange
	repo := newFakeSessionRepo()
	tracker := newSessionTracker(repo)
	session, err := tracker.Open(context.Background(), "primary", enum.SyncModeFirst, SyncParameters{DaysWindow: 7, BatchSize: 10, DelayMs: 0})
	require.NoError(t, err)
	require.NoError(t, tracker.Close(context.Background(), session.ID, enum.SyncStatusCompleted, ""))

	// Act
	err = tracker.Close(context.Background(), session.ID, enum.SyncStatusFailed, "should not overwrite")

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, er.ErrSessionAlreadyClosed)
	stored, getErr := repo.GetByID(context.Background(), session.ID)
	require.NoError(t, getErr)
	assert.Equal(t, enum.SyncStatusCompleted, stored.Status)
	assert.Empty(t, stored.ErrorMessage)
}

func TestSessionTracker_Close_MissingSessionReturnsNotFound(t *testing.T) {
	repo := newFakeSessionRepo()
	tracker := newSessionTracker(repo)

	err := tracker.Close(context.Background(), uuid.New().String(), enum.SyncStatusFailed, "boom")

	require.Error(t, err)
	assert.ErrorIs(t, err, er.ErrSessionNotFound)
}

func TestSessionTracker_Close_RejectsNonTerminalStatus(t *testing.T) {
	repo := newFakeSessionRepo()
	tracker := newSessionTracker(repo)
	session, err := tracker.Open(context.Background(), "primary", enum.SyncModeFirst, SyncParameters{DaysWindow: 7, BatchSize: 10, DelayMs: 0})
	require.NoError(t, err)

	err = tracker.Close(context.Background(), session.ID, enum.SyncStatusInProgress, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal")
}

func TestSessionTracker_ModeFor_FirstWhenNothingCompleted(t *testing.T) {
	// Arrange
	repo := newFakeSessionRepo()
	tracker := newSessionTracker(repo)

	// Act
	mode, err := tracker.ModeFor(context.Background(), "primary")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, enum.SyncModeFirst, mode)
}

func TestSessionTracker_ModeFor_IgnoresFailedRuns(t *testing.T) {
	// Arrange: two failed runs but nothing completed. The mailbox stays
	// on the first-sync profile.
	repo := newFakeSessionRepo()
	tracker := newSessionTracker(repo)
	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(context.Background(), &models.SyncSession{
			MailboxID: "primary",
			Mode:      enum.SyncModeFirst,
			Status:    enum.SyncStatusFailed,
		}))
	}

	// Act
	mode, err := tracker.ModeFor(context.Background(), "primary")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, enum.SyncModeFirst, mode)
}

func TestSessionTracker_ModeFor_IncrementalAfterCompletedRun(t *testing.T) {
	// Arrange
	repo := newFakeSessionRepo()
	tracker := newSessionTracker(repo)
	require.NoError(t, repo.Create(context.Background(), &models.SyncSession{
		MailboxID: "primary",
		Mode:      enum.SyncModeFirst,
		Status:    enum.SyncStatusCompleted,
	}))

	// Act
	mode, err := tracker.ModeFor(context.Background(), "primary")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, enum.SyncModeIncremental, mode)
}
