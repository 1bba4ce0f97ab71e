package sync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/models"
	"github.com/mailsift/mailsift/internal/utils"
)

// fakeEmailRepo is an in-memory email store covering the methods the
// sync pipeline touches. The embedded interface panics on anything
// else, which is exactly what a test should do.
type fakeEmailRepo struct {
	interfaces.EmailRepository
	mu            sync.Mutex
	rows          []*models.Email
	existingErr   error
	createErr     error
	existingCalls int
}

func newFakeEmailRepo() *fakeEmailRepo {
	return &fakeEmailRepo{}
}

func (f *fakeEmailRepo) Create(ctx context.Context, email *models.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if email.ID == "" {
		email.ID = utils.GenerateNanoIDWithPrefix("email", 24)
	}
	copied := *email
	f.rows = append(f.rows, &copied)
	return nil
}

func (f *fakeEmailRepo) ExistingUIDs(ctx context.Context, mailboxID, folder string, uids []uint32) (map[uint32]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existingCalls++
	if f.existingErr != nil {
		return nil, f.existingErr
	}
	known := make(map[uint32]bool)
	for _, row := range f.rows {
		if row.MailboxID == mailboxID && row.Folder == folder {
			known[row.ImapUID] = true
		}
	}
	out := make(map[uint32]bool)
	for _, uid := range uids {
		if known[uid] {
			out[uid] = true
		}
	}
	return out, nil
}

func (f *fakeEmailRepo) seed(mailboxID, folder string, uids ...uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, uid := range uids {
		f.rows = append(f.rows, &models.Email{MailboxID: mailboxID, Folder: folder, ImapUID: uid})
	}
}

func (f *fakeEmailRepo) stored() []*models.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Email, len(f.rows))
	copy(out, f.rows)
	return out
}

func windowStart() time.Time {
	return utils.Now().AddDate(0, 0, -7)
}

func TestReconciler_MissingUIDs_AllNewWhenStoreIsEmpty(t *testing.T) {
	// Arrange
	repo := newFakeEmailRepo()
	session := &scriptedSession{uids: []uint32{1, 2, 3, 4, 5}}
	rec := newReconciler(repo)

	// Act
	missing, err := rec.MissingUIDs(context.Background(), session, "primary", "INBOX", windowStart())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, missing)
}

func TestReconciler_MissingUIDs_SubtractsStoredMessages(t *testing.T) {
	// Arrange
	repo := newFakeEmailRepo()
	repo.seed("primary", "INBOX", 1, 3, 5)
	session := &scriptedSession{uids: []uint32{1, 2, 3, 4, 5}}
	rec := newReconciler(repo)

	// Act
	missing, err := rec.MissingUIDs(context.Background(), session, "primary", "INBOX", windowStart())

	// Assert: only the unseen UIDs remain, oldest first.
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 4}, missing)
}

func TestReconciler_MissingUIDs_SecondPassDiscoversNothing(t *testing.T) {
	// Arrange
	repo := newFakeEmailRepo()
	repo.seed("primary", "INBOX", 1, 2, 3)
	session := &scriptedSession{uids: []uint32{1, 2, 3}}
	rec := newReconciler(repo)

	// Act
	missing, err := rec.MissingUIDs(context.Background(), session, "primary", "INBOX", windowStart())

	// Assert
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestReconciler_MissingUIDs_EmptyWindowSkipsMembershipQuery(t *testing.T) {
	// Arrange
	repo := newFakeEmailRepo()
	session := &scriptedSession{}
	rec := newReconciler(repo)

	// Act
	missing, err := rec.MissingUIDs(context.Background(), session, "primary", "INBOX", windowStart())

	// Assert
	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.Equal(t, 0, repo.existingCalls)
}

func TestReconciler_MissingUIDs_ScopedToFolder(t *testing.T) {
	// Arrange: the same UIDs stored under another folder must not
	// shadow the inbox window.
	repo := newFakeEmailRepo()
	repo.seed("primary", "Archive", 1, 2, 3)
	session := &scriptedSession{uids: []uint32{1, 2, 3}}
	rec := newReconciler(repo)

	// Act
	missing, err := rec.MissingUIDs(context.Background(), session, "primary", "INBOX", windowStart())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, missing)
}

func TestReconciler_MissingUIDs_SearchFailureIsFatal(t *testing.T) {
	// Arrange
	repo := newFakeEmailRepo()
	session := &scriptedSession{searchErr: errors.New("BYE server closing connection")}
	rec := newReconciler(repo)

	// Act
	missing, err := rec.MissingUIDs(context.Background(), session, "primary", "INBOX", windowStart())

	// Assert
	require.Error(t, err)
	assert.Nil(t, missing)
	assert.Equal(t, 0, repo.existingCalls)
}

func TestReconciler_MissingUIDs_MembershipFailureIsFatal(t *testing.T) {
	// Arrange
	repo := newFakeEmailRepo()
	repo.existingErr = errors.New("connection refused")
	session := &scriptedSession{uids: []uint32{1, 2}}
	rec := newReconciler(repo)

	// Act
	_, err := rec.MissingUIDs(context.Background(), session, "primary", "INBOX", windowStart())

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
