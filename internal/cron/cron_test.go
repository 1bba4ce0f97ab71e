package cron

import (
	"context"
	"os"
	"sync"
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"k8s.io/client-go/kubernetes"

	"github.com/mailsift/mailsift/config"
	"github.com/mailsift/mailsift/dto"
	er "github.com/mailsift/mailsift/internal/errors"
	"github.com/mailsift/mailsift/internal/logger"
	"github.com/mailsift/mailsift/internal/models"
)

type mockKubernetesInterface struct {
	kubernetes.Interface
	mock.Mock
}

type stubSyncService struct {
	mu        sync.Mutex
	requests  []dto.SyncRequest
	sessionID string
	err       error
}

func (s *stubSyncService) StartSync(ctx context.Context, request dto.SyncRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, request)
	if s.err != nil {
		return "", s.err
	}
	return s.sessionID, nil
}

func (s *stubSyncService) CancelSync(mailboxID string) bool { return false }

func (s *stubSyncService) GetSession(ctx context.Context, sessionID string) (*models.SyncSession, error) {
	return nil, nil
}

func (s *stubSyncService) ListSessions(ctx context.Context, mailboxID string, limit int) ([]*models.SyncSession, error) {
	return nil, nil
}

func (s *stubSyncService) ActiveMailboxes() []string { return nil }

func (s *stubSyncService) Stop() {}

func (s *stubSyncService) startCalls() []dto.SyncRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dto.SyncRequest(nil), s.requests...)
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func TestNewCronManager(t *testing.T) {
	// Arrange
	cfg := &config.Config{
		AppConfig: &config.AppConfig{},
	}
	log := getLogger()
	k8s := &mockKubernetesInterface{}
	syncService := &stubSyncService{}

	// Act
	cm := NewCronManager(cfg, log, k8s, syncService)

	// Assert
	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.Equal(t, k8s, cm.k8s)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_RegisterJobs(t *testing.T) {
	// Set environment variables for testing
	os.Setenv("CRON_SCHEDULE_HEARTBEAT", "0 * * * * *")
	os.Setenv("CRON_SCHEDULE_SYNC", "0 */15 * * * *")
	defer os.Unsetenv("CRON_SCHEDULE_HEARTBEAT")
	defer os.Unsetenv("CRON_SCHEDULE_SYNC")

	// Arrange
	cfg := &config.Config{
		AppConfig: &config.AppConfig{},
	}
	cm := NewCronManager(cfg, getLogger(), nil, &stubSyncService{})
	c := cronv3.New(cronv3.WithSeconds())

	// Act
	cm.registerJobs(c)

	// Assert
	assert.Equal(t, 2, len(cm.jobIDs))
	assert.Contains(t, cm.jobIDs, "heartbeat")
	assert.Contains(t, cm.jobIDs, "scheduled_sync")
}

func TestCronManager_Stop(t *testing.T) {
	// Arrange
	cfg := &config.Config{
		AppConfig: &config.AppConfig{},
	}
	cm := NewCronManager(cfg, getLogger(), nil, &stubSyncService{})

	mockCron := cronv3.New()
	mockCron.Start()
	cm.cron = mockCron

	// Act
	cm.Stop()

	// Assert
	select {
	case <-cm.stopCh:
		// Channel is closed as expected
	default:
		t.Error("Stop channel was not closed")
	}
}

func TestCronManager_RunScheduledSync(t *testing.T) {
	// Arrange
	syncService := &stubSyncService{sessionID: "session-1"}
	cm := NewCronManager(&config.Config{}, getLogger(), nil, syncService)

	// Act
	cm.runScheduledSync()

	// Assert
	calls := syncService.startCalls()
	assert.Equal(t, 1, len(calls))
	assert.Equal(t, dto.SyncRequest{}, calls[0])
}

func TestCronManager_RunScheduledSync_SkipsWhenAlreadyRunning(t *testing.T) {
	// Arrange
	syncService := &stubSyncService{err: er.ErrSyncInProgress}
	cm := NewCronManager(&config.Config{}, getLogger(), nil, syncService)

	// Act
	cm.runScheduledSync()

	// Assert
	assert.Equal(t, 1, len(syncService.startCalls()))
}
