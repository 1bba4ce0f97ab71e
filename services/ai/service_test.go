package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailsift/mailsift/config"
	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/internal/enum"
	"github.com/mailsift/mailsift/internal/logger"
)

type stubSettings struct {
	cfg *dto.AIConfig
	err error
}

func (s *stubSettings) GetAIConfig(ctx context.Context, mailboxID string) (*dto.AIConfig, error) {
	return s.cfg, s.err
}

func (s *stubSettings) UpdateAIConfig(ctx context.Context, mailboxID string, update dto.AIConfigUpdate) (*dto.AIConfig, error) {
	return s.cfg, nil
}

type captureProgress struct {
	mu       sync.Mutex
	statuses []enum.SyncPhase
}

func (c *captureProgress) EmitStatus(sessionID string, phase enum.SyncPhase, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, phase)
}

func (c *captureProgress) EmitProgress(sessionID string, current, total, newlySynced, newlyClassified int, message string) {
}
func (c *captureProgress) EmitComplete(sessionID string, synced, classified int, message string) {}
func (c *captureProgress) EmitError(sessionID string, message string)                            {}
func (c *captureProgress) Subscribe(sessionID string) (<-chan dto.ProgressEvent, func()) {
	ch := make(chan dto.ProgressEvent)
	close(ch)
	return ch, func() {}
}

func (c *captureProgress) phases() []enum.SyncPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]enum.SyncPhase(nil), c.statuses...)
}

func getTestLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

// fakeOllama serves /api/generate with a canned model reply and /api/tags
// with a fixed model list, counting generate hits.
func fakeOllama(t *testing.T, reply string, status int, hits *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/generate":
			if hits != nil {
				atomic.AddInt64(hits, 1)
			}
			if status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": reply, "done": true})
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"models": []map[string]interface{}{
					{"name": "llama3.1:8b"},
					{"name": "qwen2:7b"},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestService(settingsCfg *dto.AIConfig, progress *captureProgress) *aiService {
	svc := NewAIService(
		&config.AIConfig{
			Mode:       "local",
			LocalModel: "llama3.1:8b",
			LocalHost:  "http://localhost:11434",
		},
		&stubSettings{cfg: settingsCfg},
		NewPrivacyPolicy(),
		progress,
		getTestLogger(),
	)
	return svc.(*aiService)
}

func TestAIService_ProcessMessage_LocalMode(t *testing.T) {
	// Arrange
	var hits int64
	server := fakeOllama(t, `{"priority": "important", "summary": "Assignment details.", "deadline": "2026-03-02", "tags": ["assignment"]}`, http.StatusOK, &hits)
	defer server.Close()

	svc := newTestService(&dto.AIConfig{
		Mode:       "local",
		LocalModel: "llama3.1:8b",
		LocalHost:  server.URL,
	}, nil)

	// Act
	result, err := svc.ProcessMessage(context.Background(), dto.ClassifyEmailRequest{
		MailboxID: "primary",
		Subject:   "Assignment 2",
		BodyText:  "Details attached.",
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, enum.PriorityImportant, result.Priority)
	assert.Equal(t, "local:llama3.1:8b", result.ClassifiedBy)
	assert.Empty(t, result.Error)
	require.NotNil(t, result.Deadline)
	assert.Equal(t, "2026-03-02", result.Deadline.Format("2006-01-02"))
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestAIService_ProcessMessage_DegradesOnBackendFailure(t *testing.T) {
	// Arrange
	server := fakeOllama(t, "", http.StatusInternalServerError, nil)
	defer server.Close()

	svc := newTestService(&dto.AIConfig{
		Mode:       "local",
		LocalModel: "llama3.1:8b",
		LocalHost:  server.URL,
	}, nil)

	// Act
	result, err := svc.ProcessMessage(context.Background(), dto.ClassifyEmailRequest{
		MailboxID: "primary",
		Subject:   "Urgent room change",
		BodyText:  "Lecture moved to LT-2.",
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, attributionNone, result.ClassifiedBy)
	assert.Contains(t, result.Error, "500")
	// Keyword fallback still produces a priority.
	assert.Equal(t, enum.PriorityUrgent, result.Priority)
}

func TestAIService_ProcessMessage_APIModeWithoutKeyDegrades(t *testing.T) {
	// Arrange
	svc := newTestService(&dto.AIConfig{
		Mode:        "api",
		APIProvider: "deepseek",
	}, nil)

	// Act
	result, err := svc.ProcessMessage(context.Background(), dto.ClassifyEmailRequest{
		MailboxID: "primary",
		Subject:   "Hello",
		BodyText:  "World",
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, attributionNone, result.ClassifiedBy)
	assert.Contains(t, result.Error, "no API key")
}

func TestAIService_ProcessMessage_HybridSensitiveStaysLocal(t *testing.T) {
	// Arrange
	var hits int64
	server := fakeOllama(t, `{"priority": "normal", "summary": "", "deadline": "", "tags": []}`, http.StatusOK, &hits)
	defer server.Close()

	progress := &captureProgress{}
	svc := newTestService(&dto.AIConfig{
		Mode:             "hybrid",
		LocalModel:       "llama3.1:8b",
		LocalHost:        server.URL,
		APIProvider:      "openai",
		APIKey:           "sk-test",
		ConfirmBeforeAPI: true,
	}, progress)

	// Long enough to count as complex, and carries a credential keyword.
	body := strings.Repeat("note ", 120) + "password reset link enclosed"

	// Act
	result, err := svc.ProcessMessage(context.Background(), dto.ClassifyEmailRequest{
		SessionID: "sess-1",
		MailboxID: "primary",
		Subject:   "Account notice",
		BodyText:  body,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "local:llama3.1:8b", result.ClassifiedBy)
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
	// Privacy routing never consults the confirmation gate.
	assert.Empty(t, progress.phases())
}

func TestAIService_ProcessMessage_HybridSimpleStaysLocal(t *testing.T) {
	// Arrange
	var hits int64
	server := fakeOllama(t, `{"priority": "normal", "summary": "", "deadline": "", "tags": []}`, http.StatusOK, &hits)
	defer server.Close()

	svc := newTestService(&dto.AIConfig{
		Mode:       "hybrid",
		LocalModel: "llama3.1:8b",
		LocalHost:  server.URL,
	}, nil)

	// Act
	result, err := svc.ProcessMessage(context.Background(), dto.ClassifyEmailRequest{
		MailboxID: "primary",
		Subject:   "Gym hours",
		BodyText:  "Open until 10pm.",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "local:llama3.1:8b", result.ClassifiedBy)
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestAIService_ProcessMessage_HybridDeclinedFallsBackToLocal(t *testing.T) {
	// Arrange
	var hits int64
	server := fakeOllama(t, `{"priority": "normal", "summary": "", "deadline": "", "tags": []}`, http.StatusOK, &hits)
	defer server.Close()

	progress := &captureProgress{}
	svc := newTestService(&dto.AIConfig{
		Mode:             "hybrid",
		LocalModel:       "llama3.1:8b",
		LocalHost:        server.URL,
		APIProvider:      "openai",
		APIKey:           "sk-test",
		ConfirmBeforeAPI: true,
	}, progress)

	type outcome struct {
		result *dto.ClassificationResult
		err    error
	}
	outcomeCh := make(chan outcome, 1)
	go func() {
		result, err := svc.ProcessMessage(context.Background(), dto.ClassifyEmailRequest{
			SessionID: "sess-2",
			MailboxID: "primary",
			Subject:   "Question about thesis direction",
			BodyText:  strings.Repeat("context ", 80),
		})
		outcomeCh <- outcome{result, err}
	}()

	// Act: decline once the classifier parks on the gate.
	require.Eventually(t, func() bool {
		return svc.Confirm("sess-2", false)
	}, 2*time.Second, 10*time.Millisecond)

	// Assert
	select {
	case got := <-outcomeCh:
		require.NoError(t, got.err)
		assert.Equal(t, "local:llama3.1:8b", got.result.ClassifiedBy)
		assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
		assert.Contains(t, progress.phases(), enum.SyncPhaseConfirming)
	case <-time.After(2 * time.Second):
		t.Fatal("classification did not finish after decline")
	}
}

func TestAIService_DecideHybrid_ApprovedRoutesToCloud(t *testing.T) {
	// Arrange
	progress := &captureProgress{}
	svc := newTestService(nil, progress)
	cfg := &dto.AIConfig{
		Mode:             "hybrid",
		APIProvider:      "openai",
		APIKey:           "sk-test",
		ConfirmBeforeAPI: true,
	}
	request := dto.ClassifyEmailRequest{
		SessionID: "sess-3",
		Subject:   "Draft review",
		BodyText:  strings.Repeat("paragraph ", 80),
	}

	type decision struct {
		useCloud bool
		err      error
	}
	decisionCh := make(chan decision, 1)
	go func() {
		useCloud, err := svc.decideHybrid(context.Background(), cfg, request)
		decisionCh <- decision{useCloud, err}
	}()

	// Act
	require.Eventually(t, func() bool {
		return svc.Confirm("sess-3", true)
	}, 2*time.Second, 10*time.Millisecond)

	// Assert
	select {
	case got := <-decisionCh:
		require.NoError(t, got.err)
		assert.True(t, got.useCloud)
	case <-time.After(2 * time.Second):
		t.Fatal("hybrid decision did not resolve after approval")
	}
}

func TestAIService_DecideHybrid_NoConfirmationConfigured(t *testing.T) {
	// Arrange
	svc := newTestService(nil, nil)
	cfg := &dto.AIConfig{Mode: "hybrid", ConfirmBeforeAPI: false}

	// Act
	useCloud, err := svc.decideHybrid(context.Background(), cfg, dto.ClassifyEmailRequest{
		SessionID: "sess-4",
		Subject:   "Plan",
		BodyText:  strings.Repeat("step ", 150),
	})

	// Assert
	require.NoError(t, err)
	assert.True(t, useCloud)
}

func TestAIService_DecideHybrid_NoSessionStaysLocal(t *testing.T) {
	// Arrange
	svc := newTestService(nil, nil)
	cfg := &dto.AIConfig{Mode: "hybrid", ConfirmBeforeAPI: true}

	// Act
	useCloud, err := svc.decideHybrid(context.Background(), cfg, dto.ClassifyEmailRequest{
		Subject:  "Plan",
		BodyText: strings.Repeat("step ", 150),
	})

	// Assert
	require.NoError(t, err)
	assert.False(t, useCloud)
}

func TestAIService_ProcessMessage_CancelledAtGate(t *testing.T) {
	// Arrange
	svc := newTestService(&dto.AIConfig{
		Mode:             "hybrid",
		APIProvider:      "openai",
		APIKey:           "sk-test",
		ConfirmBeforeAPI: true,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())

	type outcome struct {
		result *dto.ClassificationResult
		err    error
	}
	outcomeCh := make(chan outcome, 1)
	go func() {
		result, err := svc.ProcessMessage(ctx, dto.ClassifyEmailRequest{
			SessionID: "sess-5",
			MailboxID: "primary",
			Subject:   "Long request",
			BodyText:  strings.Repeat("detail ", 100),
		})
		outcomeCh <- outcome{result, err}
	}()

	// Act
	time.Sleep(50 * time.Millisecond)
	cancel()

	// Assert
	select {
	case got := <-outcomeCh:
		require.Error(t, got.err)
		assert.ErrorIs(t, got.err, context.Canceled)
		assert.Nil(t, got.result)
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not unblock the gate")
	}
}

func TestConfirmationGate_BroadcastWakesAllWaiters(t *testing.T) {
	// Arrange
	gate := newConfirmationGate()

	type awaited struct {
		approved bool
		err      error
	}
	var wg sync.WaitGroup
	decisions := make(chan awaited, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			approved, err := gate.Await(context.Background(), "sess-6")
			decisions <- awaited{approved, err}
		}()
	}

	// Act
	require.Eventually(t, func() bool {
		return gate.Answer("sess-6", true)
	}, 2*time.Second, 10*time.Millisecond)
	wg.Wait()
	close(decisions)

	// Assert
	count := 0
	for got := range decisions {
		require.NoError(t, got.err)
		assert.True(t, got.approved)
		count++
	}
	assert.Equal(t, 2, count)
}

func TestConfirmationGate_AnswerWithoutRequest(t *testing.T) {
	// Arrange
	gate := newConfirmationGate()

	// Act / Assert
	assert.False(t, gate.Answer("unknown", true))
}

func TestConfirmationGate_DecisionIsRememberedUntilRelease(t *testing.T) {
	// Arrange
	gate := newConfirmationGate()

	done := make(chan struct{})
	go func() {
		_, _ = gate.Await(context.Background(), "sess-7")
		close(done)
	}()
	require.Eventually(t, func() bool {
		return gate.Answer("sess-7", true)
	}, 2*time.Second, 10*time.Millisecond)
	<-done

	// Act: a later Await for the same session resolves immediately.
	approved, err := gate.Await(context.Background(), "sess-7")

	// Assert
	require.NoError(t, err)
	assert.True(t, approved)

	gate.Release("sess-7")
	_, known := gate.Decided("sess-7")
	assert.False(t, known)
}

func TestAIService_TestLocalConnection(t *testing.T) {
	// Arrange
	server := fakeOllama(t, "", http.StatusOK, nil)
	defer server.Close()
	svc := newTestService(nil, nil)

	// Act
	probe, err := svc.TestLocalConnection(context.Background(), server.URL, "llama3.1:8b")

	// Assert
	require.NoError(t, err)
	assert.True(t, probe.Reachable)
	assert.True(t, probe.ModelReady)
	assert.Contains(t, probe.AvailableModels, "qwen2:7b")
}

func TestAIService_TestLocalConnection_ModelNotPulled(t *testing.T) {
	// Arrange
	server := fakeOllama(t, "", http.StatusOK, nil)
	defer server.Close()
	svc := newTestService(nil, nil)

	// Act
	probe, err := svc.TestLocalConnection(context.Background(), server.URL, "mistral")

	// Assert
	require.NoError(t, err)
	assert.True(t, probe.Reachable)
	assert.False(t, probe.ModelReady)
	assert.Contains(t, probe.Message, "mistral")
}

func TestAIService_TestLocalConnection_Unreachable(t *testing.T) {
	// Arrange
	server := fakeOllama(t, "", http.StatusOK, nil)
	server.Close()
	svc := newTestService(nil, nil)

	// Act
	probe, err := svc.TestLocalConnection(context.Background(), server.URL, "llama3.1:8b")

	// Assert
	require.NoError(t, err)
	assert.False(t, probe.Reachable)
	assert.NotEmpty(t, probe.Message)
}

func TestAIService_TestAPIConnection_UnsupportedProvider(t *testing.T) {
	// Arrange
	svc := newTestService(nil, nil)

	// Act
	probe, err := svc.TestAPIConnection(context.Background(), "bedrock", "key", "")

	// Assert
	require.NoError(t, err)
	assert.False(t, probe.Reachable)
	assert.Contains(t, probe.Message, "unsupported AI provider")
}

func TestAIService_TestAPIConnection_MissingKey(t *testing.T) {
	// Arrange
	svc := newTestService(nil, nil)

	// Act
	probe, err := svc.TestAPIConnection(context.Background(), "openai", "", "")

	// Assert
	require.NoError(t, err)
	assert.False(t, probe.Reachable)
	assert.Contains(t, probe.Message, "no API key")
}
