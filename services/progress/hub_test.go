package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/internal/enum"
	"github.com/mailsift/mailsift/internal/logger"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func drain(ch <-chan dto.ProgressEvent) []dto.ProgressEvent {
	var events []dto.ProgressEvent
	for event := range ch {
		events = append(events, event)
	}
	return events
}

func TestHub_DeliversEventsInOrder(t *testing.T) {
	// Arrange
	h := NewProgressHub(getLogger())
	ch, cancel := h.Subscribe("s1")
	defer cancel()

	// Act
	h.EmitStatus("s1", enum.SyncPhaseConnecting, "connecting to imap.campus.edu")
	h.EmitProgress("s1", 3, 10, 3, 1, "")
	h.EmitComplete("s1", 10, 9, "synced 10 messages")

	// Assert
	events := drain(ch)
	require.Len(t, events, 3)
	assert.Equal(t, enum.ProgressEventStatus, events[0].Type)
	assert.Equal(t, enum.SyncPhaseConnecting, events[0].Phase)
	assert.Equal(t, enum.ProgressEventProgress, events[1].Type)
	assert.Equal(t, 3, events[1].Current)
	assert.Equal(t, 10, events[1].Total)
	assert.Equal(t, enum.ProgressEventComplete, events[2].Type)
	assert.Equal(t, 10, events[2].Synced)
	assert.Equal(t, 9, events[2].Classified)

	// Seq climbs monotonically.
	assert.Equal(t, uint64(1), events[0].Seq)
	assert.Equal(t, uint64(2), events[1].Seq)
	assert.Equal(t, uint64(3), events[2].Seq)
}

func TestHub_ExactlyOneTerminalEvent(t *testing.T) {
	// Arrange
	h := NewProgressHub(getLogger())
	ch, cancel := h.Subscribe("s2")
	defer cancel()

	// Act: the error after complete must be swallowed.
	h.EmitComplete("s2", 5, 5, "done")
	h.EmitError("s2", "late failure")
	h.EmitProgress("s2", 1, 1, 0, 0, "late progress")

	// Assert
	events := drain(ch)
	require.Len(t, events, 1)
	assert.Equal(t, enum.ProgressEventComplete, events[0].Type)
}

func TestHub_SubscribeAfterTerminalGetsClosedChannel(t *testing.T) {
	// Arrange
	h := NewProgressHub(getLogger())
	h.EmitError("s3", "imap unreachable")

	// Act
	ch, cancel := h.Subscribe("s3")
	defer cancel()

	// Assert
	_, open := <-ch
	assert.False(t, open)
}

func TestHub_MultipleSubscribers(t *testing.T) {
	// Arrange
	h := NewProgressHub(getLogger())
	ch1, cancel1 := h.Subscribe("s4")
	ch2, cancel2 := h.Subscribe("s4")
	defer cancel1()
	defer cancel2()

	// Act
	h.EmitStatus("s4", enum.SyncPhaseListing, "")
	h.EmitComplete("s4", 1, 1, "")

	// Assert
	assert.Len(t, drain(ch1), 2)
	assert.Len(t, drain(ch2), 2)
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	// Arrange
	h := NewProgressHub(getLogger())
	ch, cancel := h.Subscribe("s5")
	defer cancel()

	// Act: overflow the buffer without draining. Emits must not block.
	for i := 0; i < subscriberBuffer+20; i++ {
		h.EmitProgress("s5", i, subscriberBuffer+20, 0, 0, "")
	}
	h.EmitComplete("s5", 0, 0, "")

	// Assert: the buffer holds the first events, the rest were dropped,
	// and the closed channel still signals the end of the stream.
	events := drain(ch)
	assert.Len(t, events, subscriberBuffer)
	assert.Equal(t, uint64(1), events[0].Seq)
}

func TestHub_CancelDetachesSubscriber(t *testing.T) {
	// Arrange
	h := NewProgressHub(getLogger())
	ch, cancel := h.Subscribe("s6")

	// Act
	h.EmitStatus("s6", enum.SyncPhaseConnecting, "")
	cancel()
	h.EmitStatus("s6", enum.SyncPhaseListing, "")
	// A second cancel is a no-op, not a double close.
	cancel()

	// Assert
	events := drain(ch)
	require.Len(t, events, 1)
	assert.Equal(t, enum.SyncPhaseConnecting, events[0].Phase)
}

func TestHub_CancelAfterTerminalIsSafe(t *testing.T) {
	// Arrange
	h := NewProgressHub(getLogger())
	ch, cancel := h.Subscribe("s7")

	// Act
	h.EmitComplete("s7", 2, 2, "")
	cancel()

	// Assert
	events := drain(ch)
	require.Len(t, events, 1)
	assert.True(t, events[0].Type.Terminal())
}
