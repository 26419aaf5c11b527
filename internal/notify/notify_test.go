package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dipsentry/internal/models"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func sampleEvent() models.AlertEvent {
	return models.AlertEvent{
		ID: "evt_1", RuleID: "r1", Symbol: "ABC",
		Priority: models.PriorityHigh, Value: 9.0, Threshold: 5.0,
		Message: "DIP_GT fired for ABC",
	}
}

func TestFanOut_AllProvidersSucceed(t *testing.T) {
	console := NewConsoleNotificationProvider(testLogger())
	fcm := NewMockFCMProvider(nil)
	fanout := NewFanOut(testLogger(), console, fcm)

	ok, err := fanout.Dispatch(context.Background(), sampleEvent())

	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, fcm.Sent, 1)
	assert.Equal(t, "r1_ABC", fcm.Sent[0].CollapseKey)
	assert.Equal(t, "high", fcm.Sent[0].Priority)
}

func TestFanOut_PartialFailureStillAttemptsAllAndReportsFalse(t *testing.T) {
	fcm := NewMockFCMProvider(nil)
	fcm.FailNext()
	console := NewConsoleNotificationProvider(testLogger())
	fanout := NewFanOut(testLogger(), fcm, console)

	ok, err := fanout.Dispatch(context.Background(), sampleEvent())

	assert.False(t, ok)
	require.Error(t, err)
	assert.Empty(t, fcm.Sent)
}

func TestFanOut_NoProvidersConfiguredFails(t *testing.T) {
	fanout := NewFanOut(testLogger())
	ok, err := fanout.Dispatch(context.Background(), sampleEvent())
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestAndroidPriority(t *testing.T) {
	assert.Equal(t, "high", AndroidPriority(models.PriorityHigh))
	assert.Equal(t, "normal", AndroidPriority(models.PriorityMedium))
	assert.Equal(t, "normal", AndroidPriority(models.PriorityLow))
}

func TestCollapseKey(t *testing.T) {
	assert.Equal(t, "r1_ABC", CollapseKey(sampleEvent()))
}
