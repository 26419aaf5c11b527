// Package notify implements C10: fan-out dispatch of an AlertEvent across
// one or more NotificationProviders.
package notify

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dipsentry/internal/interfaces"
	"github.com/ternarybob/dipsentry/internal/models"
)

// FanOut composes multiple NotificationProviders behind a single Notifier.
// Dispatch attempts delivery through every provider regardless of earlier
// failures, and reports success only when all of them succeeded.
type FanOut struct {
	providers []interfaces.NotificationProvider
	logger    arbor.ILogger
}

// NewFanOut constructs a FanOut over providers, in the order they'll be
// attempted each dispatch.
func NewFanOut(logger arbor.ILogger, providers ...interfaces.NotificationProvider) *FanOut {
	return &FanOut{providers: providers, logger: logger}
}

// Dispatch sends event through every configured provider. A provider
// failure is logged and does not short-circuit the remaining providers;
// the returned bool is true only if every provider succeeded.
func (f *FanOut) Dispatch(ctx context.Context, event models.AlertEvent) (bool, error) {
	if len(f.providers) == 0 {
		return false, fmt.Errorf("notify: no providers configured")
	}

	allOK := true
	var firstErr error
	for _, p := range f.providers {
		if err := p.Send(ctx, event); err != nil {
			allOK = false
			if firstErr == nil {
				firstErr = err
			}
			f.logger.Warn().Err(err).Str("provider", p.Name()).Str("rule_id", event.RuleID).Msg("notification provider failed")
			continue
		}
		f.logger.Debug().Str("provider", p.Name()).Str("rule_id", event.RuleID).Msg("notification delivered")
	}

	if !allOK {
		return false, firstErr
	}
	return true, nil
}

// CollapseKey returns the Android/FCM collapse key for event, grouping
// repeated fires of the same rule against the same symbol on the client.
func CollapseKey(event models.AlertEvent) string {
	return fmt.Sprintf("%s_%s", event.RuleID, event.Symbol)
}

// AndroidPriority maps an alert Priority to an FCM android message
// priority: only HIGH gets the "high" delivery class, everything else is
// "normal" so it doesn't wake the device.
func AndroidPriority(p models.Priority) string {
	if p == models.PriorityHigh {
		return "high"
	}
	return "normal"
}
