package notify

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dipsentry/internal/models"
)

// ConsoleNotificationProvider writes alert events through the structured
// logger, standing in for a real push channel in local and test
// deployments.
type ConsoleNotificationProvider struct {
	logger arbor.ILogger
}

// NewConsoleNotificationProvider constructs a ConsoleNotificationProvider.
func NewConsoleNotificationProvider(logger arbor.ILogger) *ConsoleNotificationProvider {
	return &ConsoleNotificationProvider{logger: logger}
}

func (c *ConsoleNotificationProvider) Name() string { return "console" }

func (c *ConsoleNotificationProvider) Send(_ context.Context, event models.AlertEvent) error {
	c.logger.Info().
		Str("rule_id", event.RuleID).
		Str("symbol", event.Symbol).
		Str("priority", string(event.Priority)).
		Float64("value", event.Value).
		Str("collapse_key", CollapseKey(event)).
		Msg(event.Message)
	return nil
}
