package alerts

import (
	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/dipsentry/internal/apperrors"
	"github.com/ternarybob/dipsentry/internal/models"
)

var ruleValidator = validator.New()

// ValidateRule struct-tag-validates an AlertRule (condition/priority enum
// membership, non-negative durations). A failure is wrapped as a
// ConfigurationError so the caller skips the rule for the cycle instead of
// crashing (spec.md §7).
func ValidateRule(rule models.AlertRule) error {
	if err := ruleValidator.Struct(rule); err != nil {
		return &apperrors.ConfigurationError{RuleID: rule.ID, Err: err}
	}
	return nil
}
