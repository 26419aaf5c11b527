package models

import "time"

// AlertRule is a user-defined rule evaluated once per alert cycle against a
// single symbol. Validated with go-playground/validator by the alert cycle
// before evaluation (internal/alerts.ValidateRule), converting tag failures into a
// ConfigurationError so a malformed rule is skipped, not fatal.
type AlertRule struct {
	ID                 string         `json:"id" validate:"required"`
	UserID             string         `json:"user_id" validate:"required"`
	Symbol             string         `json:"symbol" validate:"required"`
	Condition          AlertCondition `json:"condition" validate:"required,oneof=DIP_GT RSI_LT MACD_BULLISH VOLUME_SPIKE PRE_SCORE_GT"`
	Threshold          float64        `json:"threshold"`
	DebounceSeconds    int            `json:"debounce_seconds" validate:"gte=0"`
	HysteresisReset    float64        `json:"hysteresis_reset" validate:"gte=0"`
	CooldownSeconds    int            `json:"cooldown_seconds" validate:"gte=0"`
	Priority           Priority       `json:"priority" validate:"required,oneof=HIGH MEDIUM LOW"`
	Enabled            bool           `json:"enabled"`
	// ConfirmWindowSeconds is persisted and validated but has no consumer in
	// this implementation - see DESIGN.md (spec.md §9 open question).
	ConfirmWindowSeconds int       `json:"confirm_window_seconds" validate:"gte=0"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
