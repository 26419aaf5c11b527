// Package alerts implements C6 (the per-rule alert state machine) and C7
// (noise control) together, since the fire sub-protocol (spec.md §4.6a)
// threads directly through budget/quiet-hours checks before an AlertEvent
// is ever built.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dipsentry/internal/apperrors"
	"github.com/ternarybob/dipsentry/internal/interfaces"
	"github.com/ternarybob/dipsentry/internal/models"
)

// Engine evaluates AlertRules against a MarketContext each cycle,
// persisting AlertState in the KVStore (C12 state tier) and dispatching
// fires through the Notifier (C10).
type Engine struct {
	kv             interfaces.KVStore
	suppressionLog interfaces.SuppressionLogStore
	notifier       interfaces.Notifier
	clock          interfaces.Clock
	noise          *NoiseControl
	logger         arbor.ILogger
}

// NewEngine constructs an Engine from its external collaborators (spec.md
// §9 "explicit handles", not process-global singletons).
func NewEngine(kv interfaces.KVStore, suppressionLog interfaces.SuppressionLogStore, notifier interfaces.Notifier, clock interfaces.Clock, noise *NoiseControl, logger arbor.ILogger) *Engine {
	return &Engine{
		kv:             kv,
		suppressionLog: suppressionLog,
		notifier:       notifier,
		clock:          clock,
		noise:          noise,
		logger:         logger,
	}
}

func stateKey(ruleID string) string {
	return "alert:state:" + ruleID
}

// LoadState returns the persisted AlertState for ruleID/symbol, or a fresh
// IDLE state if none exists yet.
func (e *Engine) LoadState(ctx context.Context, ruleID, symbol string) (models.AlertState, error) {
	raw, found, err := e.kv.Get(ctx, stateKey(ruleID))
	if err != nil {
		return models.AlertState{}, &apperrors.StoreUnavailableError{Err: err}
	}
	if !found {
		return models.NewIdleState(ruleID, symbol, e.clock.Now()), nil
	}
	var state models.AlertState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return models.AlertState{}, fmt.Errorf("corrupt alert state for rule %s: %w", ruleID, err)
	}
	return state, nil
}

// SaveState persists state as JSON under alert:state:{rule_id} (spec.md §6).
func (e *Engine) SaveState(ctx context.Context, state models.AlertState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal alert state: %w", err)
	}
	if err := e.kv.Set(ctx, stateKey(state.RuleID), string(raw)); err != nil {
		return &apperrors.StoreUnavailableError{Err: err}
	}
	return nil
}

// Evaluate runs one tick of the C6 state machine for rule against ctx,
// returning the refreshed state and, when applicable, the AlertEvent
// fired or the SuppressionLog recorded. Invariants from spec.md §3.1 are
// asserted before returning - a violation panics, since it indicates a
// bug rather than a recoverable runtime condition (spec.md §7 "Fatal").
func (e *Engine) Evaluate(ctx context.Context, rule models.AlertRule, marketCtx models.MarketContext, preScore int, localNow time.Time) (models.AlertState, *models.AlertEvent, *models.SuppressionLog, error) {
	now := e.clock.Now()

	state, err := e.LoadState(ctx, rule.ID, rule.Symbol)
	if err != nil {
		return models.AlertState{}, nil, nil, err
	}

	// Step 1: COOLDOWN handling.
	if state.State == models.AlertCooldown {
		if state.CooldownUntil == nil {
			panic(fmt.Errorf("%w: rule %s in COOLDOWN with nil CooldownUntil", apperrors.ErrInvariantViolation, rule.ID))
		}
		if !now.Before(*state.CooldownUntil) {
			state.State = models.AlertIdle
			state.LastTransitionAt = now
			state.CooldownUntil = nil
		} else {
			return state, nil, nil, nil
		}
	}

	// Step 2: evaluate condition.
	eval := evaluateCondition(rule, marketCtx, preScore)
	state.LastValue = &eval.value

	var event *models.AlertEvent
	var suppression *models.SuppressionLog

	switch state.State {
	case models.AlertIdle:
		if eval.met {
			if rule.DebounceSeconds == 0 {
				event, suppression, err = e.fire(ctx, rule, eval, now, localNow)
				if err != nil {
					return state, nil, nil, err
				}
				state.State = models.AlertTriggered
				if event != nil || onlyUpdatesLastTriggered(suppression) {
					state.LastTriggeredAt = &now
				}
			} else {
				state.State = models.AlertArmed
				state.FirstSignalAt = &now
			}
			state.LastTransitionAt = now
		}
	case models.AlertArmed:
		if state.FirstSignalAt == nil {
			panic(fmt.Errorf("%w: rule %s ARMED with nil FirstSignalAt", apperrors.ErrInvariantViolation, rule.ID))
		}
		switch {
		case eval.met && now.Sub(*state.FirstSignalAt) >= time.Duration(rule.DebounceSeconds)*time.Second:
			event, suppression, err = e.fire(ctx, rule, eval, now, localNow)
			if err != nil {
				return state, nil, nil, err
			}
			state.State = models.AlertTriggered
			state.FirstSignalAt = nil
			if event != nil || onlyUpdatesLastTriggered(suppression) {
				state.LastTriggeredAt = &now
			}
			state.LastTransitionAt = now
		case eval.met:
			// Still within debounce window - stay ARMED.
		default:
			state.State = models.AlertIdle
			state.FirstSignalAt = nil
			state.LastTransitionAt = now
		}
	case models.AlertTriggered:
		if resetPredicate(rule, eval) {
			cooldownUntil := now.Add(time.Duration(rule.CooldownSeconds) * time.Second)
			state.CooldownUntil = &cooldownUntil
			state.State = models.AlertCooldown
			state.LastTransitionAt = now
		}
	}

	if err := e.SaveState(ctx, state); err != nil {
		return state, event, suppression, err
	}

	e.assertInvariants(rule.ID, state)
	return state, event, suppression, nil
}

// onlyUpdatesLastTriggered mirrors spec.md §4.6a's QUIET_HOURS branch,
// which explicitly says to update last_triggered_at even though no
// notification is sent - the BUDGET branch does not say so, and that
// asymmetry is preserved rather than "fixed".
func onlyUpdatesLastTriggered(s *models.SuppressionLog) bool {
	return s != nil && s.Reason == models.ReasonQuietHours
}

// fire implements spec.md §4.6a: quiet-hours gate, then budget gate, then
// dispatch.
func (e *Engine) fire(ctx context.Context, rule models.AlertRule, eval evaluation, now, localNow time.Time) (*models.AlertEvent, *models.SuppressionLog, error) {
	if e.noise.InQuietHours(localNow, rule.Priority) {
		sup := e.logSuppression(ctx, rule, now, models.ReasonQuietHours, nil)
		return nil, sup, nil
	}

	denied, err := e.noise.CheckBudget(ctx, rule.UserID, rule.Symbol, now)
	if err != nil {
		return nil, nil, err
	}
	if denied {
		sup := e.logSuppression(ctx, rule, now, models.ReasonBudget, nil)
		return nil, sup, nil
	}

	event := models.AlertEvent{
		ID:        uuid.New().String(),
		RuleID:    rule.ID,
		Symbol:    rule.Symbol,
		FiredAt:   now,
		Priority:  rule.Priority,
		Value:     eval.value,
		Threshold: rule.Threshold,
		Message:   fireMessage(rule, eval),
	}

	pushSent, dispatchErr := e.notifier.Dispatch(ctx, event)
	event.PushSent = pushSent
	if dispatchErr != nil {
		e.logger.Warn().Err(dispatchErr).Str("rule_id", rule.ID).Msg("notifier partial failure")
	}

	if err := e.noise.ConsumeBudget(ctx, rule.UserID, rule.Symbol, now); err != nil {
		e.logger.Warn().Err(err).Str("rule_id", rule.ID).Msg("failed to consume budget - best-effort degrade")
	}

	return &event, nil, nil
}

func (e *Engine) logSuppression(ctx context.Context, rule models.AlertRule, now time.Time, reason models.SuppressionReason, meta map[string]any) *models.SuppressionLog {
	entry := models.SuppressionLog{
		ID:        uuid.New().String(),
		RuleID:    rule.ID,
		Symbol:    rule.Symbol,
		Timestamp: now,
		Reason:    reason,
		Meta:      meta,
	}
	if e.suppressionLog != nil {
		if err := e.suppressionLog.Append(ctx, entry); err != nil {
			e.logger.Warn().Err(err).Str("rule_id", rule.ID).Msg("failed to append suppression log")
		}
	}
	return &entry
}

func fireMessage(rule models.AlertRule, eval evaluation) string {
	return fmt.Sprintf("%s fired for %s: value=%.4f threshold=%.4f", rule.Condition, rule.Symbol, eval.value, rule.Threshold)
}

func (e *Engine) assertInvariants(ruleID string, state models.AlertState) {
	if (state.State == models.AlertCooldown) != (state.CooldownUntil != nil) {
		panic(fmt.Errorf("%w: rule %s state=%s cooldown_until=%v", apperrors.ErrInvariantViolation, ruleID, state.State, state.CooldownUntil))
	}
	if (state.State == models.AlertArmed) != (state.FirstSignalAt != nil) {
		panic(fmt.Errorf("%w: rule %s state=%s first_signal_at=%v", apperrors.ErrInvariantViolation, ruleID, state.State, state.FirstSignalAt))
	}
}
