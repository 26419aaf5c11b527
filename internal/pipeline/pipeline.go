// Package pipeline implements the scheduler/orchestration layer: fetching
// bars, computing indicators and dip metrics, evaluating alert rules,
// aggregating sector breadth, stepping the sector state machine, and
// ranking/emitting suggestion bundles, all on independent cron cadences.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dipsentry/internal/alerts"
	"github.com/ternarybob/dipsentry/internal/apperrors"
	"github.com/ternarybob/dipsentry/internal/dip"
	"github.com/ternarybob/dipsentry/internal/indicators"
	"github.com/ternarybob/dipsentry/internal/interfaces"
	"github.com/ternarybob/dipsentry/internal/models"
	"github.com/ternarybob/dipsentry/internal/ranker"
	"github.com/ternarybob/dipsentry/internal/scoring"
	"github.com/ternarybob/dipsentry/internal/sectoragg"
	"github.com/ternarybob/dipsentry/internal/sectorstate"
	"github.com/ternarybob/dipsentry/internal/suggestions"
)

// SectorDefinition is the static sector->symbol membership the sector
// cycle aggregates over, with optional per-symbol weights (equal-weighted
// when omitted or non-positive, per sectoragg's renormalization).
type SectorDefinition struct {
	SectorID   string
	SectorName string
	Symbols    []string
	Weights    map[string]float64
}

// Pipeline wires every evaluation-time collaborator behind the two
// scheduled cycles. All dependencies are passed in explicitly rather than
// resolved from globals.
type Pipeline struct {
	bars     interfaces.BarSource
	rules    interfaces.RuleStore
	clock    interfaces.Clock
	kv       interfaces.KVStore
	engine   *alerts.Engine
	notifier interfaces.Notifier
	logger   arbor.ILogger

	sectors        []SectorDefinition
	filters        scoring.Filters
	thresholds     sectorstate.Thresholds
	marketHours    MarketHours
	barHistoryDays int
	candidateLimit int
	concurrency    int
}

// Config bundles Pipeline's tunables so NewPipeline doesn't take an
// unreadable parameter list.
type Config struct {
	Sectors        []SectorDefinition
	Filters        scoring.Filters
	Thresholds     sectorstate.Thresholds
	MarketHours    MarketHours
	BarHistoryDays int
	CandidateLimit int
	Concurrency    int
}

// NewPipeline constructs a Pipeline from its collaborators and tunables.
func NewPipeline(bars interfaces.BarSource, rules interfaces.RuleStore, clock interfaces.Clock, kv interfaces.KVStore, engine *alerts.Engine, notifier interfaces.Notifier, logger arbor.ILogger, cfg Config) *Pipeline {
	if cfg.BarHistoryDays <= 0 {
		cfg.BarHistoryDays = indicators.SMA200Period
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = ranker.DefaultLimit
	}
	return &Pipeline{
		bars:           bars,
		rules:          rules,
		clock:          clock,
		kv:             kv,
		engine:         engine,
		notifier:       notifier,
		logger:         logger,
		sectors:        cfg.Sectors,
		filters:        cfg.Filters,
		thresholds:     cfg.Thresholds,
		marketHours:    cfg.MarketHours,
		barHistoryDays: cfg.BarHistoryDays,
		candidateLimit: cfg.CandidateLimit,
		concurrency:    cfg.Concurrency,
	}
}

// symbolMetrics is the per-symbol computation shared by the alert cycle
// and the sector cycle, so both draw on the exact same indicator values
// for a given bar set.
type symbolMetrics struct {
	ctx      models.MarketContext
	preScore models.PreScoreResult
}

// computeSymbol fetches bars for symbol and derives its MarketContext and
// pre-score. A TransientFetchError or InsufficientDataError is returned
// as a skippable error, never a crash.
func (p *Pipeline) computeSymbol(ctx context.Context, symbol string) (symbolMetrics, error) {
	bars, err := p.bars.Fetch(ctx, symbol, "1d", p.barHistoryDays)
	if err != nil {
		return symbolMetrics{}, &apperrors.TransientFetchError{Symbol: symbol, Err: err}
	}
	if len(bars) == 0 {
		return symbolMetrics{}, &apperrors.InsufficientDataError{Symbol: symbol, Have: 0, Required: indicators.SMA200Period}
	}

	closes := models.Closes(bars)
	highs := models.Highs(bars)
	volumes := models.Volumes(bars)

	if len(closes) < indicators.SMA200Period {
		return symbolMetrics{}, &apperrors.InsufficientDataError{Symbol: symbol, Have: len(closes), Required: indicators.SMA200Period}
	}

	rsi, err := indicators.RSI(closes, indicators.RSIPeriod)
	if err != nil {
		return symbolMetrics{}, &apperrors.InsufficientDataError{Symbol: symbol, Have: len(closes), Required: indicators.RSIPeriod + 1}
	}
	macd, err := indicators.MACD(closes, indicators.MACDFastPeriod, indicators.MACDSlowPeriod, indicators.MACDSignalPeriod)
	if err != nil {
		return symbolMetrics{}, &apperrors.InsufficientDataError{Symbol: symbol, Have: len(closes), Required: indicators.MACDSlowPeriod + indicators.MACDSignalPeriod}
	}
	sma20, err := indicators.SMA(closes, indicators.SMA20Period)
	if err != nil {
		return symbolMetrics{}, &apperrors.InsufficientDataError{Symbol: symbol, Have: len(closes), Required: indicators.SMA20Period}
	}
	sma200, err := indicators.SMA(closes, indicators.SMA200Period)
	if err != nil {
		return symbolMetrics{}, &apperrors.InsufficientDataError{Symbol: symbol, Have: len(closes), Required: indicators.SMA200Period}
	}
	boll, err := indicators.Bollinger(closes, indicators.BollingerPeriod, indicators.BollingerK)
	if err != nil {
		return symbolMetrics{}, &apperrors.InsufficientDataError{Symbol: symbol, Have: len(closes), Required: indicators.BollingerPeriod}
	}
	volAvg, err := indicators.VolumeAverage(volumes, indicators.VolumeAveragePeriod)
	if err != nil {
		return symbolMetrics{}, &apperrors.InsufficientDataError{Symbol: symbol, Have: len(volumes), Required: indicators.VolumeAveragePeriod}
	}

	dipWindow := dip.DefaultWindow
	if len(highs) < dipWindow {
		dipWindow = len(highs)
	}
	dipResult, err := dip.Evaluate(highs, closes[len(closes)-1], dipWindow)
	if err != nil {
		return symbolMetrics{}, &apperrors.InsufficientDataError{Symbol: symbol, Have: len(highs), Required: dipWindow}
	}

	last := bars[len(bars)-1]
	marketCtx := models.MarketContext{
		Symbol:        symbol,
		Close:         last.Close,
		CurrentVolume: last.Volume,
		Indicators: models.IndicatorSet{
			RSI: rsi, MACDLine: macd.Line, MACDSignal: macd.Signal, MACDHistogram: macd.Histogram,
			SMA20: sma20, SMA200: sma200,
			BollingerMid: boll.Middle, BollingerUpper: boll.Upper, BollingerLower: boll.Lower,
			VolumeAvg20: volAvg,
		},
		Dip:  dipResult,
		ADTV: last.Close * volAvg,
	}

	return symbolMetrics{ctx: marketCtx, preScore: scoring.Score(marketCtx, p.filters)}, nil
}

// AlertCycle evaluates every enabled rule against its symbol's latest
// MarketContext, fanned out across symbols with bounded concurrency.
func (p *Pipeline) AlertCycle(ctx context.Context) error {
	rules, err := p.rules.List(ctx, "", "")
	if err != nil {
		return &apperrors.StoreUnavailableError{Err: err}
	}

	bySymbol := make(map[string][]models.AlertRule)
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if err := alerts.ValidateRule(rule); err != nil {
			p.logger.Warn().Err(err).Str("rule_id", rule.ID).Msg("skipping malformed rule this alert cycle")
			continue
		}
		bySymbol[rule.Symbol] = append(bySymbol[rule.Symbol], rule)
	}

	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		symbols = append(symbols, symbol)
	}

	localNow := p.clock.LocalNow()
	errs := FanOut(ctx, p.concurrency, symbols, func(ctx context.Context, symbol string) error {
		metrics, err := p.computeSymbol(ctx, symbol)
		if err != nil {
			return err
		}
		for _, rule := range bySymbol[symbol] {
			if _, _, _, err := p.engine.Evaluate(ctx, rule, metrics.ctx, metrics.preScore.Score, localNow); err != nil {
				p.logger.Warn().Err(err).Str("rule_id", rule.ID).Str("symbol", symbol).Msg("rule evaluation failed")
			}
		}
		return nil
	})

	for _, err := range errs {
		if apperrors.IsSkippable(err) {
			p.logger.Debug().Err(err).Msg("skipping symbol this alert cycle")
			continue
		}
		p.logger.Error().Err(err).Msg("alert cycle symbol failed")
	}
	return nil
}

// SectorCycle aggregates breadth per configured sector, steps the sector
// state machine, and emits a ranked suggestion bundle when warranted.
// Gated to the configured trading session - the alert cycle deliberately
// is not (see DESIGN.md).
func (p *Pipeline) SectorCycle(ctx context.Context) error {
	now := p.clock.Now()
	if !p.marketHours.IsOpen(p.clock.LocalNow()) {
		p.logger.Debug().Msg("sector cycle skipped, market closed")
		return nil
	}

	for _, sector := range p.sectors {
		if err := p.runSector(ctx, sector, now); err != nil {
			if apperrors.IsSkippable(err) {
				p.logger.Debug().Err(err).Str("sector_id", sector.SectorID).Msg("skipping sector this cycle")
				continue
			}
			p.logger.Error().Err(err).Str("sector_id", sector.SectorID).Msg("sector cycle failed")
		}
	}
	return nil
}

func (p *Pipeline) runSector(ctx context.Context, sector SectorDefinition, now time.Time) error {
	members := make([]models.MemberData, 0, len(sector.Symbols))
	candidates := make([]models.RankedCandidate, 0, len(sector.Symbols))

	for _, symbol := range sector.Symbols {
		metrics, err := p.computeSymbol(ctx, symbol)
		if err != nil {
			p.logger.Debug().Err(err).Str("symbol", symbol).Msg("skipping constituent this sector cycle")
			continue
		}

		rsi := metrics.ctx.Indicators.RSI
		sma200 := metrics.ctx.Indicators.SMA200
		lower := metrics.ctx.Indicators.BollingerLower
		members = append(members, models.MemberData{
			Symbol:        symbol,
			Weight:        sector.Weights[symbol],
			Price:         metrics.ctx.Close,
			RSI:           &rsi,
			SMA200:        &sma200,
			BollingerLower: &lower,
			CurrentVolume: metrics.ctx.CurrentVolume,
			VolumeAvg:     metrics.ctx.Indicators.VolumeAvg20,
			DipPct:        metrics.ctx.Dip.DipPct,
		})

		if !metrics.preScore.Filtered && metrics.preScore.Score > 0 {
			candidates = append(candidates, models.RankedCandidate{
				Symbol:   symbol,
				PreScore: metrics.preScore.Score,
				Reasons:  metrics.preScore.Reasons,
				Flags:    metrics.preScore.Flags,
				ADTV:     metrics.ctx.ADTV,
				Close:    metrics.ctx.Close,
				SMA200:   sma200,
				Lower:    lower,
			})
		}
	}

	if len(members) == 0 {
		return &apperrors.InsufficientDataError{Symbol: sector.SectorID, Have: 0, Required: 1}
	}

	snapshot := sectoragg.Aggregate(sector.SectorID, sector.SectorName, members, now)

	record, err := p.loadSectorState(ctx, sector.SectorID, now)
	if err != nil {
		return err
	}

	record, event := sectorstate.Step(record, snapshot, p.thresholds, now)
	if err := p.saveSectorState(ctx, record); err != nil {
		return err
	}
	if event == nil {
		return nil
	}

	p.logger.Info().Str("sector_id", sector.SectorID).Str("previous_state", string(event.PreviousState)).Str("new_state", string(event.NewState)).Str("reason", event.TriggerReason).Msg("sector state transition")

	history, err := p.loadBundleHistory(ctx, sector.SectorID)
	if err != nil {
		return err
	}
	if !suggestions.ShouldEmit(*event, history, now) {
		return nil
	}

	ranked := ranker.Rank(candidates, p.candidateLimit)
	bundle := suggestions.BuildBundle(*event, ranked, now)
	history.AppendBundle(bundle)
	if err := p.saveBundleHistory(ctx, history); err != nil {
		return err
	}

	p.logger.Info().Str("sector_id", sector.SectorID).Str("bundle_id", bundle.BundleID).Int("candidates", len(bundle.Candidates)).Msg("suggestion bundle emitted")
	return nil
}

func sectorStateKey(sectorID string) string  { return "sector:state:" + sectorID }
func bundleHistoryKey(sectorID string) string { return "sector:bundles:" + sectorID }

func (p *Pipeline) loadSectorState(ctx context.Context, sectorID string, now time.Time) (models.SectorStateRecord, error) {
	raw, found, err := p.kv.Get(ctx, sectorStateKey(sectorID))
	if err != nil {
		return models.SectorStateRecord{}, &apperrors.StoreUnavailableError{Err: err}
	}
	if !found {
		return models.NewNormalSectorState(sectorID, now), nil
	}
	var record models.SectorStateRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return models.SectorStateRecord{}, fmt.Errorf("corrupt sector state for %s: %w", sectorID, err)
	}
	return record, nil
}

func (p *Pipeline) saveSectorState(ctx context.Context, record models.SectorStateRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal sector state: %w", err)
	}
	if err := p.kv.Set(ctx, sectorStateKey(record.SectorID), string(raw)); err != nil {
		return &apperrors.StoreUnavailableError{Err: err}
	}
	return nil
}

func (p *Pipeline) loadBundleHistory(ctx context.Context, sectorID string) (models.BundleHistory, error) {
	raw, found, err := p.kv.Get(ctx, bundleHistoryKey(sectorID))
	if err != nil {
		return models.BundleHistory{}, &apperrors.StoreUnavailableError{Err: err}
	}
	if !found {
		return models.BundleHistory{SectorID: sectorID}, nil
	}
	var history models.BundleHistory
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return models.BundleHistory{}, fmt.Errorf("corrupt bundle history for %s: %w", sectorID, err)
	}
	return history, nil
}

func (p *Pipeline) saveBundleHistory(ctx context.Context, history models.BundleHistory) error {
	raw, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal bundle history: %w", err)
	}
	if err := p.kv.Set(ctx, bundleHistoryKey(history.SectorID), string(raw)); err != nil {
		return &apperrors.StoreUnavailableError{Err: err}
	}
	return nil
}
