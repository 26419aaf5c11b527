// Command dipsentry runs the scheduled dip-monitoring and alerting
// evaluation pipeline: C11's alert cycle and sector cycle on independent
// cron cadences, backed by the badgerkv state tier and the sqlitestore
// rule store / suppression log.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dipsentry/internal/alerts"
	"github.com/ternarybob/dipsentry/internal/common"
	"github.com/ternarybob/dipsentry/internal/config"
	"github.com/ternarybob/dipsentry/internal/interfaces"
	"github.com/ternarybob/dipsentry/internal/marketdata"
	"github.com/ternarybob/dipsentry/internal/notify"
	"github.com/ternarybob/dipsentry/internal/pipeline"
	"github.com/ternarybob/dipsentry/internal/scoring"
	"github.com/ternarybob/dipsentry/internal/sectorstate"
	"github.com/ternarybob/dipsentry/internal/storage/badgerkv"
	"github.com/ternarybob/dipsentry/internal/storage/sqlitestore"
)

// configPaths supports repeated -config flags, later files overriding
// earlier ones, matching the teacher's cmd/quaero flag shape.
type configPaths []string

func (c *configPaths) String() string { return fmt.Sprintf("%v", *c) }
func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	badgerPath  = flag.String("badger-path", "", "State KV path (overrides config)")
	sqlitePath  = flag.String("sqlite-path", "", "Rule store path (overrides config)")
	logLevel    = flag.String("log-level", "", "Log level (overrides config)")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (repeatable, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("dipsentry version %s\n", common.GetVersion())
		return
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("dipsentry.toml"); err == nil {
			configFiles = append(configFiles, "dipsentry.toml")
		}
	}

	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}
	config.ApplyFlagOverrides(cfg, *badgerPath, *sqlitePath, *logLevel)

	logger := common.SetupLogger(cfg)
	defer common.Stop()

	correlationID := common.NewCorrelationID()
	common.PrintBanner(cfg, correlationID, logger)

	app, err := wire(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire application")
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.scheduler.Warmup(ctx)
	if err := app.scheduler.Start(ctx, cfg.Pipeline.AlertCycleMinutes, cfg.Pipeline.SectorCycleMinutes); err != nil {
		logger.Fatal().Err(err).Msg("failed to start scheduler")
	}

	logger.Info().Msg("dipsentry ready - press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	common.PrintShutdownBanner(logger)
	app.scheduler.Stop()
	cancel()
	time.Sleep(100 * time.Millisecond)
}

// application bundles every wired collaborator so main can close them in
// one place on shutdown.
type application struct {
	scheduler *pipeline.Scheduler
	badgerDB  *badgerkv.DB
	sqliteDB  *sqlitestore.DB
}

func (a *application) Close() {
	if a.badgerDB != nil {
		_ = a.badgerDB.Close()
	}
	if a.sqliteDB != nil {
		_ = a.sqliteDB.Close()
	}
}

// wire constructs every collaborator named in spec.md §9 ("explicit
// handles, not process-global singletons") and assembles the two
// scheduled cycles behind a Scheduler.
func wire(cfg *config.Config, logger arbor.ILogger) (*application, error) {
	loc, err := time.LoadLocation(cfg.Pipeline.ExchangeTimezone)
	if err != nil {
		logger.Warn().Err(err).Str("timezone", cfg.Pipeline.ExchangeTimezone).Msg("unresolvable exchange timezone, falling back to UTC")
		loc = time.UTC
	}
	clock := common.NewSystemClock(loc)

	badgerDB, err := badgerkv.Open(logger, cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("open state KV: %w", err)
	}
	kv := badgerkv.NewKVStorage(badgerDB, logger)

	sqliteDB, err := sqlitestore.Open(logger, cfg.Storage.SQLite)
	if err != nil {
		_ = badgerDB.Close()
		return nil, fmt.Errorf("open rule store: %w", err)
	}
	ruleStore := sqlitestore.NewRuleStore(sqliteDB, logger)
	suppressionLog := sqlitestore.NewSuppressionLogStore(sqliteDB, logger)

	var providers []interfaces.NotificationProvider
	if cfg.Notify.Console {
		providers = append(providers, notify.NewConsoleNotificationProvider(logger))
	}
	if cfg.Notify.FCM {
		providers = append(providers, notify.NewMockFCMProvider(nil))
	}
	if len(providers) == 0 {
		providers = append(providers, notify.NewConsoleNotificationProvider(logger))
	}
	notifier := notify.NewFanOut(logger, providers...)

	noise := alerts.NewNoiseControl(kv, cfg.NoiseControl.DailyUserCap, cfg.NoiseControl.DailySymbolCap, cfg.NoiseControl.QuietStart, cfg.NoiseControl.QuietEnd)
	engine := alerts.NewEngine(kv, suppressionLog, notifier, clock, noise, logger)

	bars := marketdata.NewDemoSource()

	sectors := defaultSectorUniverse()
	marketHours := pipeline.NewDefaultMarketHours(loc)

	p := pipeline.NewPipeline(bars, ruleStore, clock, kv, engine, notifier, logger, pipeline.Config{
		Sectors:        sectors,
		Filters:        scoring.DefaultFilters(),
		Thresholds:     sectorstate.DefaultThresholds(),
		MarketHours:    marketHours,
		BarHistoryDays: cfg.Pipeline.BarHistoryDays,
		CandidateLimit: cfg.Pipeline.CandidateLimit,
		Concurrency:    pipeline.DefaultConcurrency,
	})

	scheduler := pipeline.NewScheduler(logger, p.AlertCycle, p.SectorCycle)

	return &application{scheduler: scheduler, badgerDB: badgerDB, sqliteDB: sqliteDB}, nil
}

// defaultSectorUniverse is a small placeholder sector->symbol membership
// map; production deployments load this from a sector-membership source
// external to this core (spec.md §1), not hardcoded here.
func defaultSectorUniverse() []pipeline.SectorDefinition {
	return []pipeline.SectorDefinition{
		{SectorID: "materials", SectorName: "Materials", Symbols: []string{"BHP", "RIO", "FMG"}},
		{SectorID: "financials", SectorName: "Financials", Symbols: []string{"CBA", "WBC", "NAB", "ANZ"}},
		{SectorID: "healthcare", SectorName: "Healthcare", Symbols: []string{"CSL", "RMD", "COH"}},
	}
}
