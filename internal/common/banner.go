package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"

	"github.com/ternarybob/dipsentry/internal/config"
)

// PrintBanner displays the startup banner and logs the same information
// as structured fields, the way the teacher's PrintBanner does.
func PrintBanner(cfg *config.Config, correlationID string, logger arbor.ILogger) {
	version := GetVersion()
	build := GetBuild()

	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorCyan).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(72)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("DIPSENTRY")
	b.PrintCenteredText("Dip Monitoring & Alerting Engine")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 15)
	b.PrintKeyValue("Build", build, 15)
	b.PrintKeyValue("Environment", cfg.Environment, 15)
	b.PrintKeyValue("Alert cycle", fmt.Sprintf("%dm", cfg.Pipeline.AlertCycleMinutes), 15)
	b.PrintKeyValue("Sector cycle", fmt.Sprintf("%dm", cfg.Pipeline.SectorCycleMinutes), 15)
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("version", version).
		Str("build", build).
		Str("environment", cfg.Environment).
		Str("correlation_id", correlationID).
		Int("alert_cycle_minutes", cfg.Pipeline.AlertCycleMinutes).
		Int("sector_cycle_minutes", cfg.Pipeline.SectorCycleMinutes).
		Int("bar_history_days", cfg.Pipeline.BarHistoryDays).
		Str("badger_path", cfg.Storage.Badger.Path).
		Str("sqlite_path", cfg.Storage.SQLite.Path).
		Msg("dipsentry starting")
}

// PrintShutdownBanner logs process shutdown.
func PrintShutdownBanner(logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorCyan).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(42)

	b.PrintTopLine()
	b.PrintCenteredText("SHUTTING DOWN")
	b.PrintCenteredText("DIPSENTRY")
	b.PrintBottomLine()
	fmt.Println()

	logger.Info().Msg("dipsentry shutting down")
}
