package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/boat-time-tracker/internal/timecalc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running entry and the day session",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	now := time.Now()
	a := mustOpenReader(cmd.Context())
	defer a.close()

	if s, ok := a.tr.OpenDaySession(); ok {
		fmt.Printf("Day %s started %s", s.Date, timecalc.ClockString(s.DayStart))
		if s.DayEnd != nil {
			fmt.Printf(", ends %s (not finalized, run 'btt day finalize')", timecalc.ClockString(*s.DayEnd))
		}
		fmt.Println()
	}

	if active, ok := a.tr.ActiveEntry(); ok {
		elapsed := int64(now.Sub(active.Start).Seconds())
		fmt.Println("Running:")
		fmt.Printf("  Resource: %s\n", active.Resource)
		if active.Description != "" {
			fmt.Printf("  Draft: %s\n", active.Description)
		}
		fmt.Printf("  Since: %s\n", timecalc.ClockString(active.Start))
		fmt.Printf("  Elapsed: %s\n", timecalc.FormatDurationHHMMSS(elapsed))
		return nil
	}

	today := entriesBetween(a.tr.CompletedEntries(), timecalc.StartOfDay(now), timecalc.EndOfDay(now))
	fmt.Println("No active timer.")
	fmt.Printf("Today: %s logged.\n", timecalc.FormatDuration(totalSeconds(today)))
	return nil
}
