package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/boat-time-tracker/internal/timecalc"
)

var (
	dayStartAt string
	dayEndAt   string
)

var dayCmd = &cobra.Command{
	Use:   "day",
	Short: "Open and close the working day",
}

var dayStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Open today's day session",
	Args:  cobra.NoArgs,
	RunE:  runDayStart,
}

var dayEndCmd = &cobra.Command{
	Use:   "end",
	Short: "Set the end of the day and send it to the spreadsheet",
	Args:  cobra.NoArgs,
	RunE:  runDayEnd,
}

var dayFinalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Retry sending an ended day to the spreadsheet",
	Args:  cobra.NoArgs,
	RunE:  runDayFinalize,
}

func init() {
	dayStartCmd.Flags().StringVar(&dayStartAt, "at", "", "Start time today (HH:mm); defaults to now")
	dayEndCmd.Flags().StringVar(&dayEndAt, "at", "", "End time today (HH:mm); defaults to now")
	dayCmd.AddCommand(dayStartCmd)
	dayCmd.AddCommand(dayEndCmd)
	dayCmd.AddCommand(dayFinalizeCmd)
}

// clockToday resolves an optional --at value against today.
func clockToday(flag, value string, now time.Time) time.Time {
	if value == "" {
		return now
	}
	c, err := timecalc.ParseClock(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --%s: %v\n", flag, err)
		os.Exit(1)
	}
	return c.On(now)
}

func runDayStart(cmd *cobra.Command, args []string) error {
	at := clockToday("at", dayStartAt, time.Now())
	a := mustOpen(cmd.Context())

	s, err := a.tr.StartDaySession(at)
	a.close()
	if err != nil {
		fail(err)
	}
	fmt.Printf("Day %s started at %s\n", s.Date, timecalc.ClockString(s.DayStart))
	return nil
}

func runDayEnd(cmd *cobra.Command, args []string) error {
	at := clockToday("at", dayEndAt, time.Now())
	a := mustOpen(cmd.Context())

	if err := a.tr.EndDaySession(at); err != nil {
		a.close()
		fail(err)
	}
	err := a.tr.FinalizeDaySession(cmd.Context())
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Day end saved at %s but not sent: %v\n", timecalc.ClockString(at), err)
		fmt.Fprintln(os.Stderr, "Run 'btt day finalize' to retry.")
		os.Exit(exitCode(err))
	}
	fmt.Printf("Day ended at %s\n", timecalc.ClockString(at))
	return nil
}

func runDayFinalize(cmd *cobra.Command, args []string) error {
	a := mustOpen(cmd.Context())
	err := a.tr.FinalizeDaySession(cmd.Context())
	a.close()
	if err != nil {
		fail(err)
	}
	fmt.Println("Day finalized.")
	return nil
}
