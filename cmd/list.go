package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/boat-time-tracker/internal/model"
	"github.com/Tiliavir/boat-time-tracker/internal/timecalc"
)

var (
	listAll  bool
	listWeek bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List completed entries",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "Show every completed entry")
	listCmd.Flags().BoolVar(&listWeek, "week", false, "Show this week's entries")
}

func runList(cmd *cobra.Command, args []string) error {
	a := mustOpenReader(cmd.Context())
	defer a.close()

	printList(os.Stdout, selectEntries(a.tr.CompletedEntries(), time.Now(), listAll, listWeek))
	return nil
}

// selectEntries narrows entries to today, this week or everything.
func selectEntries(entries []model.Entry, now time.Time, all, week bool) []model.Entry {
	switch {
	case all:
		return entries
	case week:
		from, to := timecalc.WeekRange(now)
		return entriesBetween(entries, from, to)
	default:
		return entriesBetween(entries, timecalc.StartOfDay(now), timecalc.EndOfDay(now))
	}
}

// entriesBetween returns the entries starting within [from, to].
func entriesBetween(entries []model.Entry, from, to time.Time) []model.Entry {
	var out []model.Entry
	for _, e := range entries {
		if timecalc.Within(e.Start, from, to) {
			out = append(out, e)
		}
	}
	return out
}

func totalSeconds(entries []model.Entry) int64 {
	var total int64
	for _, e := range entries {
		total += int64(e.Duration().Seconds())
	}
	return total
}

// printList groups entries by date and prints them.
func printList(w io.Writer, entries []model.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}

	var currentDay string
	for _, e := range entries {
		day := timecalc.DateKey(e.Start)
		if day != currentDay {
			fmt.Fprintln(w, day)
			currentDay = day
		}

		endStr := "ongoing"
		durStr := ""
		if e.End != nil {
			endStr = timecalc.ClockString(*e.End)
			durStr = fmt.Sprintf(" (%s)", timecalc.FormatDuration(int64(e.Duration().Seconds())))
		}

		desc := ""
		if e.Description != "" {
			desc = "  " + e.Description
		}

		fmt.Fprintf(w, "%s–%s  %s%s%s\n", timecalc.ClockString(e.Start), endStr, e.Resource, desc, durStr)
	}
}
