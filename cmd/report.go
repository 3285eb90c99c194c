package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/boat-time-tracker/internal/model"
	"github.com/Tiliavir/boat-time-tracker/internal/timecalc"
)

var (
	reportWeek   bool
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show time per resource for today or this week",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportWeek, "week", false, "Report for this week instead of today")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
}

func runReport(cmd *cobra.Command, args []string) error {
	now := time.Now()
	a := mustOpenReader(cmd.Context())
	defer a.close()

	label := timecalc.DateKey(now)
	if reportWeek {
		label = "Week " + timecalc.ISOWeekLabel(now)
	}
	r := buildReport(label, selectEntries(a.tr.CompletedEntries(), now, false, reportWeek))
	if err := r.write(os.Stdout, reportFormat); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return nil
}

type resourceTotal struct {
	Resource        string `json:"resource"`
	DurationMinutes int64  `json:"duration_minutes"`
	seconds         int64
}

type report struct {
	Label        string          `json:"period"`
	Resources    []resourceTotal `json:"resources"`
	TotalMinutes int64           `json:"total_minutes"`
	totalSeconds int64
}

// buildReport aggregates completed entries by resource, sorted by name.
func buildReport(label string, entries []model.Entry) report {
	totals := map[string]int64{}
	for _, e := range entries {
		if e.End == nil {
			continue
		}
		totals[e.Resource] += int64(e.Duration().Seconds())
	}
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	r := report{Label: label, Resources: []resourceTotal{}}
	for _, name := range names {
		sec := totals[name]
		r.Resources = append(r.Resources, resourceTotal{Resource: name, DurationMinutes: sec / 60, seconds: sec})
		r.totalSeconds += sec
	}
	r.TotalMinutes = r.totalSeconds / 60
	return r
}

func (r report) write(w io.Writer, format string) error {
	switch format {
	case "csv":
		fmt.Fprintln(w, "resource,duration_minutes")
		for _, t := range r.Resources {
			fmt.Fprintf(w, "%s,%d\n", csvEscape(t.Resource), t.DurationMinutes)
		}
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "md", "":
		fmt.Fprintln(w, r.Label)
		fmt.Fprintln(w, "--------------------------------")
		for _, t := range r.Resources {
			fmt.Fprintf(w, "%-20s%s\n", t.Resource, timecalc.FormatDuration(t.seconds))
		}
		fmt.Fprintln(w, "--------------------------------")
		fmt.Fprintf(w, "%-20s%s\n", "Total", timecalc.FormatDuration(r.totalSeconds))
	default:
		return fmt.Errorf("unknown format %q (want md, csv or json)", format)
	}
	return nil
}
