package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/boat-time-tracker/internal/model"
	"github.com/Tiliavir/boat-time-tracker/internal/timecalc"
)

var (
	exportFormat string
	exportAll    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export completed entries to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, md, yaml")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every entry instead of this week's")
}

func runExport(cmd *cobra.Command, args []string) error {
	a := mustOpenReader(cmd.Context())
	defer a.close()

	entries := selectEntries(a.tr.CompletedEntries(), time.Now(), exportAll, true)
	if err := writeExport(os.Stdout, exportFormat, entries); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return nil
}

// exportRow is the flat record written by the json and yaml formats.
type exportRow struct {
	ID              string `json:"id" yaml:"id"`
	Date            string `json:"date" yaml:"date"`
	Resource        string `json:"resource" yaml:"resource"`
	Description     string `json:"description" yaml:"description"`
	Start           string `json:"start" yaml:"start"`
	End             string `json:"end" yaml:"end"`
	DurationMinutes int64  `json:"duration_minutes" yaml:"duration_minutes"`
}

func toRows(entries []model.Entry) []exportRow {
	rows := make([]exportRow, 0, len(entries))
	for _, e := range entries {
		row := exportRow{
			ID:              e.ID,
			Date:            timecalc.DateKey(e.Start),
			Resource:        e.Resource,
			Description:     e.Description,
			Start:           e.Start.Format(time.RFC3339),
			DurationMinutes: int64(e.Duration().Minutes()),
		}
		if e.End != nil {
			row.End = e.End.Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return rows
}

func writeExport(w io.Writer, format string, entries []model.Entry) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toRows(entries))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toRows(entries)); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		return enc.Close()
	case "md":
		printList(w, entries)
		return nil
	case "csv", "":
		printCSV(w, entries)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want csv, json, md or yaml)", format)
	}
}

func printCSV(w io.Writer, entries []model.Entry) {
	fmt.Fprintln(w, "date,resource,description,start,end,duration_minutes")
	for _, r := range toRows(entries) {
		fmt.Fprintf(w, "%s,%s,%s,%s,%s,%d\n",
			csvEscape(r.Date),
			csvEscape(r.Resource),
			csvEscape(r.Description),
			csvEscape(r.Start),
			csvEscape(r.End),
			r.DurationMinutes,
		)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	// Escape internal double quotes by doubling them.
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
