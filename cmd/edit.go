package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/boat-time-tracker/internal/timecalc"
)

var (
	editStart       string
	editEnd         string
	editDescription string
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Correct the times of the running entry",
	Long: `Move the start of the running entry and optionally end it. Times are
HH:mm on the day the entry started; an end before the start is read as
the next day. Giving --end stops the entry and requires --description.
The change is only applied once the spreadsheet has been reached.`,
	Args: cobra.NoArgs,
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editStart, "start", "", "New start time (HH:mm)")
	editCmd.Flags().StringVar(&editEnd, "end", "", "End time (HH:mm); stops the entry")
	editCmd.Flags().StringVar(&editDescription, "description", "", "Description (required with --end)")
	_ = editCmd.MarkFlagRequired("start")
}

func runEdit(cmd *cobra.Command, args []string) error {
	start, err := timecalc.ParseClock(editStart)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid --start:", err)
		os.Exit(1)
	}
	var end *timecalc.Clock
	if editEnd != "" {
		c, err := timecalc.ParseClock(editEnd)
		if err != nil {
			fmt.Fprintln(os.Stderr, "invalid --end:", err)
			os.Exit(1)
		}
		end = &c
	}

	a := mustOpen(cmd.Context())
	err = a.tr.EditActiveTimes(cmd.Context(), start, end, editDescription)
	a.close()
	if err != nil {
		fail(err)
	}

	if end != nil {
		fmt.Printf("Entry stopped with times %s-%s\n", start, *end)
	} else {
		fmt.Printf("Start moved to %s\n", start)
	}
	return nil
}
