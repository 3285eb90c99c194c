package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/boat-time-tracker/internal/model"
	"github.com/Tiliavir/boat-time-tracker/internal/timecalc"
	"github.com/Tiliavir/boat-time-tracker/internal/tracker"
)

var stopCmd = &cobra.Command{
	Use:   "stop [description]",
	Short: "Stop the running entry",
	Long: `Stop the running entry. A description is required; without an
argument you are prompted, starting from the saved draft.`,
	RunE: runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	a := mustOpen(cmd.Context())

	active, ok := a.tr.ActiveEntry()
	if !ok {
		a.close()
		fail(tracker.ErrNoActiveEntry)
	}

	description := strings.Join(args, " ")
	if description == "" {
		var err error
		description, err = promptDescription(active.Description)
		if err != nil {
			a.close()
			fail(err)
		}
	}

	done, err := a.tr.StopEntry(description)
	a.close()
	if err != nil {
		fail(err)
	}

	fmt.Println(stopSummary(done))
	return nil
}

// promptDescription asks for a non-empty description, prefilled with draft.
func promptDescription(draft string) (string, error) {
	description := draft
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Description").
				Value(&description).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("description is required")
					}
					return nil
				}),
		),
	).Run()
	return description, err
}

// stopSummary describes a completed entry, marking an end on a later day.
func stopSummary(e model.Entry) string {
	span := timecalc.ClockString(e.Start)
	if e.End != nil {
		span += "-" + timecalc.ClockString(*e.End)
		if !timecalc.SameDay(e.Start, *e.End) {
			span += " (next day)"
		}
	}
	return fmt.Sprintf("Stopped %q %s. Elapsed: %s", e.Resource, span,
		timecalc.FormatDuration(int64(e.Duration().Seconds())))
}
