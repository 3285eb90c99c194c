package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/boat-time-tracker/internal/timecalc"
)

var startDescription string

var startCmd = &cobra.Command{
	Use:   "start [resource]",
	Short: "Start a new time entry",
	Long: `Start a new time entry for a resource. Without an argument the
configured resources are offered in a menu.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&startDescription, "description", "", "Draft description for the entry")
}

func runStart(cmd *cobra.Command, args []string) error {
	a := mustOpen(cmd.Context())

	var resource string
	if len(args) == 1 {
		resource = args[0]
	} else {
		picked, err := pickResource(a.cfg.Resources)
		if err != nil {
			a.close()
			fail(err)
		}
		resource = picked
	}

	entry, err := a.tr.StartEntry(resource)
	if err == nil && strings.TrimSpace(startDescription) != "" {
		err = a.tr.UpdateDraftDescription(startDescription)
	}
	a.close()
	if err != nil {
		fail(err)
	}

	fmt.Printf("Started %q at %s\n", entry.Resource, timecalc.ClockString(entry.Start))
	return nil
}

// pickResource prompts for one of resources.
func pickResource(resources []string) (string, error) {
	opts := make([]huh.Option[string], len(resources))
	for i, r := range resources {
		opts[i] = huh.NewOption(r, r)
	}
	var picked string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Resource").
				Options(opts...).
				Value(&picked),
		),
	).Run()
	return picked, err
}
