package cmd

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/boat-time-tracker/internal/watch"
)

var watchReload time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of the running entry and today's log",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchReload, "reload", 5*time.Second, "How often to pick up changes made by other btt commands")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a := mustOpenReader(cmd.Context())
	err := watch.Run(a.tr, watch.Options{ReloadEvery: watchReload}, tea.WithAltScreen())
	a.close()
	if err != nil {
		fail(err)
	}
	return nil
}
