package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/boat-time-tracker/internal/config"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the configured resources",
	Args:  cobra.NoArgs,
	RunE:  runResources,
}

func runResources(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	for _, r := range cfg.Resources {
		fmt.Println(r)
	}
	return nil
}
