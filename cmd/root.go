package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/boat-time-tracker/internal/logger"
	"github.com/Tiliavir/boat-time-tracker/internal/storage"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "btt",
	Short: "Boat Time Tracker – track work per boat and mirror it to a spreadsheet",
	Long: `btt tracks one running entry at a time against a boat or other resource.
State is kept locally in ~/.btt/ and mirrored, best effort, to a
spreadsheet web app configured in ~/.btt/config.json.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		base, err := storage.BaseDir()
		if err != nil {
			return err
		}
		if _, err := logger.Init(logger.Config{Debug: debug, Dir: base}); err != nil {
			// Logging is best effort; commands still work without a log file.
			fmt.Fprintf(os.Stderr, "Warning: could not open log file: %v\n", err)
		}
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Verbose logging to stderr")

	rootCmd.AddCommand(resourcesCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(dayCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(proxyCmd)
	rootCmd.AddCommand(watchCmd)
}
