package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var draftCmd = &cobra.Command{
	Use:   "draft <description>",
	Short: "Save a draft description on the running entry",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDraft,
}

func runDraft(cmd *cobra.Command, args []string) error {
	a := mustOpen(cmd.Context())
	err := a.tr.UpdateDraftDescription(strings.Join(args, " "))
	a.close()
	if err != nil {
		fail(err)
	}
	fmt.Println("Draft saved.")
	return nil
}
