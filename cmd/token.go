package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/boat-time-tracker/internal/secret"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the mirror token in the OS keyring",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store the mirror token",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTokenSet,
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the mirror token",
	Args:  cobra.NoArgs,
	RunE:  runTokenDelete,
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenDeleteCmd)
}

func runTokenSet(cmd *cobra.Command, args []string) error {
	var tok string
	if len(args) == 1 {
		tok = args[0]
	} else {
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Mirror token").
					EchoMode(huh.EchoModePassword).
					Value(&tok),
			),
		).Run()
		if err != nil {
			fail(err)
		}
	}
	if err := secret.SetToken(tok); err != nil {
		fail(err)
	}
	fmt.Println("Token stored in keyring.")
	return nil
}

func runTokenDelete(cmd *cobra.Command, args []string) error {
	err := secret.DeleteToken()
	if errors.Is(err, secret.ErrNotFound) {
		fmt.Println("No token stored.")
		return nil
	}
	if err != nil {
		fail(err)
	}
	fmt.Println("Token removed.")
	return nil
}
