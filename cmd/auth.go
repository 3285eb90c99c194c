package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/boat-time-tracker/internal/config"
	"github.com/Tiliavir/boat-time-tracker/internal/mirror"
	"github.com/Tiliavir/boat-time-tracker/internal/storage"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in for authenticated mirror delivery",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with the OAuth device flow",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored OAuth token",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
}

func loadAuth() mirror.AuthConfig {
	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	base, err := storage.BaseDir()
	if err != nil {
		fail(err)
	}
	return authConfig(cfg, base)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	a := loadAuth()
	if !a.Enabled() {
		fmt.Fprintln(os.Stderr, "mirror.auth.client_id is not set in config.json.")
		os.Exit(1)
	}
	if _, err := mirror.Login(cmd.Context(), a, os.Stdout); err != nil {
		fail(err)
	}
	fmt.Println("Signed in.")
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	if err := mirror.Logout(loadAuth()); err != nil {
		fail(err)
	}
	fmt.Println("Signed out.")
	return nil
}
