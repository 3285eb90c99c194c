package cmd

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/boat-time-tracker/internal/config"
	"github.com/Tiliavir/boat-time-tracker/internal/logger"
	"github.com/Tiliavir/boat-time-tracker/internal/proxy"
)

var proxyAddr string

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Forwarding endpoint for clients that cannot reach the spreadsheet",
}

var proxyServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve " + proxy.SavePath,
	Args:  cobra.NoArgs,
	RunE:  runProxyServe,
}

func init() {
	proxyServeCmd.Flags().StringVar(&proxyAddr, "addr", "", "Listen address (default from config, :4000)")
	proxyCmd.AddCommand(proxyServeCmd)
}

func runProxyServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	addr := proxyAddr
	if addr == "" {
		addr = cfg.Proxy.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.With("proxy")
	h := proxy.NewServer(&http.Client{Timeout: cfg.Mirror.Timeout()}, log)
	if err := proxy.ListenAndServe(ctx, addr, h, log); err != nil {
		fail(err)
	}
	return nil
}
