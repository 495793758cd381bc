// Package cli implements portalctl, a command-line client for the portal API.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"homecare/portal/internal/apiclient"
	"homecare/portal/internal/log"
)

var (
	flagServer   string
	flagTimeout  string
	flagLogLevel string

	logger zerolog.Logger
	client *apiclient.Client
)

// defaultServer returns the portal URL, checking PORTAL_SERVER first.
func defaultServer() string {
	if s := os.Getenv("PORTAL_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Home care portal command-line client",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger = log.NewWithWriter("cli", flagLogLevel, cmd.ErrOrStderr())
			timeout, err := parseTimeout(flagTimeout)
			if err != nil {
				return err
			}
			client, err = apiclient.New(flagServer, timeout, logger)
			return err
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "portal URL (or PORTAL_SERVER env)")
	root.PersistentFlags().StringVar(&flagTimeout, "timeout", "5s", "per-request timeout")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newLoginCmd(),
		newSessionCmd(),
		newCarePlansCmd(),
		newRequestCmd(),
		newMatchCmd(),
		newHealthCmd(),
		newSignOutCmd(),
	)

	return root
}

// printer is the Navigator used by the CLI: it reports where a browser
// would have gone.
func printer(cmd *cobra.Command) func(context.Context, string) error {
	return func(_ context.Context, target string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "-> %s\n", target)
		return err
	}
}
