// Command site-operator-cli is a terminal front end for the site operator chat:
// it stands in for the host application, talks to an agent and manages
// stored conversations. It also hosts a development backend.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/site-operator/go-sdk/internal/config"
)

var (
	version = "dev"

	configPath string
	cfg        *config.Config
	logger     *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "site-operator-cli",
		Short: "Site operator chat client",
		Long: `site-operator-cli drives an AG-UI agent from the terminal.
It plays the host application: registers an app context, executes the
navigation and click actions the agent requests, and keeps conversations
in the conversations API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, err = cfg.Logger()
			if err != nil {
				return err
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("SITEOP_CONFIG"), "path to a YAML config file")

	rootCmd.AddCommand(
		chatCmd(),
		conversationsCmd(),
		devServerCmd(),
		toolsCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			transport, err := cfg.TransportKind()
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "Agent:")
			fmt.Fprintf(out, "  URL:       %s\n", cfg.Agent.URL)
			fmt.Fprintf(out, "  Transport: %s\n", transport)
			fmt.Fprintf(out, "  Codec:     %s\n", cfg.Agent.Codec)
			fmt.Fprintf(out, "  Token:     %s\n", maskSecret(cfg.Agent.Token))
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Conversations API:")
			fmt.Fprintf(out, "  URL:   %s\n", orNone(cfg.API.URL))
			fmt.Fprintf(out, "  Token: %s\n", maskSecret(cfg.API.Token))
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Host application:")
			fmt.Fprintf(out, "  Name:           %s\n", cfg.App.Name)
			fmt.Fprintf(out, "  Context file:   %s\n", orNone(cfg.App.ContextFile))
			fmt.Fprintf(out, "  Target timeout: %s\n", cfg.Portal.TargetTimeout)
			fmt.Fprintf(out, "  Prompts:        %d\n", len(cfg.App.Prompts))
			fmt.Fprintln(out)

			fmt.Fprintf(out, "Thread store: %s\n", orNone(cfg.Storage.ThreadPath))
			fmt.Fprintf(out, "Logging:      %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
			fmt.Fprintf(out, "Dev server:   %s\n", cfg.DevServer.Address)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Environment variables:")
			fmt.Fprintln(out, "  SITEOP_CONFIG, SITEOP_AGENT_URL, SITEOP_TRANSPORT, SITEOP_CODEC, SITEOP_TOKEN")
			fmt.Fprintln(out, "  SITEOP_API_URL, SITEOP_API_TOKEN, SITEOP_THREAD_STORE, SITEOP_TARGET_TIMEOUT")
			fmt.Fprintln(out, "  SITEOP_APP_NAME, SITEOP_APP_CONTEXT, SITEOP_LOG_LEVEL, SITEOP_LOG_FORMAT")
			fmt.Fprintln(out, "  SITEOP_DEVSERVER_ADDR")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "site-operator-cli %s\n", version)
		},
	}
}

func maskSecret(s string) string {
	switch {
	case s == "":
		return "(not set)"
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "****" + s[len(s)-4:]
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
