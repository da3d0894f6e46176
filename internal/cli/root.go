package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// Execute runs the cookiesync CLI.
func Execute() error {
	return newRootCmd().Execute()
}

// ExecuteWithVersion runs the CLI with a build-injected version string.
func ExecuteWithVersion(v string) error {
	if v != "" {
		version = v
	}
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "cookiesync",
		Short:         "Keep crawler session cookies in sync with a CookieCloud server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the cookiesync config file")

	cmd.AddCommand(newRefreshCmd(&configPath))
	cmd.AddCommand(newStatusCmd(&configPath))
	cmd.AddCommand(newTestConnectionCmd(&configPath))
	cmd.AddCommand(newPlatformsCmd(&configPath))
	cmd.AddCommand(newClearCacheCmd(&configPath))
	cmd.AddCommand(newServeCmd(&configPath))
	return cmd
}
