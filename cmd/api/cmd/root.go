package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "lighthouse-executor",
	Short: "Runs builds as containers on a Docker-compatible runtime",
	Long: `lighthouse-executor starts and stops CI builds on a container runtime.

For every build it pulls the launcher and build images, creates a support
container owning the launcher layer, and creates and starts the build
container mounting it. Every container is labelled with the build id, which is
how stop finds them again.

Configuration:
  Settings are read from the file given with --config (YAML) and from
  LIGHTHOUSE_* environment variables, e.g.
    LIGHTHOUSE_HTTP_PORT                  HTTP port (default: 3000)
    LIGHTHOUSE_EXECUTOR_PREFIX            tenant prefix for names and labels
    LIGHTHOUSE_LAUNCHER_VERSION           launcher image tag (default: stable)
    LIGHTHOUSE_BREAKER_FAILURE_THRESHOLD  failures before the breaker opens (default: 10)`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
}
