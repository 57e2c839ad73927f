package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/config"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/utils"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wits-quest",
	Short: "Location based quest and leaderboard backend",
	// Running without a subcommand starts the HTTP server.
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and installs the logger every command uses.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	utils.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}
