package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"stocklens/internal/api"
	"stocklens/internal/config"
)

// NewRootCmd assembles the stocklens command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stocklens",
		Short: "AI-assisted inventory capture with confidence-based review",
		Long: `Stocklens photographs products, extracts their attributes with a vision
LLM, and triages the results: confident extractions are saved
automatically while uncertain ones go through manual review before they
reach the session's inventory.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newCaptureCmd(&configPath))
	cmd.AddCommand(newReviewCmd(&configPath))
	cmd.AddCommand(newHistoryCmd(&configPath))
	cmd.AddCommand(newSessionsCmd(&configPath))
	cmd.AddCommand(newExportCmd(&configPath))
	cmd.AddCommand(newStatusCmd(&configPath))

	return cmd
}

func loadClient(configPath string) (*api.Client, config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, config.Config{}, err
	}
	return api.NewClient(cfg.Client.BaseURL), cfg, nil
}
