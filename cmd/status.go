package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stocklens/internal/health"
)

func newStatusCmd(configPath *string) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check remote store connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := loadClient(*configPath)
			if err != nil {
				return err
			}

			monitor := health.NewMonitor(client)
			status := monitor.Probe(cmd.Context())
			fmt.Printf("%s: %s\n", cfg.Client.BaseURL, status)

			if !watch {
				return nil
			}

			ticker := time.NewTicker(health.PollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
					next := monitor.Probe(cmd.Context())
					if next != status {
						fmt.Printf("%s: %s -> %s\n", cfg.Client.BaseURL, status, next)
						status = next
					}
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep probing on the standard interval")

	return cmd
}
