package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stocklens/internal/export"
)

func newExportCmd(configPath *string) *cobra.Command {
	var sessionID string
	var output string
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a session's products",
		Long: `Exports the session's products. CSV comes straight from the server
(columns: product_name, unit, description, category, confidence);
parquet is a client-side archival snapshot with full metadata.`,
		Example: `  stocklens export --session session_42 -o inventory.csv
  stocklens export --session session_42 --format parquet -o inventory.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := loadClient(*configPath)
			if err != nil {
				return err
			}
			if sessionID == "" {
				return fmt.Errorf("--session is required")
			}

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			switch format {
			case "csv":
				if err := client.ExportCSV(cmd.Context(), sessionID, out); err != nil {
					return err
				}
			case "parquet":
				products, err := client.SessionProducts(cmd.Context(), sessionID)
				if err != nil {
					return err
				}
				if err := export.WriteParquet(out, products); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported format %q (csv or parquet)", format)
			}

			if output != "" {
				fmt.Printf("Exported session %s to %s\n", sessionID, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session to export")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Export format: csv or parquet")

	return cmd
}
