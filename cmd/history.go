package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stocklens/internal/models"
	"stocklens/internal/workflow"
)

func newHistoryCmd(configPath *string) *cobra.Command {
	var sessionID string
	var deleteID string
	var editID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show and correct the captured products of a session",
		Long: `Shows the session's products. A single product can be deleted by id or
re-opened for editing; edits go through the same validation and
reconciliation as the review queue.`,
		Example: `  stocklens history --session session_42
  stocklens history --session session_42 --delete 3f1c0a52
  stocklens history --session session_42 --edit 3f1c0a52`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := loadClient(*configPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			o := workflow.NewOrchestrator(client)
			defer o.Close()

			if sessionID == "" {
				sessions, err := o.ResolveStartupSession(ctx)
				if err != nil {
					return err
				}
				if len(sessions) == 0 {
					fmt.Println("No sessions on the server yet")
					return nil
				}
			} else if err := o.SwitchSession(ctx, sessionID); err != nil {
				return err
			}

			if deleteID != "" {
				if err := o.DeleteProduct(ctx, deleteID); err != nil {
					showAlert(o)
					return err
				}
				showAlert(o)
				renderProducts(o.Canonical())
				return nil
			}

			if editID != "" {
				var current models.ProductRecord
				found := false
				for _, p := range o.Canonical() {
					if p.ID == editID {
						current = p
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("no product %s in session %s", editID, o.SessionID())
				}
				edited := promptEdit(bufio.NewReader(os.Stdin), current.Result())
				if _, err := o.SaveEdit(ctx, edited); err != nil {
					showAlert(o)
					return err
				}
				showAlert(o)
				renderProducts(o.Canonical())
				return nil
			}

			products := o.Canonical()
			if len(products) == 0 {
				fmt.Printf("Session %s has no products\n", o.SessionID())
				return nil
			}

			highConfidence := 0
			var totalConfidence float64
			for _, p := range products {
				if p.Confidence >= models.ConfidenceThreshold {
					highConfidence++
				}
				totalConfidence += p.Confidence
			}

			fmt.Printf("Session %s: %d product(s), %d high confidence, avg %.1f%%\n",
				o.SessionID(), len(products), highConfidence,
				totalConfidence/float64(len(products))*100)
			renderProducts(products)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session to show (defaults to the most recent)")
	cmd.Flags().StringVar(&deleteID, "delete", "", "Delete the product with this id")
	cmd.Flags().StringVar(&editID, "edit", "", "Edit the product with this id interactively")

	return cmd
}

func newSessionsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List capture sessions known to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := loadClient(*configPath)
			if err != nil {
				return err
			}
			sessions, err := client.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No sessions on the server yet")
				return nil
			}
			renderSessions(sessions)
			return nil
		},
	}
}
