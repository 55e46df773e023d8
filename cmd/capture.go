package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stocklens/internal/health"
	"stocklens/internal/workflow"
)

func newCaptureCmd(configPath *string) *cobra.Command {
	var sessionID string
	var batch bool
	var skipReview bool

	cmd := &cobra.Command{
		Use:   "capture <image>",
		Short: "Extract products from a photo and triage them",
		Long: `Sends the image through vision extraction. Items at or above 85%
confidence are saved automatically; the rest enter a review queue where
each one can be corrected and saved, skipped, or committed in batch.`,
		Example: `  # Capture into a fresh session
  stocklens capture shelf.jpg

  # Capture into an existing session and review everything at once
  stocklens capture shelf.jpg --session session_42 --batch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := loadClient(*configPath)
			if err != nil {
				return err
			}

			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			ctx := cmd.Context()
			o := workflow.NewOrchestrator(client)
			defer o.Close()

			if sessionID != "" {
				if err := o.SwitchSession(ctx, sessionID); err != nil {
					return err
				}
			}

			// Connectivity probe runs on its own timer, independent of the
			// capture flow.
			monitorCtx, stopMonitor := context.WithCancel(ctx)
			defer stopMonitor()
			monitor := health.NewMonitor(client)
			go monitor.Run(monitorCtx)

			summary, err := o.SubmitCapture(ctx, image)
			if err != nil {
				showAlert(o)
				return err
			}
			showAlert(o)
			fmt.Printf("Session %s: %d detected, %d auto-saved, %d pending review\n",
				o.SessionID(), summary.Detected, summary.AutoAccepted, summary.PendingReview)

			queue := o.Review()
			if queue.Len() == 0 {
				renderProducts(o.Canonical())
				return nil
			}

			renderPending(queue.Pending())
			if skipReview || !stdoutIsTerminal() {
				fmt.Printf("%d item(s) left in review; run `stocklens review --session %s` to resolve them\n",
					queue.Len(), o.SessionID())
				return nil
			}

			reader := bufio.NewReader(os.Stdin)
			if batch {
				if err := runBatchReview(ctx, reader, queue); err != nil {
					return err
				}
			} else if err := runSingleReview(ctx, reader, queue); err != nil {
				return err
			}

			renderProducts(o.Canonical())
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Capture into an existing session")
	cmd.Flags().BoolVar(&batch, "batch", false, "Edit all pending items, then commit them together")
	cmd.Flags().BoolVar(&skipReview, "skip-review", false, "Leave low-confidence items unreviewed")

	return cmd
}
