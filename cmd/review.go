package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"stocklens/internal/models"
	"stocklens/internal/workflow"
)

func newReviewCmd(configPath *string) *cobra.Command {
	var sessionID string
	var batch bool

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review low-confidence products in a session",
		Long: `Loads the session's products that sit below the 85% confidence
threshold into a review queue. Each can be corrected and saved, or
skipped; batch mode edits them all first and commits sequentially.`,
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

			var pending []models.ExtractionResult
			for _, record := range o.Canonical() {
				if record.Confidence < models.ConfidenceThreshold {
					pending = append(pending, record.Result())
				}
			}
			queue := o.Review()
			queue.Replace(pending)

			if queue.Len() == 0 {
				fmt.Printf("Session %s has nothing to review\n", o.SessionID())
				return nil
			}

			fmt.Printf("Session %s: %d item(s) to review\n", o.SessionID(), queue.Len())
			reader := bufio.NewReader(os.Stdin)
			if batch {
				return runBatchReview(ctx, reader, queue)
			}
			return runSingleReview(ctx, reader, queue)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session to review (defaults to the most recent)")
	cmd.Flags().BoolVar(&batch, "batch", false, "Edit all pending items, then commit them together")

	return cmd
}

// runSingleReview resolves the queue one head item at a time.
func runSingleReview(ctx context.Context, reader *bufio.Reader, queue *workflow.ReviewQueue) error {
	for {
		item, ok := queue.Current()
		if !ok {
			fmt.Println("Review queue is empty")
			return nil
		}
		fmt.Printf("\nReviewing (%d left): %s | %s | %s | %s\n",
			queue.Len(), item.ProductName, item.Unit, item.Category, formatConfidence(item.Confidence))
		fmt.Print("[e]dit and save, [a]ccept as-is, [s]kip, [q]uit: ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "e", "edit":
			edited := promptEdit(reader, item)
			if _, err := queue.Save(ctx, edited); err != nil {
				// Queue is untouched on failure; the same item stays current.
				fmt.Printf("Save failed: %v\n", err)
				continue
			}
			fmt.Println("Saved")
		case "a", "accept":
			if _, err := queue.Save(ctx, item); err != nil {
				fmt.Printf("Save failed: %v\n", err)
				continue
			}
			fmt.Println("Saved")
		case "s", "skip":
			queue.Skip()
			fmt.Println("Skipped")
		case "q", "quit":
			return nil
		}
	}
}

// runBatchReview edits every draft, then commits them in queue order.
func runBatchReview(ctx context.Context, reader *bufio.Reader, queue *workflow.ReviewQueue) error {
	drafts := queue.Batch()
	for i, draft := range drafts {
		fmt.Printf("\nItem %d of %d: %s (%s)\n", i+1, len(drafts),
			draft.Original.ProductName, formatConfidence(draft.Original.Confidence))
		edited := promptEdit(reader, draft.Edited)
		if err := queue.EditBatchItem(i, edited); err != nil {
			return err
		}
	}

	committed, err := queue.CommitAll(ctx)
	fmt.Printf("Committed %d item(s)\n", len(committed))

	var batchErr *workflow.BatchError
	if errors.As(err, &batchErr) {
		fmt.Println(batchErr.Error())
		for _, failure := range batchErr.Failures {
			fmt.Printf("  item %d: %v\n", failure.Index+1, failure.Err)
		}
		fmt.Println("Failed items stay in the queue; run review again to retry")
		return nil
	}
	return err
}
