package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work the manual review queue",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending review tasks, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runReviewList,
}

var reviewResolveCmd = &cobra.Command{
	Use:   "resolve <task-id>",
	Short: "Mark a review task as handled",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewResolve,
}

func init() {
	reviewListCmd.Flags().Int("limit", 50, "maximum tasks to show")
	reviewCmd.AddCommand(reviewListCmd, reviewResolveCmd)
	rootCmd.AddCommand(reviewCmd)
}

func runReviewList(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	st, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer st.close()

	tasks, err := st.reviews.ListOpen(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no pending review tasks")
		return nil
	}
	for _, t := range tasks {
		line := fmt.Sprintf("%s  %s  %-24s conf=%.2f/%.2f",
			t.ID, t.CreatedAt.Format("2006-01-02 15:04"), t.Reason, t.Confidence, t.Threshold)
		if t.Record != nil {
			line += fmt.Sprintf("  %s fields=%d errors=%d warnings=%d",
				t.Record.TypeID, len(t.Record.Fields),
				len(t.Record.Validation.Errors), len(t.Record.Validation.Warnings))
		}
		fmt.Println(line)
	}
	return nil
}

func runReviewResolve(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid task id: %w", err)
	}

	st, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer st.close()

	if err := st.reviews.Resolve(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("resolved %s\n", id)
	return nil
}
