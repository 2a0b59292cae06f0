package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/istmo-digital/docintel/internal/expiry"
	"github.com/istmo-digital/docintel/internal/review"
)

var expiringCmd = &cobra.Command{
	Use:   "expiring",
	Short: "Sweep for documents about to expire and queue renewals",
	Long: `Checks every current record for an expiry date. Documents inside
the window are listed; the urgent ones additionally land on the review
queue so a renewal can be requested.`,
	Args: cobra.NoArgs,
	RunE: runExpiring,
}

func init() {
	expiringCmd.Flags().Int("days", 30, "report documents expiring within this many days")
	rootCmd.AddCommand(expiringCmd)
}

func runExpiring(cmd *cobra.Command, _ []string) error {
	days, _ := cmd.Flags().GetInt("days")

	st, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer st.close()

	monitor := expiry.NewMonitor(st.documents, st.store, review.NewStoreQueue(st.tasks, nil), nil)
	candidates, stats, err := monitor.Sweep(cmd.Context(), days)
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		fmt.Printf("no documents expire within %d days (%d scanned)\n", days, stats.Scanned)
		return nil
	}
	for _, c := range candidates {
		fmt.Printf("%s  %-20s %-32s expires %s (%d days, %s)\n",
			c.Document.ID, c.Document.TypeID, c.Document.Filename,
			c.ExpiresAt.Format("2006-01-02"), c.DaysLeft, c.Field)
	}
	fmt.Printf("%d expiring, %d queued for renewal, %d scanned\n",
		stats.Expiring, stats.Enqueued, stats.Scanned)
	return nil
}
