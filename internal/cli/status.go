package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harry720320/account-plan-agent/internal/model"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <company name or id>",
	Short: "Show knowledge completeness for an account",
	Long: `Status reports how complete the recorded knowledge is per topic,
which evidence is cached and how old it is, and the latest plan
version.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	account, err := resolveAccount(p, args[0])
	if err != nil {
		return err
	}
	status, err := p.Status(account.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Account %d: %s\n\n", account.ID, account.CompanyName)

	fmt.Println("Topics:")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, category := range model.Categories() {
		if s, ok := status.Categories[category]; ok {
			fmt.Fprintf(w, "  %s\t%s\n", category, s)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\nEvidence:")
	if len(status.Evidence) == 0 {
		fmt.Println("  none collected")
	}
	for _, rec := range status.Evidence {
		fmt.Printf("  %s\tcollected %s\n", rec.Type, rec.CollectedAt.Format("2006-01-02"))
	}

	fmt.Println("\nPlans:")
	if status.LatestPlan == nil {
		fmt.Println("  none yet")
		return nil
	}
	fmt.Printf("  %d versions, latest plan %d (%s) from %s\n",
		status.PlanCount, status.LatestPlan.ID, status.LatestPlan.Status,
		status.LatestPlan.CreatedAt.Format("2006-01-02 15:04"))
	return nil
}
