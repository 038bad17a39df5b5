package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harry720320/account-plan-agent/internal/model"
)

var (
	planOut     string
	planTimeout time.Duration
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan <company name or id>",
	Short: "Synthesize a new strategic plan version",
	Long: `Plan drafts a new version of the account's strategic plan from the
recorded interview answers and the fresh cached evidence. Sections
without supporting material keep a placeholder instead of invented
content. Each run appends to the plan's change log; older versions
beyond the keep window are archived.

Example:
  account-plan plan "Acme Corp"
  account-plan plan "Acme Corp" --out acme-plan.md`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

var planListCmd = &cobra.Command{
	Use:   "list <company name or id>",
	Short: "List plan versions for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		account, err := resolveAccount(p, args[0])
		if err != nil {
			return err
		}
		plans, err := p.Store().ListPlans(account.ID)
		if err != nil {
			return err
		}
		if len(plans) == 0 {
			fmt.Printf("No plans for %s yet. Run 'account-plan plan %q' first.\n", account.CompanyName, account.CompanyName)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tCREATED\tCHANGES")
		for _, pl := range plans {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\n",
				pl.ID, pl.Status, pl.CreatedAt.Format("2006-01-02 15:04"), len(pl.ChangeLog))
		}
		return w.Flush()
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show <plan id>",
	Short: "Render a stored plan version as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("plan id must be numeric: %q", args[0])
		}
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		pl, err := p.Store().GetPlan(id)
		if err != nil {
			return err
		}
		fmt.Print(pl.Render())
		return nil
	},
}

var planCompleteCmd = &cobra.Command{
	Use:   "complete <plan id>",
	Short: "Mark a draft plan as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("plan id must be numeric: %q", args[0])
		}
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		if err := p.Store().UpdatePlanStatus(id, model.PlanCompleted); err != nil {
			return err
		}
		fmt.Printf("Plan %d marked completed.\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planListCmd)
	planCmd.AddCommand(planShowCmd)
	planCmd.AddCommand(planCompleteCmd)

	planCmd.Flags().StringVar(&planOut, "out", "", "write the rendered plan to a file instead of stdout")
	planCmd.Flags().DurationVar(&planTimeout, "timeout", 5*time.Minute, "overall synthesis timeout")
}

func runPlan(cmd *cobra.Command, args []string) error {
	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	account, err := resolveAccount(p, args[0])
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), planTimeout)
	defer cancel()

	pl, err := p.Synthesize(ctx, account.ID)
	if err != nil {
		return err
	}
	rendered := pl.Render()
	if planOut != "" {
		if err := os.WriteFile(planOut, []byte(rendered), 0644); err != nil {
			return fmt.Errorf("write plan: %w", err)
		}
		fmt.Printf("Plan %d written to %s\n", pl.ID, planOut)
		return nil
	}
	fmt.Print(rendered)
	return nil
}
