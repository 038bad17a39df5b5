package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harry720320/account-plan-agent/internal/model"
)

var (
	collectType    string
	collectTimeout time.Duration
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect <company name or id>",
	Short: "Collect external evidence for an account",
	Long: `Collect refreshes the cached external evidence for an account: a
company profile, a news snapshot, and market context. Each evidence
type holds at most one record per account; collecting replaces the
previous one.

Example:
  account-plan collect "Acme Corp"
  account-plan collect "Acme Corp" --type news`,
	Args: cobra.ExactArgs(1),
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().StringVar(&collectType, "type", "", "collect a single evidence type (profile, news, market)")
	collectCmd.Flags().DurationVar(&collectTimeout, "timeout", 3*time.Minute, "overall collection timeout")
}

func runCollect(cmd *cobra.Command, args []string) error {
	p, err := openPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	account, err := resolveAccount(p, args[0])
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	var records []*model.EvidenceRecord
	var collectErr error
	if collectType != "" {
		typ, err := model.ParseEvidenceType(collectType)
		if err != nil {
			return err
		}
		rec, err := p.CollectOne(ctx, account.ID, typ)
		if err != nil {
			return err
		}
		records = append(records, rec)
	} else {
		records, collectErr = p.CollectEvidence(ctx, account.ID)
	}

	for _, rec := range records {
		fmt.Printf("Collected %s evidence for %s (%d characters)\n",
			rec.Type, account.CompanyName, len(rec.Content))
	}
	if collectErr != nil {
		return fmt.Errorf("some evidence types failed: %w", collectErr)
	}
	return nil
}
