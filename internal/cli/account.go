package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harry720320/account-plan-agent/internal/model"
)

var (
	accIndustry    string
	accSize        string
	accWebsite     string
	accCountry     string
	accDescription string
)

// accountCmd represents the account command
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts",
}

var accountAddCmd = &cobra.Command{
	Use:   "add <company name>",
	Short: "Register a new account",
	Long: `Register a company as an account. Company names are unique.

Example:
  account-plan account add "Acme Corp" --industry manufacturing --website https://acme.example`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		account := &model.Account{
			CompanyName: args[0],
			Industry:    accIndustry,
			CompanySize: accSize,
			Website:     accWebsite,
			Country:     accCountry,
			Description: accDescription,
		}
		if err := p.Store().CreateAccount(account); err != nil {
			return err
		}
		fmt.Printf("Created account %d: %s\n", account.ID, account.CompanyName)
		return nil
	},
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		accounts, err := p.Store().ListAccounts()
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			fmt.Println("No accounts registered.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCOMPANY\tINDUSTRY\tCOUNTRY\tCREATED")
		for _, a := range accounts {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				a.ID, a.CompanyName, a.Industry, a.Country, a.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete <company name or id>",
	Short: "Delete an account and all of its data",
	Long: `Delete an account. All evidence, interactions and plans recorded for
the account are removed with it.`,
	Args: cobra.ExactArgs(1),
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
		if err := p.Store().DeleteAccount(account.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted account %d: %s\n", account.ID, account.CompanyName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountDeleteCmd)

	accountAddCmd.Flags().StringVar(&accIndustry, "industry", "", "industry sector")
	accountAddCmd.Flags().StringVar(&accSize, "size", "", "company size (e.g. 50-200)")
	accountAddCmd.Flags().StringVar(&accWebsite, "website", "", "company website URL")
	accountAddCmd.Flags().StringVar(&accCountry, "country", "", "country of the head office (required)")
	_ = accountAddCmd.MarkFlagRequired("country")
	accountAddCmd.Flags().StringVar(&accDescription, "description", "", "free-form description")
}
