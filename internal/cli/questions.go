package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harry720320/account-plan-agent/internal/catalog"
	"github.com/harry720320/account-plan-agent/internal/model"
)

var questionsFile string

// questionsCmd represents the questions command
var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Manage the question catalog",
}

var questionsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Seed the question catalog",
	Long: `Seed the catalog with the six core questions, optionally extended
with templates from a YAML file. Seeding is idempotent: questions that
already exist are left untouched.

Example:
  account-plan questions init
  account-plan questions init --file extra-questions.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		cfg := model.CatalogConfig{File: questionsFile}
		if err := catalog.Seed(p.Store(), cfg); err != nil {
			return err
		}
		cat, err := catalog.Load(p.Store())
		if err != nil {
			return err
		}
		fmt.Printf("Catalog seeded: %d templates.\n", len(cat.Templates()))
		return nil
	},
}

var questionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		cat, err := catalog.Load(p.Store())
		if err != nil {
			return err
		}
		templates := cat.Templates()
		if len(templates) == 0 {
			fmt.Println("Catalog is empty. Run 'account-plan questions init' first.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCATEGORY\tACTIVE\tQUESTION")
		for _, t := range templates {
			fmt.Fprintf(w, "%d\t%s\t%v\t%s\n", t.ID, t.Category, t.Active, t.Question)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(questionsCmd)
	questionsCmd.AddCommand(questionsInitCmd)
	questionsCmd.AddCommand(questionsListCmd)

	questionsInitCmd.Flags().StringVar(&questionsFile, "file", "", "YAML file with additional question templates")
}
