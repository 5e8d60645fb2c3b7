package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/model"
)

var huntCmd = &cobra.Command{
	Use:   "hunt",
	Short: "Find and rank candidate websites for one company",
	Long: "Searches for the company's registration identifiers, then crawls every candidate " +
		"domain and ranks them by exact identifier matches. The result is stored for approval.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		company, _ := cmd.Flags().GetString("company")
		vatNumber, _ := cmd.Flags().GetString("vat")
		name, _ := cmd.Flags().GetString("name")
		if company == "" {
			return eris.New("--company is required")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		b := newBatch(env)
		res := b.Process(ctx, "", model.Identifiers{
			CompanyNumber: company,
			VATNumber:     vatNumber,
			CompanyName:   name,
		}, []model.Stage{model.StageHunt})
		if res.Error != "" {
			return eris.New(res.Error)
		}
		return writeOutput(os.Stdout, outputFormat, res.Hunt)
	},
}

func init() {
	huntCmd.Flags().String("company", "", "company registration number (required)")
	huntCmd.Flags().String("vat", "", "VAT number (defaults to a previously resolved one)")
	huntCmd.Flags().String("name", "", "company name")
	rootCmd.AddCommand(huntCmd)
}
