package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/model"
)

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Record the human-approved website for a company",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		company, _ := cmd.Flags().GetString("company")
		domain, _ := cmd.Flags().GetString("domain")
		if company == "" || domain == "" {
			return eris.New("--company and --domain are required")
		}
		domain = model.NormalizeDomain(domain)

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.ApproveDomain(ctx, company, domain); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Approved %s for company %s\n", domain, company)
		return nil
	},
}

func init() {
	approveCmd.Flags().String("company", "", "company number")
	approveCmd.Flags().String("domain", "", "approved domain")
	rootCmd.AddCommand(approveCmd)
}
