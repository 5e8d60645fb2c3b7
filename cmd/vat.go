package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/vat"
)

var vatCmd = &cobra.Command{
	Use:   "vat",
	Short: "Resolve a company name to a UK VAT number",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		name, _ := cmd.Flags().GetString("name")
		company, _ := cmd.Flags().GetString("company")
		if name == "" {
			return eris.New("--name is required")
		}
		if err := cfg.Validate("vat"); err != nil {
			return err
		}

		resolver, err := vat.NewResolver(vat.FromConfig(cfg.VAT))
		if err != nil {
			return err
		}
		res := resolver.Resolve(ctx, name)

		if company != "" {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.SaveVATResult(ctx, company, &res); err != nil {
				return eris.Wrap(err, "save vat result")
			}
		}
		return writeOutput(os.Stdout, outputFormat, res)
	},
}

func init() {
	vatCmd.Flags().String("name", "", "registered company name (required)")
	vatCmd.Flags().String("company", "", "company number to store the result under")
	rootCmd.AddCommand(vatCmd)
}
