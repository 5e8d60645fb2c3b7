package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/linkedin"
	"github.com/sells-group/enrich-cli/internal/store"
)

var linkedinCmd = &cobra.Command{
	Use:   "linkedin",
	Short: "Find LinkedIn company and employee profiles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		name, _ := cmd.Flags().GetString("name")
		domain, _ := cmd.Flags().GetString("domain")
		company, _ := cmd.Flags().GetString("company")

		if err := cfg.Validate("search"); err != nil {
			return err
		}

		var st store.Store
		if company != "" {
			var err error
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			if domain == "" {
				if d, err := approvedDomain(cmd, st, company); err == nil {
					domain = d
				}
			}
		}

		finder := linkedin.NewFinder(newSearchService(), linkedin.FromConfig(cfg.LinkedIn))
		res := finder.Find(ctx, name, domain)

		if st != nil {
			if err := st.SaveLinkedInResult(ctx, company, &res); err != nil {
				return eris.Wrap(err, "save linkedin result")
			}
		}
		return writeOutput(os.Stdout, outputFormat, res)
	},
}

func init() {
	linkedinCmd.Flags().String("name", "", "company name (required)")
	linkedinCmd.Flags().String("domain", "", "verified company domain")
	linkedinCmd.Flags().String("company", "", "company number (stores the result, uses its approved domain)")
	rootCmd.AddCommand(linkedinCmd)
}
