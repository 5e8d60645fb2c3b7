package main

import (
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/contact"
	"github.com/sells-group/enrich-cli/internal/store"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Extract phone numbers, emails and social links from a domain",
	Long: "Crawls the contact-relevant pages of a domain. With --company and no --domain " +
		"the company's approved domain is used.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		company, _ := cmd.Flags().GetString("company")
		domain, _ := cmd.Flags().GetString("domain")
		if company == "" && domain == "" {
			return eris.New("--company or --domain is required")
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
				domain, err = approvedDomain(cmd, st, company)
				if err != nil {
					return err
				}
			}
		}

		ex := contact.NewExtractor(contact.FromConfig(cfg.Contact), newFetcher(cfg.Contact.TimeoutSecs))
		rec := ex.Extract(ctx, domain)

		if st != nil {
			if err := st.SaveContactRecord(ctx, company, &rec); err != nil {
				return eris.Wrap(err, "save contact record")
			}
		}
		return writeOutput(os.Stdout, outputFormat, rec)
	},
}

// approvedDomain returns the human-approved domain for company.
func approvedDomain(cmd *cobra.Command, st store.Store, company string) (string, error) {
	hr, err := st.GetHuntResult(cmd.Context(), company)
	if errors.Is(err, store.ErrNotFound) || (err == nil && hr.ApprovedDomain == "") {
		return "", eris.Errorf("company %s has no approved domain; run approve or pass --domain", company)
	}
	if err != nil {
		return "", err
	}
	return hr.ApprovedDomain, nil
}

func init() {
	contactsCmd.Flags().String("company", "", "company number (uses its approved domain)")
	contactsCmd.Flags().String("domain", "", "domain to crawl")
	rootCmd.AddCommand(contactsCmd)
}
