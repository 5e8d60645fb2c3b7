package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/model"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Check and record the remaining ZenSERP search credits",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("search"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		remaining, err := newSearchService().CheckQuota(ctx)
		if err != nil {
			return eris.Wrap(err, "check quota")
		}
		if err := st.RecordQuota(ctx, *remaining); err != nil {
			return err
		}
		return writeOutput(os.Stdout, outputFormat, model.QuotaSnapshot{
			Remaining: *remaining,
			CheckedAt: time.Now().UTC(),
		})
	},
}

func init() {
	rootCmd.AddCommand(quotaCmd)
}
