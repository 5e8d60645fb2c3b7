package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/ingest"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/pipeline"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Enrich companies listed in a CSV or XLSX file",
	Long: "Reads company numbers (and optional VAT numbers and names) from --input and runs " +
		"the selected stages for every company. Stages run in the order vat, hunt, contacts, linkedin.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		input, _ := cmd.Flags().GetString("input")
		sheet, _ := cmd.Flags().GetString("sheet")
		rawStages, _ := cmd.Flags().GetStringSlice("stages")
		if input == "" {
			return eris.New("--input is required")
		}
		if cmd.Flags().Changed("concurrency") {
			cfg.Batch.MaxConcurrentCompanies, _ = cmd.Flags().GetInt("concurrency")
		}
		if cmd.Flags().Changed("auto-approve") {
			cfg.Batch.AutoApprove, _ = cmd.Flags().GetBool("auto-approve")
		}
		if len(rawStages) == 0 {
			rawStages = cfg.Batch.Stages
		}

		stages, err := parseStages(rawStages)
		if err != nil {
			return err
		}

		companies, err := readCompanies(input, sheet)
		if err != nil {
			return err
		}
		if len(companies) == 0 {
			return eris.Errorf("no companies found in %s", input)
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("batch: starting",
			zap.String("input", input),
			zap.Int("companies", len(companies)),
			zap.Strings("stages", stageNames(stages)),
		)

		run, results, err := newBatch(env).Run(ctx, filepath.Base(input), companies, stages)
		if err != nil {
			return err
		}

		writeRunSummary(os.Stderr, run)
		return writeOutput(os.Stdout, outputFormat, results)
	},
}

func init() {
	batchCmd.Flags().String("input", "", "CSV or XLSX file with a company_number column (required)")
	batchCmd.Flags().String("sheet", "", "XLSX sheet name (default: first sheet)")
	batchCmd.Flags().StringSlice("stages", nil, "stages to run: vat,hunt,contacts,linkedin (default: batch.stages)")
	batchCmd.Flags().Int("concurrency", 0, "max companies processed in parallel (default: batch.max_concurrent_companies)")
	batchCmd.Flags().Bool("auto-approve", false, "approve perfect-score domains without human review")
	rootCmd.AddCommand(batchCmd)
}

func newBatch(env *enrichEnv) *pipeline.Batch {
	return pipeline.NewBatch(env.Deps(), cfg.Batch.MaxConcurrentCompanies,
		pipeline.WithAutoApprove(cfg.Batch.AutoApprove),
	)
}

// parseStages rejects unknown stage names.
func parseStages(raw []string) ([]model.Stage, error) {
	stages, unknown := model.ParseStages(raw)
	if len(unknown) > 0 {
		return nil, eris.Errorf("unknown stages: %s", strings.Join(unknown, ", "))
	}
	if len(stages) == 0 {
		return nil, eris.New("at least one stage is required")
	}
	return stages, nil
}

func readCompanies(path, sheet string) ([]model.Identifiers, error) {
	if sheet != "" {
		return ingest.ReadXLSX(path, sheet)
	}
	return ingest.ReadFile(path)
}

func stageNames(stages []model.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}

func writeRunSummary(w io.Writer, run *model.Run) {
	fmt.Fprintf(w, "Run %s %s: %d processed, %d failed of %d companies\n",
		truncateID(run.ID), run.Status, run.Processed, run.Failed, run.Companies)
	if run.Error != "" {
		fmt.Fprintf(w, "  %s\n", run.Error)
	}
}
