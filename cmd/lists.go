package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/pipeline"
)

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Manage search keywords, SERP exclusions and the crawl blacklist",
	Long: "Managed lists are merged with the hunt.* config lists at hunt time. " +
		"Kinds: search_keyword (keywords), serp_excluded (excluded), blacklist.",
}

func parseKind(raw string) (model.ListKind, error) {
	kind, ok := model.ParseListKind(raw)
	if !ok {
		return "", eris.Errorf("unknown list kind %q (search_keyword, serp_excluded or blacklist)", raw)
	}
	return kind, nil
}

// -- lists show --

var listsShowCmd = &cobra.Command{
	Use:   "show [kind]",
	Short: "Show managed lists, or the effective merged lists with --effective",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if effective, _ := cmd.Flags().GetBool("effective"); effective {
			return writeOutput(os.Stdout, outputFormat, pipeline.LoadLists(ctx, st, cfg.Hunt))
		}

		kinds := model.ListKinds
		if len(args) == 1 {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			kinds = []model.ListKind{kind}
		}

		out := make(map[string][]string, len(kinds))
		for _, k := range kinds {
			vals, err := st.ListDomains(ctx, k)
			if err != nil {
				return err
			}
			if vals == nil {
				vals = []string{}
			}
			out[string(k)] = vals
		}
		return writeOutput(os.Stdout, outputFormat, out)
	},
}

// -- lists add --

var listsAddCmd = &cobra.Command{
	Use:   "add <kind> <value>...",
	Short: "Add entries to a managed list",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.AddDomains(ctx, kind, args[1:])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Added %d new %s entries\n", n, kind)
		return nil
	},
}

// -- lists remove --

var listsRemoveCmd = &cobra.Command{
	Use:   "remove <kind> <value>",
	Short: "Remove an entry from a managed list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.RemoveDomain(ctx, kind, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Removed %s from %s\n", args[1], kind)
		return nil
	},
}

// -- lists import --

var listsImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import keywords and domains from a YAML file",
	Long: "Reads a YAML document with optional search_keywords, serp_excluded_domains " +
		"and blacklist_domains sequences and adds every entry to the matching list.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrap(err, "open list file")
		}
		defer f.Close() //nolint:errcheck

		lists, err := readListFile(f)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		for kind, vals := range map[model.ListKind][]string{
			model.ListSearchKeyword: lists.Keywords,
			model.ListSERPExcluded:  lists.SERPExcluded,
			model.ListBlacklist:     lists.Blacklist,
		} {
			n, err := st.AddDomains(ctx, kind, vals)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "%s: %d new of %d\n", kind, n, len(vals))
		}
		return nil
	},
}

// readListFile decodes a lists YAML document.
func readListFile(r io.Reader) (pipeline.Lists, error) {
	var lists pipeline.Lists
	if err := yaml.NewDecoder(r).Decode(&lists); err != nil && err != io.EOF {
		return lists, eris.Wrap(err, "parse list file")
	}
	return lists, nil
}

func init() {
	listsShowCmd.Flags().Bool("effective", false, "show config and managed lists merged as used by hunt")

	listsCmd.AddCommand(listsShowCmd)
	listsCmd.AddCommand(listsAddCmd)
	listsCmd.AddCommand(listsRemoveCmd)
	listsCmd.AddCommand(listsImportCmd)
	rootCmd.AddCommand(listsCmd)
}
