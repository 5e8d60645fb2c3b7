package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/model"
)

// Lists holds the string sets substituted into website hunting.
type Lists struct {
	Keywords     []string `json:"search_keywords" yaml:"search_keywords"`
	SERPExcluded []string `json:"serp_excluded_domains" yaml:"serp_excluded_domains"`
	Blacklist    []string `json:"blacklist_domains" yaml:"blacklist_domains"`
}

// ListSource is the part of the store that serves managed lists.
type ListSource interface {
	ListDomains(ctx context.Context, kind model.ListKind) ([]string, error)
}

// LoadLists merges the configured lists with the managed lists in src.
// Config entries come first. A store failure is logged and the config
// lists are used alone.
func LoadLists(ctx context.Context, src ListSource, cfg config.HuntConfig) Lists {
	lists := Lists{
		Keywords:     model.MergeLists(cfg.SearchKeywords),
		SERPExcluded: normalizedDomains(model.ListSERPExcluded, cfg.SERPExcludedDomains),
		Blacklist:    normalizedDomains(model.ListBlacklist, cfg.BlacklistDomains),
	}
	if src == nil {
		return lists
	}

	load := func(kind model.ListKind) []string {
		vals, err := src.ListDomains(ctx, kind)
		if err != nil {
			zap.L().Warn("pipeline: load managed list", zap.String("kind", string(kind)), zap.Error(err))
			return nil
		}
		return vals
	}
	lists.Keywords = model.MergeLists(lists.Keywords, load(model.ListSearchKeyword))
	lists.SERPExcluded = model.MergeLists(lists.SERPExcluded, load(model.ListSERPExcluded))
	lists.Blacklist = model.MergeLists(lists.Blacklist, load(model.ListBlacklist))

	zap.L().Info("pipeline: loaded hunt lists",
		zap.Int("keywords", len(lists.Keywords)),
		zap.Int("serp_excluded", len(lists.SERPExcluded)),
		zap.Int("blacklist", len(lists.Blacklist)),
	)
	return lists
}

func normalizedDomains(kind model.ListKind, values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, model.NormalizeListValue(kind, v))
	}
	return model.MergeLists(out)
}
