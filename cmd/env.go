package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/contact"
	"github.com/sells-group/enrich-cli/internal/crawl"
	"github.com/sells-group/enrich-cli/internal/linkedin"
	"github.com/sells-group/enrich-cli/internal/pipeline"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/internal/search"
	"github.com/sells-group/enrich-cli/internal/store"
	"github.com/sells-group/enrich-cli/internal/vat"
	"github.com/sells-group/enrich-cli/pkg/zenserp"
)

// enrichEnv holds the store and every stage implementation needed by the
// hunt, batch and serve commands.
type enrichEnv struct {
	Store    store.Store
	Search   *search.Service // nil without a ZenSERP key
	Hunter   *pipeline.Hunter
	Contacts *contact.Extractor
	VAT      *vat.Resolver
	LinkedIn *linkedin.Finder // nil without a ZenSERP key
}

// Close releases resources held by the environment.
func (e *enrichEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// Deps adapts the environment for pipeline.Batch. Nil services stay nil
// interfaces.
func (e *enrichEnv) Deps() pipeline.Deps {
	d := pipeline.Deps{
		Store:  e.Store,
		Hunter: e.Hunter,
	}
	if e.Contacts != nil {
		d.Contacts = e.Contacts
	}
	if e.VAT != nil {
		d.VAT = e.VAT
	}
	if e.LinkedIn != nil {
		d.LinkedIn = e.LinkedIn
	}
	return d
}

// newSearchService returns nil when no ZenSERP key is configured.
func newSearchService() *search.Service {
	if cfg.ZenSERP.Key == "" {
		zap.L().Warn("ENRICH_ZENSERP_KEY not set, website search and LinkedIn lookup disabled")
		return nil
	}
	client := zenserp.NewClient(cfg.ZenSERP.Key,
		zenserp.WithBaseURL(cfg.ZenSERP.BaseURL),
		zenserp.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.ZenSERP.TimeoutSecs) * time.Second}),
	)
	return search.NewService(client,
		search.WithMinDelay(cfg.Search.MinDelay()),
		search.WithQueryVersion(cfg.Search.QueryVersion),
		search.WithRetry(resilience.RetryFromConfig(cfg.Retry)),
		search.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitFromConfig(cfg.Circuit))),
	)
}

func newFetcher(timeoutSecs int) *crawl.Fetcher {
	var opts []crawl.FetcherOption
	if cfg.Crawl.UserAgent != "" {
		opts = append(opts, crawl.WithUserAgent(cfg.Crawl.UserAgent))
	}
	return crawl.NewFetcher(time.Duration(timeoutSecs)*time.Second, opts...)
}

// initEnv builds the store and all stage implementations. Callers should
// defer env.Close().
func initEnv(ctx context.Context) (*enrichEnv, error) {
	if cfg.ZenSERP.Key != "" {
		if err := cfg.Validate("search"); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate("vat"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	resolver, err := vat.NewResolver(vat.FromConfig(cfg.VAT))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	env := &enrichEnv{
		Store:    st,
		Search:   newSearchService(),
		Contacts: contact.NewExtractor(contact.FromConfig(cfg.Contact), newFetcher(cfg.Contact.TimeoutSecs)),
		VAT:      resolver,
	}

	crawler := crawl.NewCrawler(crawl.FromConfig(cfg.Crawl), newFetcher(cfg.Crawl.TimeoutSecs))
	lists := pipeline.LoadLists(ctx, st, cfg.Hunt)
	if env.Search != nil {
		env.Hunter = pipeline.NewHunter(env.Search, crawler, lists)
		env.LinkedIn = linkedin.NewFinder(env.Search, linkedin.FromConfig(cfg.LinkedIn))
	} else {
		env.Hunter = pipeline.NewHunter(nil, crawler, lists)
	}
	return env, nil
}
