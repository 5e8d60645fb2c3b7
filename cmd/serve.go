package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/pipeline"
	"github.com/sells-group/enrich-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for on-demand enrichment",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := resolvePort(servePort, cfg.Server.Port)
		cfg.Server.Port = port
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Monitor.WebhookURL != "" {
			go newChecker(env.Store).Run(ctx)
		}

		return startServer(ctx, buildRouter(env, cfg.Server.AllowedOrigins), port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// resolvePort prefers the flag value over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves h on port until ctx is cancelled, then shuts down
// gracefully.
func startServer(ctx context.Context, h http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- eris.Wrap(err, "server listen")
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return <-errCh
}

type apiServer struct {
	env   *enrichEnv
	batch *pipeline.Batch
}

// buildRouter mounts the API routes. Stage endpoints run synchronously and
// persist their results like the CLI commands do.
func buildRouter(env *enrichEnv, allowedOrigins []string) http.Handler {
	s := &apiServer{env: env, batch: newBatch(env)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/hunt", s.handleHunt)
		r.Post("/vat", s.handleVAT)
		r.Post("/contacts", s.handleContacts)
		r.Post("/linkedin", s.handleLinkedIn)

		r.Route("/companies/{number}", func(r chi.Router) {
			r.Get("/hunt", s.handleGetHunt)
			r.Post("/approve", s.handleApprove)
		})

		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)

		r.Get("/lists", s.handleGetLists)
		r.Post("/lists/{kind}", s.handleAddList)
		r.Delete("/lists/{kind}/{value}", s.handleRemoveList)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type companyRequest struct {
	CompanyNumber string `json:"company_number"`
	VATNumber     string `json:"vat_number"`
	CompanyName   string `json:"company_name"`
	Domain        string `json:"domain"`
}

func (c companyRequest) identifiers() model.Identifiers {
	return model.Identifiers{
		CompanyNumber: c.CompanyNumber,
		VATNumber:     c.VATNumber,
		CompanyName:   c.CompanyName,
	}.Trimmed()
}

func (s *apiServer) handleHunt(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCompany(w, r)
	if !ok {
		return
	}
	ids := req.identifiers()
	if ids.CompanyNumber == "" {
		writeError(w, http.StatusBadRequest, "company_number is required")
		return
	}

	res := s.batch.Process(r.Context(), "", ids, []model.Stage{model.StageHunt})
	if res.Error != "" {
		writeError(w, http.StatusUnprocessableEntity, res.Error)
		return
	}
	writeJSON(w, http.StatusOK, res.Hunt)
}

func (s *apiServer) handleVAT(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCompany(w, r)
	if !ok {
		return
	}
	ids := req.identifiers()
	if ids.CompanyName == "" {
		writeError(w, http.StatusBadRequest, "company_name is required")
		return
	}
	if s.env.VAT == nil {
		writeError(w, http.StatusServiceUnavailable, "vat lookup not configured")
		return
	}

	res := s.env.VAT.Resolve(r.Context(), ids.CompanyName)
	if ids.CompanyNumber != "" {
		if err := s.env.Store.SaveVATResult(r.Context(), ids.CompanyNumber, &res); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *apiServer) handleContacts(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCompany(w, r)
	if !ok {
		return
	}
	ids := req.identifiers()
	domain := model.NormalizeDomain(req.Domain)

	switch {
	case domain == "" && ids.CompanyNumber == "":
		writeError(w, http.StatusBadRequest, "company_number or domain is required")
	case domain == "":
		res := s.batch.Process(r.Context(), "", ids, []model.Stage{model.StageContacts})
		if res.Error != "" {
			writeError(w, http.StatusUnprocessableEntity, res.Error)
			return
		}
		writeJSON(w, http.StatusOK, res.Contacts)
	case s.env.Contacts == nil:
		writeError(w, http.StatusServiceUnavailable, "contact extraction not configured")
	default:
		rec := s.env.Contacts.Extract(r.Context(), domain)
		if ids.CompanyNumber != "" {
			if err := s.env.Store.SaveContactRecord(r.Context(), ids.CompanyNumber, &rec); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *apiServer) handleLinkedIn(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCompany(w, r)
	if !ok {
		return
	}
	ids := req.identifiers()
	if ids.CompanyName == "" {
		writeError(w, http.StatusBadRequest, "company_name is required")
		return
	}
	if s.env.LinkedIn == nil {
		writeError(w, http.StatusServiceUnavailable, "linkedin lookup not configured (missing ZenSERP API key)")
		return
	}

	res := s.env.LinkedIn.Find(r.Context(), ids.CompanyName, model.NormalizeDomain(req.Domain))
	if ids.CompanyNumber != "" {
		if err := s.env.Store.SaveLinkedInResult(r.Context(), ids.CompanyNumber, &res); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *apiServer) handleGetHunt(w http.ResponseWriter, r *http.Request) {
	hr, err := s.env.Store.GetHuntResult(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hr)
}

func (s *apiServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	domain := model.NormalizeDomain(req.Domain)
	if domain == "" {
		writeError(w, http.StatusBadRequest, "domain is required")
		return
	}

	number := chi.URLParam(r, "number")
	if err := s.env.Store.ApproveDomain(r.Context(), number, domain); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"company_number":  number,
		"approved_domain": domain,
	})
}

func (s *apiServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.env.Store.ListRuns(r.Context(), store.RunFilter{
		Status: model.RunStatus(r.URL.Query().Get("status")),
		Limit:  50,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *apiServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.env.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *apiServer) handleGetLists(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pipeline.LoadLists(r.Context(), s.env.Store, cfg.Hunt))
}

func (s *apiServer) handleAddList(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Values []string `json:"values"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n, err := s.env.Store.AddDomains(r.Context(), kind, req.Values)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": n})
}

func (s *apiServer) handleRemoveList(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.env.Store.RemoveDomain(r.Context(), kind, chi.URLParam(r, "value")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeCompany(w http.ResponseWriter, r *http.Request) (companyRequest, bool) {
	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	zap.L().Error("api: store error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
