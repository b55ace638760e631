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
	"github.com/go-chi/httprate"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/internal/pipeline"
	"github.com/sells-group/estimate-cli/internal/store"
	"github.com/sells-group/estimate-cli/internal/summary"
	"github.com/sells-group/estimate-cli/pkg/scopestack"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the estimate API server for the web front-end",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		acct, err := loadAccount(ctx, env.Client)
		if err != nil {
			return err
		}

		a := &api{
			account:        *acct,
			estimates:      env.Pipeline,
			search:         env.Resolver,
			questionnaires: env.Client,
			runs:           env.Store,
			templates:      env.Templates,
			tag:            cfg.ScopeStack.QuestionnaireTag,
		}
		if env.Generator != nil {
			a.circuits = env.Generator.CircuitStates
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(a, cfg.Server.AllowedOrigins, cfg.Server.RequestsPerMinute),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port), zap.String("account", acct.AccountSlug))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type estimator interface {
	Run(ctx context.Context, acct pipeline.Account, req pipeline.Request, notify pipeline.StatusFunc) (*model.Estimate, error)
	Regenerate(ctx context.Context, req pipeline.RegenerateRequest) (string, error)
}

type searcher interface {
	SearchClients(ctx context.Context, term string) ([]model.Client, error)
	SearchExecutives(ctx context.Context, term string) ([]model.SalesExecutive, error)
}

type questionnaireSource interface {
	ListQuestionnaires(ctx context.Context, tag string) ([]model.Questionnaire, error)
	GetQuestionnaire(ctx context.Context, id string) (*model.Questionnaire, error)
}

type runReader interface {
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error)
}

type templateStore interface {
	Current(ctx context.Context) (string, error)
	Save(ctx context.Context, tmpl string) error
	Reset(ctx context.Context) error
}

// api serves the web front-end for one account.
type api struct {
	account        pipeline.Account
	estimates      estimator
	search         searcher
	questionnaires questionnaireSource
	runs           runReader
	templates      templateStore
	circuits       func() map[string]string
	tag            string
}

func buildRouter(a *api, origins []string, requestsPerMinute int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]string{"status": "ok"}
		if a.circuits != nil {
			for name, state := range a.circuits() {
				body["circuit_"+name] = state
			}
		}
		writeJSON(w, http.StatusOK, body)
	})

	r.Route("/api", func(r chi.Router) {
		if requestsPerMinute > 0 {
			r.Use(httprate.Limit(requestsPerMinute, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					zap.L().Warn("rate limit exceeded", zap.String("path", r.URL.Path))
					w.Header().Set("Retry-After", "60")
					writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				}),
			))
		}

		r.Get("/account", a.getAccount)
		r.Get("/clients", a.searchClients)
		r.Get("/executives", a.searchExecutives)
		r.Get("/questionnaires", a.listQuestionnaires)
		r.Get("/questionnaires/{id}", a.getQuestionnaire)
		r.Post("/estimates", a.createEstimate)
		r.Get("/runs/{id}", a.getRun)
		r.Post("/projects/{id}/summary", a.regenerateSummary)
		r.Get("/prompt-template", a.getTemplate)
		r.Put("/prompt-template", a.putTemplate)
		r.Delete("/prompt-template", a.resetTemplate)
	})
	return r
}

func (a *api) getAccount(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.account)
}

func (a *api) searchClients(w http.ResponseWriter, r *http.Request) {
	clients, err := a.search.SearchClients(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	if clients == nil {
		clients = []model.Client{}
	}
	writeJSON(w, http.StatusOK, clients)
}

func (a *api) searchExecutives(w http.ResponseWriter, r *http.Request) {
	execs, err := a.search.SearchExecutives(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	if execs == nil {
		execs = []model.SalesExecutive{}
	}
	writeJSON(w, http.StatusOK, execs)
}

func (a *api) listQuestionnaires(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		tag = a.tag
	}
	list, err := a.questionnaires.ListQuestionnaires(r.Context(), tag)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *api) getQuestionnaire(w http.ResponseWriter, r *http.Request) {
	q, err := a.questionnaires.GetQuestionnaire(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	q.Questions = q.ActiveQuestions()
	writeJSON(w, http.StatusOK, q)
}

func (a *api) createEstimate(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	est, err := a.estimates.Run(r.Context(), a.account, req, func(status string) {
		zap.L().Debug("estimate status", zap.String("status", status))
	})
	if err != nil {
		writeError(w, err, est)
		return
	}
	writeJSON(w, http.StatusCreated, est)
}

func (a *api) getRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	run, err := a.runs.GetRun(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, nil)
		return
	}
	phases, err := a.runs.ListPhases(ctx, run.ID)
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*model.Run
		Phases []model.RunPhase `json:"phases"`
	}{run, phases})
}

func (a *api) regenerateSummary(w http.ResponseWriter, r *http.Request) {
	var req pipeline.RegenerateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}
	req.ProjectID = chi.URLParam(r, "id")

	text, err := a.estimates.Regenerate(r.Context(), req)
	if err != nil {
		var aiErr *model.AIGenerationError
		if errors.As(err, &aiErr) && text != "" {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error(), "summary": text})
			return
		}
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": text})
}

func (a *api) getTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := a.templates.Current(r.Context())
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"template": tmpl})
}

func (a *api) putTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Template string `json:"template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := a.templates.Save(r.Context(), body.Template); err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"template": body.Template})
}

func (a *api) resetTemplate(w http.ResponseWriter, r *http.Request) {
	if err := a.templates.Reset(r.Context()); err != nil {
		writeError(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

// errorResponse carries the error and, for failed runs, the partial
// estimate with every resource id created before the failure.
type errorResponse struct {
	Error    string          `json:"error"`
	Fields   []string        `json:"fields,omitempty"`
	Stage    model.Stage     `json:"stage,omitempty"`
	Estimate *model.Estimate `json:"estimate,omitempty"`
}

func writeError(w http.ResponseWriter, err error, est *model.Estimate) {
	resp := errorResponse{Error: err.Error(), Estimate: est}

	var (
		ve     *model.ValidationError
		die    *model.DataIntegrityError
		te     *model.TimeoutError
		aiErr  *model.AIGenerationError
		remote *scopestack.RemoteError
		stage  *model.StageError
		status = http.StatusInternalServerError
	)
	if errors.As(err, &stage) {
		resp.Stage = stage.Stage
	}
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		resp.Fields = ve.Fields
	case errors.As(err, &die):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &te):
		status = http.StatusGatewayTimeout
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, summary.ErrRegenerating):
		status = http.StatusConflict
	case errors.As(err, &remote), errors.As(err, &aiErr):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, resp)
}
