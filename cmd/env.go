package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/estimate-cli/internal/pipeline"
	"github.com/sells-group/estimate-cli/internal/resolver"
	"github.com/sells-group/estimate-cli/internal/store"
	"github.com/sells-group/estimate-cli/internal/summary"
	anthropicpkg "github.com/sells-group/estimate-cli/pkg/anthropic"
	"github.com/sells-group/estimate-cli/pkg/gemini"
	"github.com/sells-group/estimate-cli/pkg/scopestack"
)

// appEnv holds the store, the ScopeStack client and everything built on
// top of them for one command invocation.
type appEnv struct {
	Store     store.Store
	Settings  *store.Settings
	Client    scopestack.Client
	Resolver  *resolver.Resolver
	Generator *summary.Generator // nil when no provider key is configured
	Templates *summary.Templates
	Pipeline  *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
}

// initEnv opens the store and builds the ScopeStack client and workflow
// components. Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	settings := store.NewSettings(st)

	client, err := initScopeStack(ctx, settings)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	gen, err := initGenerator(ctx)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	res := resolver.New(client,
		resolver.WithMinChars(cfg.Workflow.SearchMinChars),
		resolver.WithCache(cfg.Workflow.SearchCacheSize, cfg.Workflow.SearchCacheTTL),
	)
	templates := summary.NewTemplates(settings)

	return &appEnv{
		Store:     st,
		Settings:  settings,
		Client:    client,
		Resolver:  res,
		Generator: gen,
		Templates: templates,
		Pipeline:  pipeline.New(cfg, st, client, res, gen, templates),
	}, nil
}

// initScopeStack builds the credential manager and API client. A refresh
// token persisted by an earlier exchange takes precedence over the
// configured one. When no account slug is configured it is discovered
// from the credential's account.
func initScopeStack(ctx context.Context, settings *store.Settings) (scopestack.Client, error) {
	refresh := cfg.ScopeStack.RefreshToken
	if saved, err := settings.RefreshToken(ctx); err != nil {
		zap.L().Warn("could not read saved refresh token", zap.Error(err))
	} else if saved != "" {
		refresh = saved
	}

	creds := scopestack.NewCredentials(scopestack.CredentialsConfig{
		AccessToken:  cfg.ScopeStack.AccessToken,
		RefreshToken: refresh,
		TokenURL:     cfg.ScopeStack.TokenURL,
		ClientID:     cfg.ScopeStack.ClientID,
		ClientSecret: cfg.ScopeStack.ClientSecret,
		Saver:        settings,
	})

	opts := []scopestack.Option{
		scopestack.WithBaseURL(cfg.ScopeStack.BaseURL),
		scopestack.WithRateLimit(cfg.ScopeStack.RateLimit),
	}

	slug := cfg.ScopeStack.AccountSlug
	if slug == "" {
		me, err := scopestack.NewClient(creds, opts...).Me(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "discover account slug")
		}
		slug = me.AccountSlug
		zap.L().Info("account discovered", zap.String("account_slug", slug), zap.String("user", me.UserName))
	}

	return scopestack.NewClient(creds, append(opts, scopestack.WithAccountSlug(slug))...), nil
}

// initGenerator builds the summary generator for the configured provider.
// A missing key disables generation; summaries then show the failure
// placeholder.
func initGenerator(ctx context.Context) (*summary.Generator, error) {
	var completer summary.Completer
	switch cfg.Summary.Provider {
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			zap.L().Warn("ESTIMATE_ANTHROPIC_KEY not set, executive summaries disabled")
			return nil, nil
		}
		completer = summary.AnthropicCompleter{
			Client:    anthropicpkg.NewClient(cfg.Anthropic.Key),
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
		}
	case "", "gemini":
		if cfg.Gemini.Key == "" {
			zap.L().Warn("ESTIMATE_GEMINI_KEY not set, executive summaries disabled")
			return nil, nil
		}
		opts := []gemini.Option{gemini.WithModel(cfg.Gemini.Model)}
		if cfg.Gemini.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.Gemini.BaseURL))
		}
		if cfg.Gemini.Temperature > 0 {
			opts = append(opts, gemini.WithTemperature(cfg.Gemini.Temperature))
		}
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key, opts...)
		if err != nil {
			return nil, eris.Wrap(err, "init gemini")
		}
		completer = summary.GeminiCompleter{Client: client}
	default:
		return nil, eris.Errorf("unsupported summary provider: %s", cfg.Summary.Provider)
	}

	return summary.NewGenerator(completer, summary.GeneratorConfig{
		MaxAttempts:      cfg.Summary.MaxAttempts,
		FailureThreshold: cfg.Summary.FailureThreshold,
	}), nil
}

// loadAccount resolves the account context used by estimate runs.
func loadAccount(ctx context.Context, client scopestack.Client) (*pipeline.Account, error) {
	return pipeline.LoadAccount(ctx, client, pipeline.AccountDefaults{
		PaymentTermID: cfg.ScopeStack.PaymentTermID,
		RateTableID:   cfg.ScopeStack.RateTableID,
	})
}
