package app

import (
	"context"
	"fmt"

	"github.com/sudipkhatiwada/lockbox/internal/account"
	"github.com/sudipkhatiwada/lockbox/internal/config"
	"github.com/sudipkhatiwada/lockbox/internal/dialogue"
	"github.com/sudipkhatiwada/lockbox/internal/explain"
	"github.com/sudipkhatiwada/lockbox/internal/httpapi"
	"github.com/sudipkhatiwada/lockbox/internal/lockout"
	"github.com/sudipkhatiwada/lockbox/internal/observability"
	"github.com/sudipkhatiwada/lockbox/internal/recovery"
	"github.com/sudipkhatiwada/lockbox/internal/risk"
	"github.com/sudipkhatiwada/lockbox/internal/token"
)

type BuildResult struct {
	Config     config.Config
	API        *httpapi.Server
	Store      account.Store
	Policy     *lockout.Policy
	Recoveries *recovery.Manager
	Metrics    *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := account.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("account store init failed: %w", err)
	}

	generator, err := dialogue.NewGenerator(dialogue.Config{
		Mode:   cfg.GeneratorMode,
		APIURL: cfg.GeminiAPIURL,
		APIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("dialogue generator init failed: %w", err)
	}
	instrumented := dialogue.NewInstrumentedGenerator(generator, metrics)

	policy := lockout.NewPolicy(store, cfg.LockoutThreshold)

	agents := map[explain.Strategy]explain.Agent{
		explain.StrategyClassical: explain.NewClassicalAgent(policy, store, risk.NewModelClassifier()),
		explain.StrategyGenAI:     explain.NewGenAIAgent(policy, instrumented, cfg.GeneratorTimeout),
	}

	engine := recovery.NewEngine(policy, store, instrumented, cfg.MinPasswordLength, cfg.GeneratorTimeout)
	recoveries := recovery.NewManager(engine, policy, cfg.RecoveryInactivityTimeout)
	recoveries.SetExpireHook(func(_ *recovery.Conversation) {
		metrics.RecoveryEvents.WithLabelValues("expired").Inc()
		metrics.ActiveRecoveries.Set(float64(recoveries.ActiveCount()))
	})

	tokens := token.NewIssuer(cfg.TokenSigningKey, cfg.TokenTTL)

	api := httpapi.New(cfg, policy, store, agents, recoveries, tokens, metrics)

	return &BuildResult{
		Config:     cfg,
		API:        api,
		Store:      store,
		Policy:     policy,
		Recoveries: recoveries,
		Metrics:    metrics,
		Cleanup:    store.Close,
	}, nil
}
