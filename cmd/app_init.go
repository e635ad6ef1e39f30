package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Clerks303/Scraping/internal/importer"
	"github.com/Clerks303/Scraping/internal/job"
	"github.com/Clerks303/Scraping/internal/reconcile"
	"github.com/Clerks303/Scraping/internal/scorer"
	"github.com/Clerks303/Scraping/internal/source"
	"github.com/Clerks303/Scraping/internal/store"
	"github.com/Clerks303/Scraping/pkg/infogreffe"
	"github.com/Clerks303/Scraping/pkg/pappers"
	"github.com/Clerks303/Scraping/pkg/societe"
)

// appEnv holds the initialized store, source registry, orchestrator, and
// importer shared by the serve/scrape/import commands.
type appEnv struct {
	Store        store.Store
	Registry     *source.Registry
	Orchestrator *job.Orchestrator
	Importer     *importer.Importer
}

// Close releases resources held by the environment. Running jobs are
// waited out first so the store is not closed under them.
func (env *appEnv) Close() {
	if env.Orchestrator != nil {
		env.Orchestrator.Wait()
	}
	if env.Store != nil {
		_ = env.Store.Close()
	}
}

// initApp sets up the store, API clients, sources, and orchestrator.
// Callers should defer env.Close().
func initApp(ctx context.Context) (*appEnv, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var sc scorer.Scorer = scorer.NewHeuristic()
	if cfg.Anthropic.Key != "" {
		sc = scorer.NewLLM(cfg.Anthropic)
		zap.L().Info("llm scoring enabled", zap.String("model", cfg.Anthropic.Model))
	}

	rec := reconcile.New(st, sc)

	pappersClient := pappers.New(pappers.Options{
		APIKey:        cfg.Pappers.Key,
		BaseURL:       cfg.Pappers.BaseURL,
		RatePerSecond: cfg.Pappers.RatePerSecond,
	})
	societeClient := societe.New(societe.Options{
		BaseURL:  cfg.Societe.BaseURL,
		Timeout:  time.Duration(cfg.Societe.TimeoutSecs) * time.Second,
		MinDelay: time.Duration(cfg.Societe.MinDelayMs) * time.Millisecond,
		MaxDelay: time.Duration(cfg.Societe.MaxDelayMs) * time.Millisecond,
	})
	infogreffeClient := infogreffe.New(infogreffe.Options{
		BaseURL: cfg.Infogreffe.BaseURL,
	})

	registry := source.NewRegistry()
	if cfg.Pappers.Key != "" {
		registry.Register(source.NewPappers(pappersClient, cfg.Pappers))
	} else {
		zap.L().Warn("PROSPECT_PAPPERS_KEY not set, pappers source disabled")
	}
	registry.Register(source.NewSociete(societeClient, st, cfg.Societe))
	registry.Register(source.NewInfogreffe(infogreffeClient, st, cfg.Infogreffe))

	return &appEnv{
		Store:        st,
		Registry:     registry,
		Orchestrator: job.NewOrchestrator(registry, rec),
		Importer:     importer.New(rec, cfg.Import),
	}, nil
}
