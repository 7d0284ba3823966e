package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harborline/manifest-cli/internal/batch"
	"github.com/harborline/manifest-cli/internal/config"
	"github.com/harborline/manifest-cli/internal/normalize"
	"github.com/harborline/manifest-cli/internal/oracle"
	"github.com/harborline/manifest-cli/internal/store"
	"github.com/harborline/manifest-cli/pkg/anthropic"
)

// env bundles the adapter and its backing store for one command run.
type env struct {
	Adapter *batch.Adapter
	Store   store.Store
}

func (e *env) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// poolConfig maps the store config onto pool tuning parameters.
func poolConfig(c config.StoreConfig) *store.PoolConfig {
	return &store.PoolConfig{
		MaxConns: c.MaxConns,
		MinConns: c.MinConns,
	}
}

// initStore opens and migrates the mapping cache configured in cfg.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, poolConfig(cfg.Store))
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEnv builds the standardization adapter. offline skips the LLM
// oracles, noCache skips the mapping store.
func initEnv(ctx context.Context, offline, noCache bool) (*env, error) {
	mode := "run"
	if offline {
		mode = "offline"
	}
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	rules, err := loadRules(cfg.Clean)
	if err != nil {
		return nil, err
	}

	opts := batch.Options{
		Rules: rules,
		Clean: cfg.Clean.Enabled,
	}

	if !noCache {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		opts.Cache = st
	}

	if !offline {
		client := anthropic.NewClient(cfg.Anthropic.Key)
		oracleCfg := oracle.Config{
			Model:             cfg.Anthropic.Model,
			MaxTokens:         int64(cfg.Anthropic.MaxTokens),
			BatchThreshold:    cfg.Anthropic.BatchThreshold,
			Concurrency:       cfg.Anthropic.Concurrency,
			RequestsPerSecond: cfg.Anthropic.RequestsPerSec,
		}

		nameCfg := oracleCfg
		nameCfg.ChunkSize = cfg.Anthropic.NameChunkSize
		opts.Corrector = oracle.NewCorrector(client, nameCfg)

		cityCfg := oracleCfg
		cityCfg.ChunkSize = cfg.Anthropic.CityChunkSize
		opts.Extractor = oracle.NewExtractor(client, cityCfg)
	}

	return &env{Adapter: batch.New(opts), Store: opts.Cache}, nil
}

func loadRules(c config.CleanConfig) (normalize.Rules, error) {
	if !c.Enabled || c.RulesFile == "" {
		return normalize.DefaultRules(), nil
	}
	rules, err := normalize.LoadRules(c.RulesFile)
	if err != nil {
		return normalize.Rules{}, eris.Wrap(err, "load clean rules")
	}
	return rules, nil
}
