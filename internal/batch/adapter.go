// Package batch standardizes whole columns of manifest values: it
// deduplicates, consults the mapping cache, sends only unresolved values
// to the oracle, runs the suffix engine, and reassembles results in the
// original row order.
package batch

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/harborline/manifest-cli/internal/model"
	"github.com/harborline/manifest-cli/internal/normalize"
	"github.com/harborline/manifest-cli/internal/oracle"
	"github.com/harborline/manifest-cli/internal/store"
)

// Adapter wires the deterministic engine, the oracles, and the mapping
// cache into column-level operations.
type Adapter struct {
	engine    *normalize.Engine
	corrector oracle.Corrector
	extractor oracle.Extractor
	cache     store.Store
	rules     normalize.Rules
	clean     bool
	stats     model.ColumnStats
}

// Options configures an Adapter. Cache may be nil to run uncached;
// Corrector and Extractor default to their offline implementations.
type Options struct {
	Engine    *normalize.Engine
	Corrector oracle.Corrector
	Extractor oracle.Extractor
	Cache     store.Store
	Rules     normalize.Rules
	Clean     bool
}

// New creates an Adapter.
func New(opts Options) *Adapter {
	if opts.Engine == nil {
		opts.Engine = normalize.Default()
	}
	if opts.Corrector == nil {
		opts.Corrector = oracle.Identity{}
	}
	if opts.Extractor == nil {
		opts.Extractor = oracle.Null{}
	}
	return &Adapter{
		engine:    opts.Engine,
		corrector: opts.Corrector,
		extractor: opts.Extractor,
		cache:     opts.Cache,
		rules:     opts.Rules,
		clean:     opts.Clean,
	}
}

// Stats returns counters from the most recent operation.
func (a *Adapter) Stats() model.ColumnStats {
	return a.stats
}

// StandardizeNames resolves a column of raw party names. The result has
// one record per input, in input order, with RawInput carried verbatim.
// Null markers resolve to an empty output.
func (a *Adapter) StandardizeNames(ctx context.Context, raws []string) ([]model.StandardizedRecord, error) {
	return a.resolve(ctx, raws, store.KindParty, a.standardizeUniques)
}

// ExtractCities resolves a column of raw addresses to city names. An
// address whose city cannot be determined yields an empty output.
func (a *Adapter) ExtractCities(ctx context.Context, raws []string) ([]model.StandardizedRecord, error) {
	return a.resolve(ctx, raws, store.KindCity, a.extractUniques)
}

// resolve runs the shared dedupe / cache / oracle / reassemble flow. The
// resolver callback turns cache misses into outputs.
func (a *Adapter) resolve(
	ctx context.Context,
	raws []string,
	kind store.Kind,
	resolver func(ctx context.Context, misses []string) map[string]string,
) ([]model.StandardizedRecord, error) {
	a.stats = model.ColumnStats{Rows: len(raws)}

	// Dedupe non-null inputs, preserving first-seen order so oracle
	// chunks are deterministic.
	var uniques []string
	seen := make(map[string]struct{})
	for _, raw := range raws {
		if normalize.IsNullMarker(raw) {
			a.stats.Nulls++
			continue
		}
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}
		uniques = append(uniques, raw)
	}
	a.stats.Uniques = len(uniques)

	resolved := a.fromCache(ctx, kind, uniques)
	a.stats.CacheHits = len(resolved)

	var misses []string
	for _, u := range uniques {
		if _, ok := resolved[u]; !ok {
			misses = append(misses, u)
		}
	}

	if len(misses) > 0 {
		fresh := resolver(ctx, misses)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for raw, out := range fresh {
			resolved[raw] = out
		}
		a.toCache(ctx, kind, fresh)
	}

	out := make([]model.StandardizedRecord, len(raws))
	for i, raw := range raws {
		rec := model.StandardizedRecord{RawInput: raw}
		if !normalize.IsNullMarker(raw) {
			rec.Output = resolved[raw]
		}
		out[i] = rec
	}
	return out, nil
}

// standardizeUniques resolves party names not found in the cache:
// optional rule-based cleanup, oracle spelling correction, then the
// suffix engine. A name the oracle drops still goes through the engine.
func (a *Adapter) standardizeUniques(ctx context.Context, misses []string) map[string]string {
	prepared := make(map[string]string, len(misses))
	for _, raw := range misses {
		p := strings.TrimSpace(raw)
		if a.clean {
			p = normalize.Clean(raw, a.rules)
		}
		prepared[raw] = p
	}

	// Distinct raws can clean to the same prepared name; the oracle must
	// see each name once.
	toCorrect := make([]string, 0, len(misses))
	seen := make(map[string]struct{}, len(misses))
	for _, raw := range misses {
		p := prepared[raw]
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		toCorrect = append(toCorrect, p)
	}

	corrected, err := a.corrector.Correct(ctx, toCorrect)
	if err != nil {
		zap.L().Warn("batch: spelling correction failed, using inputs as-is", zap.Error(err))
		corrected = nil
	}

	out := make(map[string]string, len(misses))
	for _, raw := range misses {
		name := prepared[raw]
		if c, ok := corrected[name]; ok && strings.TrimSpace(c) != "" {
			name = c
		}
		out[raw] = a.engine.Normalize(name)
	}
	return out
}

// extractUniques resolves addresses not found in the cache. There is no
// identity fallback: an unresolved address maps to "".
func (a *Adapter) extractUniques(ctx context.Context, misses []string) map[string]string {
	trimmed := make([]string, len(misses))
	toExtract := make([]string, 0, len(misses))
	seen := make(map[string]struct{}, len(misses))
	for i, raw := range misses {
		trimmed[i] = strings.TrimSpace(raw)
		if _, ok := seen[trimmed[i]]; ok {
			continue
		}
		seen[trimmed[i]] = struct{}{}
		toExtract = append(toExtract, trimmed[i])
	}

	cities, err := a.extractor.Extract(ctx, toExtract)
	if err != nil {
		zap.L().Warn("batch: city extraction failed", zap.Error(err))
		cities = nil
	}

	out := make(map[string]string, len(misses))
	for i, raw := range misses {
		if city, ok := cities[trimmed[i]]; ok {
			out[raw] = city
		}
	}
	return out
}

// fromCache loads cached mappings; a cache failure degrades to a miss.
func (a *Adapter) fromCache(ctx context.Context, kind store.Kind, uniques []string) map[string]string {
	if a.cache == nil || len(uniques) == 0 {
		return map[string]string{}
	}
	cached, err := a.cache.GetMappings(ctx, kind, uniques)
	if err != nil {
		zap.L().Warn("batch: cache read failed", zap.String("kind", string(kind)), zap.Error(err))
		return map[string]string{}
	}
	return cached
}

// toCache stores fresh mappings; a cache failure is not fatal to the run.
func (a *Adapter) toCache(ctx context.Context, kind store.Kind, fresh map[string]string) {
	if a.cache == nil || len(fresh) == 0 {
		return
	}
	if err := a.cache.PutMappings(ctx, kind, fresh); err != nil {
		zap.L().Warn("batch: cache write failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}
