package batch

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/manifest-cli/internal/store"
)

var _ store.Store = (*memStore)(nil)

// memStore is an in-memory Store that counts reads and writes.
type memStore struct {
	mu       sync.Mutex
	data     map[store.Kind]map[string]string
	gets     int
	puts     int
	failGets bool
	failPuts bool
}

func newMemStore() *memStore {
	return &memStore{data: map[store.Kind]map[string]string{}}
}

func (s *memStore) GetMappings(_ context.Context, kind store.Kind, inputs []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.failGets {
		return nil, assert.AnError
	}
	out := map[string]string{}
	for _, in := range inputs {
		if v, ok := s.data[kind][in]; ok {
			out[in] = v
		}
	}
	return out, nil
}

func (s *memStore) PutMappings(_ context.Context, kind store.Kind, mappings map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.failPuts {
		return assert.AnError
	}
	if s.data[kind] == nil {
		s.data[kind] = map[string]string{}
	}
	for k, v := range mappings {
		s.data[kind][k] = v
	}
	return nil
}

func (s *memStore) CountMappings(context.Context, store.Kind) (int, error) { return 0, nil }
func (s *memStore) DeleteKind(context.Context, store.Kind) (int, error)    { return 0, nil }
func (s *memStore) Migrate(context.Context) error                           { return nil }
func (s *memStore) Close() error                                            { return nil }

// countingCorrector records every name it was asked to correct.
type countingCorrector struct {
	calls     int
	requested []string
	fn        func(name string) string
	err       error
}

func (c *countingCorrector) Correct(_ context.Context, names []string) (map[string]string, error) {
	c.calls++
	c.requested = append(c.requested, names...)
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[string]string, len(names))
	for _, n := range names {
		if c.fn != nil {
			out[n] = c.fn(n)
		} else {
			out[n] = n
		}
	}
	return out, nil
}

// countingExtractor resolves addresses through a fixed city table.
type countingExtractor struct {
	calls  int
	cities map[string]string
	err    error
}

func (e *countingExtractor) Extract(_ context.Context, addresses []string) (map[string]string, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := map[string]string{}
	for _, a := range addresses {
		if city, ok := e.cities[a]; ok {
			out[a] = city
		}
	}
	return out, nil
}

func TestStandardizeNames_OrderAndVerbatimRawInput(t *testing.T) {
	a := New(Options{})

	raws := []string{"  Acme Pvt Ltd  ", "GLOBEX LLC", "  Acme Pvt Ltd  "}
	recs, err := a.StandardizeNames(context.Background(), raws)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	// RawInput carries the value exactly as given, whitespace included.
	assert.Equal(t, "  Acme Pvt Ltd  ", recs[0].RawInput)
	assert.Equal(t, "Acme PRIVATE LIMITED", recs[0].Output)
	assert.Equal(t, "GLOBEX LIMITED LIABILITY COMPANY", recs[1].Output)
	assert.Equal(t, recs[0], recs[2])
}

func TestStandardizeNames_NullMarkers(t *testing.T) {
	a := New(Options{})

	recs, err := a.StandardizeNames(context.Background(), []string{"", "nan", "NULL", "ACME LTD"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.Equal(t, "", recs[i].Output)
	}
	assert.Equal(t, "NULL", recs[2].RawInput)
	assert.Equal(t, "ACME LIMITED", recs[3].Output)

	stats := a.Stats()
	assert.Equal(t, 4, stats.Rows)
	assert.Equal(t, 3, stats.Nulls)
	assert.Equal(t, 1, stats.Uniques)
}

func TestStandardizeNames_CacheHitsSkipOracle(t *testing.T) {
	cache := newMemStore()
	cache.data[store.KindParty] = map[string]string{
		"ACME PVT LTD": "ACME PRIVATE LIMITED",
	}
	corr := &countingCorrector{}
	a := New(Options{Cache: cache, Corrector: corr})

	recs, err := a.StandardizeNames(context.Background(), []string{"ACME PVT LTD", "ACME PVT LTD"})
	require.NoError(t, err)
	assert.Equal(t, "ACME PRIVATE LIMITED", recs[0].Output)

	// Everything came from the cache, so the oracle never ran and
	// nothing was written back.
	assert.Equal(t, 0, corr.calls)
	assert.Equal(t, 1, cache.gets)
	assert.Equal(t, 0, cache.puts)
	assert.Equal(t, 1, a.Stats().CacheHits)
}

func TestStandardizeNames_MissesAreResolvedAndCached(t *testing.T) {
	cache := newMemStore()
	cache.data[store.KindParty] = map[string]string{"CACHED CO": "CACHED COMPANY"}
	corr := &countingCorrector{}
	a := New(Options{Cache: cache, Corrector: corr})

	recs, err := a.StandardizeNames(context.Background(), []string{"CACHED CO", "FRESH PVT LTD"})
	require.NoError(t, err)
	assert.Equal(t, "CACHED COMPANY", recs[0].Output)
	assert.Equal(t, "FRESH PRIVATE LIMITED", recs[1].Output)

	// Only the miss went to the oracle, and it was written back under
	// its raw form.
	assert.Equal(t, []string{"FRESH PVT LTD"}, corr.requested)
	assert.Equal(t, "FRESH PRIVATE LIMITED", cache.data[store.KindParty]["FRESH PVT LTD"])
}

func TestStandardizeNames_CorrectionApplied(t *testing.T) {
	corr := &countingCorrector{fn: func(name string) string {
		return strings.ReplaceAll(name, "EXPRTS", "EXPORTS")
	}}
	a := New(Options{Corrector: corr})

	recs, err := a.StandardizeNames(context.Background(), []string{"GANESH EXPRTS PVT LTD"})
	require.NoError(t, err)
	assert.Equal(t, "GANESH EXPORTS PRIVATE LIMITED", recs[0].Output)
	assert.Equal(t, "GANESH EXPRTS PVT LTD", recs[0].RawInput)
}

func TestStandardizeNames_CorrectorFailureFallsBack(t *testing.T) {
	corr := &countingCorrector{err: assert.AnError}
	a := New(Options{Corrector: corr})

	recs, err := a.StandardizeNames(context.Background(), []string{"ACME PVT LTD"})
	require.NoError(t, err)
	assert.Equal(t, "ACME PRIVATE LIMITED", recs[0].Output)
}

func TestStandardizeNames_CleanPath(t *testing.T) {
	corr := &countingCorrector{}
	a := New(Options{Corrector: corr, Clean: true})

	recs, err := a.StandardizeNames(context.Background(), []string{"m/s acme intl pvt ltd"})
	require.NoError(t, err)
	assert.Equal(t, "ACME INTERNATIONAL PRIVATE LIMITED", recs[0].Output)
	// The oracle sees the cleaned form, not the raw one.
	assert.Equal(t, []string{"ACME INTERNATIONAL PVT LTD"}, corr.requested)
}

func TestStandardizeNames_DistinctRawsCleanToSameName(t *testing.T) {
	corr := &countingCorrector{}
	a := New(Options{Corrector: corr, Clean: true})

	recs, err := a.StandardizeNames(context.Background(), []string{"acme ltd", "ACME LTD."})
	require.NoError(t, err)
	assert.Equal(t, "ACME LIMITED", recs[0].Output)
	assert.Equal(t, "ACME LIMITED", recs[1].Output)
	// Both raws collapse to one cleaned name; the oracle sees it once.
	assert.Equal(t, []string{"ACME LTD"}, corr.requested)
}

func TestStandardizeNames_CacheFailuresDegrade(t *testing.T) {
	cache := newMemStore()
	cache.failGets = true
	cache.failPuts = true
	a := New(Options{Cache: cache})

	recs, err := a.StandardizeNames(context.Background(), []string{"ACME LTD"})
	require.NoError(t, err)
	assert.Equal(t, "ACME LIMITED", recs[0].Output)
}

func TestExtractCities(t *testing.T) {
	ext := &countingExtractor{cities: map[string]string{
		"12 DOCK RD, NHAVA SHEVA, MAHARASHTRA": "NHAVA SHEVA",
	}}
	a := New(Options{Extractor: ext})

	recs, err := a.ExtractCities(context.Background(), []string{
		"12 DOCK RD, NHAVA SHEVA, MAHARASHTRA",
		"UNPARSEABLE ADDRESS",
		"",
	})
	require.NoError(t, err)
	assert.Equal(t, "NHAVA SHEVA", recs[0].Output)
	// No identity fallback for addresses.
	assert.Equal(t, "", recs[1].Output)
	assert.Equal(t, "", recs[2].Output)
	assert.Equal(t, 1, ext.calls)
}

func TestExtractCities_CachedUnderCityKind(t *testing.T) {
	cache := newMemStore()
	ext := &countingExtractor{cities: map[string]string{"ADDR A": "MUMBAI"}}
	a := New(Options{Cache: cache, Extractor: ext})

	_, err := a.ExtractCities(context.Background(), []string{"ADDR A"})
	require.NoError(t, err)
	assert.Equal(t, "MUMBAI", cache.data[store.KindCity]["ADDR A"])
	assert.Empty(t, cache.data[store.KindParty])

	// A second run is served entirely from the cache.
	_, err = a.ExtractCities(context.Background(), []string{"ADDR A"})
	require.NoError(t, err)
	assert.Equal(t, 1, ext.calls)
}

func TestExtractCities_UnresolvedNotCached(t *testing.T) {
	cache := newMemStore()
	ext := &countingExtractor{cities: map[string]string{}}
	a := New(Options{Cache: cache, Extractor: ext})

	recs, err := a.ExtractCities(context.Background(), []string{"SOMEWHERE"})
	require.NoError(t, err)
	assert.Equal(t, "", recs[0].Output)
	// An undetermined city is not persisted, so a later run retries it.
	assert.Empty(t, cache.data[store.KindCity])
}

func TestResolve_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	corr := &countingCorrector{fn: func(name string) string {
		cancel()
		return name
	}}
	a := New(Options{Corrector: corr})

	_, err := a.StandardizeNames(ctx, []string{"ACME LTD"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNew_Defaults(t *testing.T) {
	a := New(Options{})
	require.NotNil(t, a.engine)

	recs, err := a.ExtractCities(context.Background(), []string{"ANY ADDRESS"})
	require.NoError(t, err)
	assert.Equal(t, "", recs[0].Output)
}

func TestParseRequest(t *testing.T) {
	inputs, err := ParseRequest(strings.NewReader(
		`{"data":[{"raw_input":"ACME PVT LTD"},{"raw_address":"12 DOCK RD, MUMBAI"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"ACME PVT LTD", "12 DOCK RD, MUMBAI"}, inputs)
}

func TestParseRequest_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{"data":`, "malformed request body"},
		{"no entries", `{"data":[]}`, "no data entries"},
		{"missing field", `{"data":[{"raw_input":"A"},{}]}`, "entry 1 missing raw_input"},
		{"both fields", `{"data":[{"raw_input":"A","raw_address":"B"}]}`, "entry 0 has both"},
		{"unknown field", `{"data":[{"raw":"A"}]}`, "malformed request body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRequest(strings.NewReader(tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
