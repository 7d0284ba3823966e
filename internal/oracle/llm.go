package oracle

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/harborline/manifest-cli/internal/resilience"
	"github.com/harborline/manifest-cli/pkg/anthropic"
)

// Default tuning for the LLM oracles. Party names are denser than
// addresses, so they travel in smaller chunks.
const (
	DefaultModel          = "claude-haiku-4-5-20251001"
	DefaultMaxTokens      = 2048
	DefaultNameChunkSize  = 10
	DefaultCityChunkSize  = 20
	DefaultBatchThreshold = 12
	DefaultConcurrency    = 6
	DefaultRequestsPerSec = 2.0
)

// Config tunes an LLM oracle. Zero values fall back to the defaults above.
type Config struct {
	Model     string
	MaxTokens int64

	// ChunkSize is the number of inputs per request.
	ChunkSize int

	// BatchThreshold is the chunk count at which the run switches from
	// concurrent direct requests to the Message Batches API.
	BatchThreshold int

	// Concurrency bounds in-flight direct requests.
	Concurrency int

	// RequestsPerSecond throttles direct requests across all chunks.
	RequestsPerSecond float64

	Retry resilience.RetryConfig
}

func (c Config) withDefaults(chunkSize int) Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = chunkSize
	}
	if c.BatchThreshold <= 0 {
		c.BatchThreshold = DefaultBatchThreshold
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSec
	}
	return c
}

// llm is the shared engine behind both oracles.
type llm struct {
	client  anthropic.Client
	cfg     Config
	system  string
	phase   string
	limiter *rate.Limiter

	// fallback controls per-chunk failure handling: party names fall
	// back to identity, addresses yield nothing.
	fallback bool
}

func newLLM(client anthropic.Client, cfg Config, system, phase string, fallback bool, chunkSize int) *llm {
	cfg = cfg.withDefaults(chunkSize)
	return &llm{
		client:   client,
		cfg:      cfg,
		system:   system,
		phase:    phase,
		fallback: fallback,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// LLMCorrector is the Anthropic-backed Corrector.
type LLMCorrector struct {
	*llm
}

// NewCorrector creates a Corrector that fixes party name spellings.
func NewCorrector(client anthropic.Client, cfg Config) *LLMCorrector {
	return &LLMCorrector{newLLM(client, cfg, partySystemPrompt, "party", true, DefaultNameChunkSize)}
}

func (c *LLMCorrector) Correct(ctx context.Context, names []string) (map[string]string, error) {
	return c.run(ctx, names)
}

// LLMExtractor is the Anthropic-backed Extractor.
type LLMExtractor struct {
	*llm
}

// NewExtractor creates an Extractor that pulls cities from addresses.
func NewExtractor(client anthropic.Client, cfg Config) *LLMExtractor {
	return &LLMExtractor{newLLM(client, cfg, citySystemPrompt, "city", false, DefaultCityChunkSize)}
}

func (e *LLMExtractor) Extract(ctx context.Context, addresses []string) (map[string]string, error) {
	return e.run(ctx, addresses)
}

// run resolves all inputs, choosing the direct or batch path by chunk
// count. Failed chunks degrade to partial results instead of failing the
// whole run.
func (l *llm) run(ctx context.Context, inputs []string) (map[string]string, error) {
	if len(inputs) == 0 {
		return map[string]string{}, nil
	}

	chunks := chunkStrings(inputs, l.cfg.ChunkSize)
	if len(chunks) >= l.cfg.BatchThreshold {
		return l.runBatch(ctx, chunks)
	}
	return l.runDirect(ctx, chunks)
}

func (l *llm) runDirect(ctx context.Context, chunks [][]string) (map[string]string, error) {
	results := make([]map[string]string, len(chunks))
	var usage anthropic.TokenUsage
	var usageMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.Concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := l.limiter.Wait(gctx); err != nil {
				return err
			}
			m, u, err := l.callChunk(gctx, chunk)
			if err != nil {
				results[i] = l.failChunk(chunk, err)
				return nil
			}
			usageMu.Lock()
			usage.Add(u)
			usageMu.Unlock()
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	usage.LogUsage(l.cfg.Model, l.phase)
	return mergeResults(results), nil
}

func (l *llm) runBatch(ctx context.Context, chunks [][]string) (map[string]string, error) {
	req := anthropic.BatchRequest{
		Requests: make([]anthropic.BatchRequestItem, 0, len(chunks)),
	}
	for i, chunk := range chunks {
		msgReq, err := l.buildRequest(chunk)
		if err != nil {
			return nil, err
		}
		req.Requests = append(req.Requests, anthropic.BatchRequestItem{
			CustomID: "chunk-" + strconv.Itoa(i),
			Params:   msgReq,
		})
	}

	batch, err := l.client.CreateBatch(ctx, req)
	if err != nil {
		return nil, err
	}
	zap.L().Info("oracle: batch submitted",
		zap.String("phase", l.phase),
		zap.String("batch_id", batch.ID),
		zap.Int("chunks", len(chunks)),
	)

	if _, err := anthropic.PollBatch(ctx, l.client, batch.ID); err != nil {
		return nil, err
	}

	iter, err := l.client.GetBatchResults(ctx, batch.ID)
	if err != nil {
		return nil, err
	}
	succeeded, _, err := anthropic.CollectBatchResults(iter)
	if err != nil {
		return nil, err
	}

	results := make([]map[string]string, len(chunks))
	var usage anthropic.TokenUsage
	for i, chunk := range chunks {
		resp, ok := succeeded["chunk-"+strconv.Itoa(i)]
		if !ok {
			results[i] = l.failChunk(chunk, nil)
			continue
		}
		usage.Add(resp.Usage)
		m, perr := parseEnvelope(resp.Text(), chunk)
		if perr != nil {
			results[i] = l.failChunk(chunk, perr)
			continue
		}
		results[i] = m
	}

	usage.LogUsage(l.cfg.Model, l.phase)
	return mergeResults(results), nil
}

func (l *llm) buildRequest(chunk []string) (anthropic.MessageRequest, error) {
	payload, err := buildUserPayload(chunk)
	if err != nil {
		return anthropic.MessageRequest{}, err
	}
	temp := 0.0
	return anthropic.MessageRequest{
		Model:       l.cfg.Model,
		MaxTokens:   l.cfg.MaxTokens,
		System:      anthropic.BuildCachedSystemBlocks(l.system),
		Messages:    []anthropic.Message{{Role: "user", Content: payload}},
		Temperature: &temp,
	}, nil
}

// callChunk sends one chunk with retries. A malformed envelope counts as
// transient: the model usually produces valid JSON on a retry.
func (l *llm) callChunk(ctx context.Context, chunk []string) (map[string]string, anthropic.TokenUsage, error) {
	req, err := l.buildRequest(chunk)
	if err != nil {
		return nil, anthropic.TokenUsage{}, err
	}

	retry := l.cfg.Retry
	retry.OnRetry = resilience.RetryLogger("anthropic", l.phase+"_standardize")

	var usage anthropic.TokenUsage
	m, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (map[string]string, error) {
		resp, err := l.client.CreateMessage(ctx, req)
		if err != nil {
			return nil, err
		}
		usage.Add(resp.Usage)
		parsed, perr := parseEnvelope(resp.Text(), chunk)
		if perr != nil {
			return nil, resilience.NewTransientError(perr, 0)
		}
		return parsed, nil
	})
	return m, usage, err
}

// failChunk applies the per-oracle degradation policy to a failed chunk.
func (l *llm) failChunk(chunk []string, err error) map[string]string {
	zap.L().Warn("oracle: chunk failed",
		zap.String("phase", l.phase),
		zap.Int("size", len(chunk)),
		zap.Bool("identity_fallback", l.fallback),
		zap.Error(err),
	)
	if !l.fallback {
		return nil
	}
	out := make(map[string]string, len(chunk))
	for _, in := range chunk {
		out[in] = in
	}
	return out
}

func chunkStrings(inputs []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(inputs); start += size {
		end := min(start+size, len(inputs))
		chunks = append(chunks, inputs[start:end])
	}
	return chunks
}

func mergeResults(results []map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range results {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
