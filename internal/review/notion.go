// Package review exports samples of standardized mappings to a Notion
// database for human spot checks.
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/harborline/manifest-cli/internal/model"
)

// Client defines the Notion API operations the exporter uses.
type Client interface {
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// notionClient implements Client by wrapping a *notionapi.Client behind
// Notion's 3 req/s rate limit.
type notionClient struct {
	inner   *notionapi.Client
	limiter *rate.Limiter
}

// NewClient creates a Notion client with the given integration token.
func NewClient(token string) Client {
	return &notionClient{
		inner:   notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(3, 1),
	}
}

func (c *notionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "review: rate limit")
	}
	page, err := c.inner.Page.Create(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "review: create page")
	}
	return page, nil
}

// Exporter writes review pages into a Notion database. One page per
// sampled mapping, tagged with a batch ID so a review session can be
// filtered out later.
type Exporter struct {
	client     Client
	databaseID string
}

// NewExporter creates an Exporter targeting one Notion database.
func NewExporter(client Client, databaseID string) *Exporter {
	return &Exporter{client: client, databaseID: databaseID}
}

// NewBatchID returns a fresh identifier for one review export.
func NewBatchID() string {
	return uuid.NewString()
}

// Export creates one review page per record. Pages that fail to create
// are logged and skipped so one bad record does not abort the batch.
func (e *Exporter) Export(ctx context.Context, batchID, column string, records []model.StandardizedRecord) (int, error) {
	exported := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return exported, eris.Wrap(err, "review: export interrupted")
		}
		if _, err := e.client.CreatePage(ctx, e.pageRequest(batchID, column, rec)); err != nil {
			zap.L().Warn("review: skipping record",
				zap.String("raw_input", rec.RawInput),
				zap.Error(err))
			continue
		}
		exported++
	}
	zap.L().Info("review: export complete",
		zap.String("batch_id", batchID),
		zap.Int("exported", exported),
		zap.Int("total", len(records)))
	return exported, nil
}

func (e *Exporter) pageRequest(batchID, column string, rec model.StandardizedRecord) *notionapi.PageCreateRequest {
	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(e.databaseID),
		},
		Properties: notionapi.Properties{
			"Raw Input": notionapi.TitleProperty{
				Title: richText(rec.RawInput),
			},
			"Output": notionapi.RichTextProperty{
				RichText: richText(rec.Output),
			},
			"Column": notionapi.RichTextProperty{
				RichText: richText(column),
			},
			"Batch": notionapi.RichTextProperty{
				RichText: richText(batchID),
			},
			"Exported At": notionapi.RichTextProperty{
				RichText: richText(time.Now().UTC().Format(time.RFC3339)),
			},
		},
	}
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{Text: &notionapi.Text{Content: s}},
	}
}

// Sample picks up to n records spread evenly across the input, so a
// review batch covers the whole run instead of its first rows. The
// input order is preserved.
func Sample(records []model.StandardizedRecord, n int) []model.StandardizedRecord {
	if n <= 0 || len(records) == 0 {
		return nil
	}
	if len(records) <= n {
		out := make([]model.StandardizedRecord, len(records))
		copy(out, records)
		return out
	}

	out := make([]model.StandardizedRecord, 0, n)
	step := float64(len(records)) / float64(n)
	for i := 0; i < n; i++ {
		out = append(out, records[int(float64(i)*step)])
	}
	return out
}

// Describe renders a one-line summary for CLI output.
func Describe(batchID string, exported, sampled int) string {
	return fmt.Sprintf("exported %d of %d sampled mappings (batch %s)", exported, sampled, batchID)
}
