package searchconsole

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"google.golang.org/api/option"
	gsc "google.golang.org/api/searchconsole/v1"

	apperrors "gscconsolidate/internal/errors"
	"gscconsolidate/pkg/contracts/domain"
)

// MaxRowLimit is the largest page size the Search Analytics API accepts
const MaxRowLimit = 25000

const dateLayout = "2006-01-02"

// Headers are the column names of tables built from API rows
var Headers = []string{"Page", "Query", "Clicks", "Impressions"}

// Config holds Search Console access settings
type Config struct {
	// CredentialsFile is a service account key; empty uses application default credentials
	CredentialsFile string
	RowLimit        int64
	SearchType      string
	// Endpoint overrides the API base URL
	Endpoint string
}

// Query selects the rows to fetch
type Query struct {
	SiteURL   string
	StartDate string
	EndDate   string
}

// Validate checks the site and the YYYY-MM-DD date range
func (q Query) Validate() error {
	if q.SiteURL == "" {
		return apperrors.NewAppValidationError("site URL is required")
	}
	start, err := time.Parse(dateLayout, q.StartDate)
	if err != nil {
		return apperrors.NewAppValidationError(fmt.Sprintf("invalid start date %q, expected YYYY-MM-DD", q.StartDate))
	}
	end, err := time.Parse(dateLayout, q.EndDate)
	if err != nil {
		return apperrors.NewAppValidationError(fmt.Sprintf("invalid end date %q, expected YYYY-MM-DD", q.EndDate))
	}
	if end.Before(start) {
		return apperrors.NewAppValidationError("end date is before start date")
	}
	return nil
}

// Client pulls (page, query) performance rows from the Search Console API
type Client struct {
	svc    *gsc.Service
	cfg    Config
	logger *slog.Logger
}

// NewClient creates a client. Extra options are appended after the ones
// derived from cfg.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RowLimit <= 0 || cfg.RowLimit > MaxRowLimit {
		cfg.RowLimit = MaxRowLimit
	}
	if cfg.SearchType == "" {
		cfg.SearchType = "web"
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := gsc.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to create search console service", err)
	}

	return &Client{
		svc:    svc,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "searchconsole")),
	}, nil
}

// FetchTable pages through the Search Analytics rows of q and returns them
// as a four-column table ready for consolidation.
func (c *Client) FetchTable(ctx context.Context, q Query) (domain.Table, error) {
	if err := q.Validate(); err != nil {
		return domain.Table{}, err
	}

	table := domain.Table{Headers: append([]string(nil), Headers...)}
	var startRow int64

	for {
		req := &gsc.SearchAnalyticsQueryRequest{
			StartDate:  q.StartDate,
			EndDate:    q.EndDate,
			Dimensions: []string{"page", "query"},
			RowLimit:   c.cfg.RowLimit,
			StartRow:   startRow,
			Type:       c.cfg.SearchType,
		}

		resp, err := c.svc.Searchanalytics.Query(q.SiteURL, req).Context(ctx).Do()
		if err != nil {
			return domain.Table{}, apperrors.NewNetworkError("search analytics query failed", err).
				WithContext("site", q.SiteURL).
				WithContext("start_row", startRow)
		}

		for _, row := range resp.Rows {
			table.Rows = append(table.Rows, toRecord(row))
		}

		c.logger.DebugContext(ctx, "fetched search analytics page",
			slog.String("site", q.SiteURL),
			slog.Int64("start_row", startRow),
			slog.Int("rows", len(resp.Rows)),
		)

		if int64(len(resp.Rows)) < c.cfg.RowLimit {
			break
		}
		startRow += int64(len(resp.Rows))
	}

	c.logger.InfoContext(ctx, "search analytics rows fetched",
		slog.String("site", q.SiteURL),
		slog.String("start_date", q.StartDate),
		slog.String("end_date", q.EndDate),
		slog.Int("rows", len(table.Rows)),
	)
	return table, nil
}

func toRecord(row *gsc.ApiDataRow) []string {
	var page, query string
	if len(row.Keys) > 0 {
		page = row.Keys[0]
	}
	if len(row.Keys) > 1 {
		query = row.Keys[1]
	}
	return []string{
		page,
		query,
		strconv.FormatFloat(row.Clicks, 'f', -1, 64),
		strconv.FormatFloat(row.Impressions, 'f', -1, 64),
	}
}
