// Package api contains the HTTP contract of the consolidation service.
// Version v1 represents the current stable API version.
package api

import (
	"gscconsolidate/pkg/contracts/domain"
)

// ConsolidateRequest holds the form fields sent alongside an uploaded file
type ConsolidateRequest struct {
	Filename  string `form:"file" validate:"required,filename"`
	MinClicks int    `form:"min_clicks" validate:"gte=0"`
	Format    string `form:"format" validate:"oneof=csv xlsx"`
}

// SearchConsoleRequest selects rows to pull from the Search Console API
type SearchConsoleRequest struct {
	SiteURL   string `json:"site_url" validate:"required"`
	StartDate string `json:"start_date" validate:"required,isodate"`
	EndDate   string `json:"end_date" validate:"required,isodate"`
	MinClicks int    `json:"min_clicks" validate:"gte=0"`
	Format    string `json:"format" validate:"omitempty,oneof=csv xlsx"`
}

// StatsResponse mirrors domain.Stats on the wire
type StatsResponse struct {
	Pages            int     `json:"pages"`
	KeywordsBefore   int     `json:"keywords_before"`
	KeywordsAfter    int     `json:"keywords_after"`
	TotalClicks      float64 `json:"total_clicks"`
	TotalImpressions float64 `json:"total_impressions"`
	MinClicks        int     `json:"min_clicks"`
}

// NewStatsResponse converts run statistics
func NewStatsResponse(s domain.Stats) StatsResponse {
	return StatsResponse{
		Pages:            s.Pages,
		KeywordsBefore:   s.KeywordsBefore,
		KeywordsAfter:    s.KeywordsAfter,
		TotalClicks:      s.TotalClicks,
		TotalImpressions: s.TotalImpressions,
		MinClicks:        s.MinClicks,
	}
}

// PreviewResponse is returned by the preview endpoint
type PreviewResponse struct {
	Source        string        `json:"source"`
	Strategy      string        `json:"strategy"`
	Stats         StatsResponse `json:"stats"`
	FilterSummary string        `json:"filter_summary,omitempty"`
	Columns       []string      `json:"columns"`
	Rows          [][]string    `json:"rows"`
	OutputName    string        `json:"output_name"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}
