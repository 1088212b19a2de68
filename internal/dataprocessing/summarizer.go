package dataprocessing

import (
	"fmt"
	"log/slog"
	"strings"

	"gscconsolidate/pkg/contracts/domain"
)

// DefaultPreviewLimit is the number of entries shown per multi-valued cell
const DefaultPreviewLimit = 5

// previewEllipsis marks a truncated list cell
const previewEllipsis = "..."

// ComputeStats sums the per-row counts and totals of a consolidation
func ComputeStats(rows []domain.OutputRow, minClicks int) domain.Stats {
	stats := domain.Stats{Pages: len(rows), MinClicks: minClicks}
	for _, r := range rows {
		stats.KeywordsBefore += r.KeywordCount
		stats.KeywordsAfter += r.ListedKeywords
		stats.TotalClicks += r.TotalClicks
		stats.TotalImpressions += r.TotalImpressions
	}
	return stats
}

// FilterSummary describes the effect of the click threshold. It is empty
// when no threshold was applied.
func FilterSummary(stats domain.Stats) string {
	if stats.MinClicks <= 0 {
		return ""
	}
	return fmt.Sprintf("%d keywords kept out of %d (threshold: %d clicks minimum)",
		stats.KeywordsAfter, stats.KeywordsBefore, stats.MinClicks)
}

// Preview returns a copy of rows whose list cells are cut to limit entries,
// followed by an ellipsis line when entries were dropped. A limit <= 0 uses
// DefaultPreviewLimit.
func Preview(rows []domain.OutputRow, limit int) []domain.OutputRow {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}

	out := make([]domain.OutputRow, len(rows))
	for i, r := range rows {
		r.Keywords = truncateList(r.Keywords, limit)
		r.Clicks = truncateList(r.Clicks, limit)
		r.Impressions = truncateList(r.Impressions, limit)
		out[i] = r
	}
	return out
}

func truncateList(cell string, limit int) string {
	if cell == "" {
		return cell
	}
	parts := strings.Split(cell, domain.ListSeparator)
	if len(parts) <= limit {
		return cell
	}
	return strings.Join(parts[:limit], domain.ListSeparator) + domain.ListSeparator + previewEllipsis
}

// Summarizer logs the outcome of consolidation runs
type Summarizer struct {
	logger       *slog.Logger
	previewLimit int
}

// SummarizerConfig holds configuration options for the Summarizer
type SummarizerConfig struct {
	PreviewLimit int
}

// NewSummarizer creates a summarizer; a nil logger uses slog.Default
func NewSummarizer(logger *slog.Logger, config SummarizerConfig) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.PreviewLimit <= 0 {
		config.PreviewLimit = DefaultPreviewLimit
	}
	return &Summarizer{
		logger:       logger.With(slog.String("component", "summarizer")),
		previewLimit: config.PreviewLimit,
	}
}

// PreviewLimit returns the configured preview limit
func (s *Summarizer) PreviewLimit() int {
	return s.previewLimit
}

// Preview truncates rows with the configured limit
func (s *Summarizer) Preview(rows []domain.OutputRow) []domain.OutputRow {
	return Preview(rows, s.previewLimit)
}

// Log records the statistics of a finished run under source
func (s *Summarizer) Log(source string, result *Result) {
	attrs := []any{
		slog.String("source", source),
		slog.String("strategy", string(result.Mapping.Strategy)),
		slog.Int("pages", result.Stats.Pages),
		slog.Int("keywords_before", result.Stats.KeywordsBefore),
		slog.Int("keywords_after", result.Stats.KeywordsAfter),
		slog.Float64("total_clicks", result.Stats.TotalClicks),
		slog.Float64("total_impressions", result.Stats.TotalImpressions),
		slog.Int("min_clicks", result.Stats.MinClicks),
	}
	s.logger.Info("consolidation complete", attrs...)

	if result.CorrectedCells > 0 {
		s.logger.Debug("non-numeric metric cells read as 0",
			slog.String("source", source),
			slog.Int("cells", result.CorrectedCells),
		)
	}
	if summary := FilterSummary(result.Stats); summary != "" {
		s.logger.Info(summary, slog.String("source", source))
	}
}
