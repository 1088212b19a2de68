package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gscconsolidate/internal/config"
	"gscconsolidate/internal/dataprocessing"
	"gscconsolidate/internal/datasource/searchconsole"
	"gscconsolidate/internal/exporter"
	"gscconsolidate/internal/files"
	"gscconsolidate/internal/infrastructure"
	"gscconsolidate/internal/operations"
	"gscconsolidate/internal/validation"
	"gscconsolidate/pkg/contracts/domain"
)

// TableSource fetches a raw export from a remote API
type TableSource interface {
	FetchTable(ctx context.Context, q searchconsole.Query) (domain.Table, error)
}

// Request carries the per-run options of a consolidation
type Request struct {
	MinClicks int
	// Format defaults to the configured output format
	Format domain.OutputFormat
	// OnProgress is optional
	OnProgress func(operations.ProgressUpdate)
}

// Outcome describes a finished consolidation
type Outcome struct {
	OperationID string
	Source      string
	Result      *dataprocessing.Result
	Format      domain.OutputFormat
	OutputName  string
	// OutputPath is empty when the output was streamed
	OutputPath string
	Bytes      int64
	Duration   time.Duration
}

// ConsolidationService runs the read, consolidate and write pipeline for
// files, uploads and Search Console queries
type ConsolidationService struct {
	cfg        config.ConsolidationConfig
	manager    *files.Manager
	validator  *validation.FileValidator
	summarizer *dataprocessing.Summarizer
	metrics    *infrastructure.BusinessMetrics
	tracer     trace.Tracer
	publisher  operations.Publisher
	logger     *slog.Logger
}

// NewConsolidationService creates the service. Nil metrics disable recording
// and a nil tracer uses the global provider.
func NewConsolidationService(cfg config.ConsolidationConfig, metrics *infrastructure.BusinessMetrics, tracer trace.Tracer, logger *slog.Logger) *ConsolidationService {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.ServiceName)
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = config.DefaultOutputFormat
	}

	logger = infrastructure.WithComponent(logger, "consolidation_service")
	logger.Info("ConsolidationService initialized",
		slog.String("output_format", cfg.OutputFormat),
		slog.Int("min_clicks", cfg.MinClicks),
		slog.Int("preview_limit", cfg.PreviewLimit))

	return &ConsolidationService{
		cfg:        cfg,
		manager:    files.NewManager(logger),
		validator:  validation.NewFileValidator(logger),
		summarizer: dataprocessing.NewSummarizer(logger, dataprocessing.SummarizerConfig{PreviewLimit: cfg.PreviewLimit}),
		metrics:    metrics,
		tracer:     tracer,
		logger:     logger,
	}
}

// SetPublisher sends the lifecycle events of every run to p. Nil disables
// publishing.
func (s *ConsolidationService) SetPublisher(p operations.Publisher) {
	s.publisher = p
}

func (s *ConsolidationService) publish(e operations.Event) {
	if s.publisher != nil {
		s.publisher.Publish(e)
	}
}

// DefaultRequest returns a request using the configured threshold and format
func (s *ConsolidationService) DefaultRequest() Request {
	return Request{
		MinClicks: s.cfg.MinClicks,
		Format:    domain.OutputFormat(s.cfg.OutputFormat),
	}
}

// Summarizer returns the summarizer used for logging and previews
func (s *ConsolidationService) Summarizer() *dataprocessing.Summarizer {
	return s.summarizer
}

// ConsolidateFile reads inputPath, consolidates it and writes the result
// atomically into outDir, or next to the input when outDir is empty
func (s *ConsolidationService) ConsolidateFile(ctx context.Context, inputPath, outDir string, req Request) (*Outcome, error) {
	load := func(context.Context) (domain.Table, error) {
		if _, err := s.validator.ValidateInputFile(inputPath); err != nil {
			return domain.Table{}, err
		}
		return files.ReadTable(inputPath)
	}

	var outPath string
	outcome, err := s.run(ctx, inputPath, req, load, s.fileWriter(inputPath, outDir, &outPath))
	if err != nil {
		return nil, err
	}
	outcome.OutputPath = outPath
	return outcome, nil
}

// ConsolidateUpload consolidates an uploaded export and streams the result to w
func (s *ConsolidationService) ConsolidateUpload(ctx context.Context, name string, r io.Reader, w io.Writer, req Request) (*Outcome, error) {
	load := func(context.Context) (domain.Table, error) {
		if err := s.validator.ValidateUploadName(name); err != nil {
			return domain.Table{}, err
		}
		return files.ReadUpload(name, r)
	}
	return s.run(ctx, name, req, load, streamWriter(name, w))
}

// ConsolidateSearchConsole pulls rows for q from src and writes the
// consolidated table into outDir
func (s *ConsolidationService) ConsolidateSearchConsole(ctx context.Context, src TableSource, q searchconsole.Query, outDir string, req Request) (*Outcome, error) {
	source := searchConsoleSourceName(q)

	var outPath string
	outcome, err := s.run(ctx, source, req, s.searchConsoleLoader(src, q), s.fileWriter(source, outDir, &outPath))
	if err != nil {
		return nil, err
	}
	outcome.OutputPath = outPath
	return outcome, nil
}

// StreamSearchConsole pulls rows for q from src and streams the consolidated
// table to w
func (s *ConsolidationService) StreamSearchConsole(ctx context.Context, src TableSource, q searchconsole.Query, w io.Writer, req Request) (*Outcome, error) {
	source := searchConsoleSourceName(q)
	return s.run(ctx, source, req, s.searchConsoleLoader(src, q), streamWriter(source, w))
}

func (s *ConsolidationService) searchConsoleLoader(src TableSource, q searchconsole.Query) loadFunc {
	return func(ctx context.Context) (domain.Table, error) {
		ctx, span := s.tracer.Start(ctx, "searchconsole.fetch",
			trace.WithAttributes(
				attribute.String("site", q.SiteURL),
				attribute.String("start_date", q.StartDate),
				attribute.String("end_date", q.EndDate),
			))
		defer span.End()

		table, err := src.FetchTable(ctx, q)
		if err != nil {
			infrastructure.RecordError(ctx, err)
			return domain.Table{}, err
		}
		infrastructure.RecordSearchConsoleFetch(ctx, s.metrics, q.SiteURL, len(table.Rows))
		return table, nil
	}
}

// PreviewUpload consolidates an upload without producing a file and returns
// the result with list cells cut to the preview limit
func (s *ConsolidationService) PreviewUpload(ctx context.Context, name string, r io.Reader, req Request) (*Outcome, []domain.OutputRow, error) {
	if err := s.validator.ValidateUploadName(name); err != nil {
		return nil, nil, err
	}
	format, err := s.resolveFormat(req.Format)
	if err != nil {
		return nil, nil, err
	}

	ctx, span := s.tracer.Start(ctx, "consolidation.preview", trace.WithAttributes(attribute.String("source", name)))
	defer span.End()

	start := time.Now()
	table, err := files.ReadUpload(name, r)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, nil, err
	}
	result, err := s.consolidate(ctx, name, table, req)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, nil, err
	}

	outcome := &Outcome{
		Source:     name,
		Result:     result,
		Format:     format,
		OutputName: files.OutputName(name, format, req.MinClicks),
		Duration:   time.Since(start),
	}
	return outcome, s.summarizer.Preview(result.Rows), nil
}

// fileWriter writes atomically to the output path derived from input and
// stores that path in dst
func (s *ConsolidationService) fileWriter(input, outDir string, dst *string) writeFunc {
	return func(w exporter.Writer, rows []domain.OutputRow, format domain.OutputFormat, minClicks int) (string, int64, error) {
		path := files.OutputPath(input, outDir, format, minClicks)
		*dst = path
		var written int64
		err := s.manager.WriteAtomic(path, func(out io.Writer) error {
			cw := &countingWriter{w: out}
			err := w.WriteConsolidated(cw, rows)
			written = cw.n
			return err
		})
		return filepath.Base(path), written, err
	}
}

// streamWriter writes to w and names the output after input
func streamWriter(input string, w io.Writer) writeFunc {
	return func(ew exporter.Writer, rows []domain.OutputRow, format domain.OutputFormat, minClicks int) (string, int64, error) {
		cw := &countingWriter{w: w}
		err := ew.WriteConsolidated(cw, rows)
		return files.OutputName(input, format, minClicks), cw.n, err
	}
}

type loadFunc func(ctx context.Context) (domain.Table, error)

type writeFunc func(w exporter.Writer, rows []domain.OutputRow, format domain.OutputFormat, minClicks int) (name string, bytes int64, err error)

// run wraps one consolidation in an operation state, a span and metrics.
// Nothing is written when loading or consolidating fails.
func (s *ConsolidationService) run(ctx context.Context, source string, req Request, load loadFunc, write writeFunc) (outcome *Outcome, err error) {
	op := operations.NewOperationState(source)
	op.Start()
	s.publish(operations.NewEvent(operations.EventStarted, op))

	if s.publisher != nil {
		onProgress := req.OnProgress
		req.OnProgress = func(u operations.ProgressUpdate) {
			e := operations.NewEvent(operations.EventProgress, op)
			e.Progress = &u
			s.publish(e)
			if onProgress != nil {
				onProgress(u)
			}
		}
	}

	ctx, span := s.tracer.Start(ctx, "consolidation.run",
		trace.WithAttributes(
			attribute.String("operation.id", op.ID),
			attribute.String("source", source),
			attribute.Int("min_clicks", req.MinClicks),
		))
	defer span.End()

	infrastructure.RecordActiveConsolidationChange(ctx, s.metrics, 1)
	defer infrastructure.RecordActiveConsolidationChange(ctx, s.metrics, -1)

	rec := infrastructure.ConsolidationRecord{Source: sourceKind(source)}
	defer func() {
		rec.Duration = op.Duration()
		rec.Err = err
		infrastructure.RecordConsolidation(ctx, s.metrics, rec)
		if err == nil {
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			op.Cancel()
		} else {
			op.Fail(err)
		}
		failed := operations.NewEvent(operations.EventFailed, op)
		failed.Error = err.Error()
		s.publish(failed)
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "consolidation failed",
			slog.String("operation_id", op.ID),
			slog.String("status", string(op.GetStatus())),
			slog.String("source", source),
			slog.String("otel_trace_id", infrastructure.TraceIDFromContext(ctx)),
			slog.String("error", err.Error()))
	}()

	format, err := s.resolveFormat(req.Format)
	if err != nil {
		return nil, err
	}
	rec.Format = string(format)
	w, err := exporter.ForFormat(format)
	if err != nil {
		return nil, err
	}

	table, err := load(ctx)
	if err != nil {
		return nil, err
	}
	rec.InputRows = len(table.Rows)

	result, err := s.consolidate(ctx, source, table, req)
	if err != nil {
		return nil, err
	}
	rec.Pages = result.Stats.Pages
	rec.FilteredOut = result.Stats.KeywordsBefore - result.Stats.KeywordsAfter
	rec.CorrectedCells = result.CorrectedCells

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("consolidation of %s cancelled: %w", source, err)
	}

	name, written, err := write(w, result.Rows, format, req.MinClicks)
	if err != nil {
		return nil, err
	}
	rec.OutputBytes = written
	op.Complete(name)

	done := operations.NewEvent(operations.EventComplete, op)
	done.Stats = &result.Stats
	s.publish(done)

	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"output.name":  name,
		"output.bytes": written,
		"pages":        result.Stats.Pages,
	})

	return &Outcome{
		OperationID: op.ID,
		Source:      source,
		Result:      result,
		Format:      format,
		OutputName:  name,
		Bytes:       written,
		Duration:    op.Duration(),
	}, nil
}

func (s *ConsolidationService) consolidate(ctx context.Context, source string, table domain.Table, req Request) (*dataprocessing.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("consolidation of %s cancelled: %w", source, err)
	}

	tracker := operations.NewProgressTracker(source, s.logger)
	if req.OnProgress != nil {
		tracker.OnUpdate(req.OnProgress)
	}

	result, err := dataprocessing.Consolidate(table, dataprocessing.Options{
		MinClicks: req.MinClicks,
		Progress:  tracker,
	})
	if err != nil {
		return nil, err
	}

	infrastructure.AddSpanEvent(ctx, "consolidated", map[string]interface{}{
		"strategy":        string(result.Mapping.Strategy),
		"input_rows":      len(table.Rows),
		"keywords_before": result.Stats.KeywordsBefore,
		"keywords_after":  result.Stats.KeywordsAfter,
	})
	s.summarizer.Log(source, result)
	return result, nil
}

func (s *ConsolidationService) resolveFormat(format domain.OutputFormat) (domain.OutputFormat, error) {
	if format == "" {
		format = domain.OutputFormat(s.cfg.OutputFormat)
	}
	if _, err := exporter.ForFormat(format); err != nil {
		return "", err
	}
	return format, nil
}

const searchConsolePrefix = "searchconsole_"

// searchConsoleSourceName builds a dot-free file stem for a query
func searchConsoleSourceName(q searchconsole.Query) string {
	return fmt.Sprintf("%s%s_%s_%s", searchConsolePrefix, sanitizeSite(q.SiteURL), q.StartDate, q.EndDate)
}

func sanitizeSite(site string) string {
	out := make([]rune, 0, len(site))
	for _, r := range site {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			out = append(out, r)
		case r == '.':
			out = append(out, '-')
		default:
			if len(out) > 0 && out[len(out)-1] != '_' {
				out = append(out, '_')
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '_' {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return "site"
	}
	return string(out)
}

// sourceKind keeps metric label cardinality bounded
func sourceKind(source string) string {
	if strings.HasPrefix(source, searchConsolePrefix) {
		return "searchconsole"
	}
	if format, err := files.DetectFormat(source); err == nil {
		return string(format)
	}
	return "unknown"
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
