package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"gscconsolidate/internal/config"
	"gscconsolidate/pkg/contracts"
)

const (
	ServiceName = "gsc-consolidate"
	MeterName   = "gscconsolidate"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
	// TraceWriter receives stdout spans; nil means os.Stdout
	TraceWriter io.Writer
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: contracts.Version,
		Environment:    env,
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  false,
		SampleRatio:    1.0,
	}
}

// OTelConfigFrom maps the telemetry section of the application config
func OTelConfigFrom(cfg config.TelemetryConfig) *OTelConfig {
	out := DefaultOTelConfig()
	if cfg.ServiceName != "" {
		out.ServiceName = cfg.ServiceName
	}
	out.EnableMetrics = cfg.MetricsEnabled
	out.EnableTracing = cfg.TracesEnabled
	return out
}

// InitializeOTel sets up tracing and metrics. Disabled signals fall back to
// the global (no-op by default) providers so callers never check for nil.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}
	if providers.Tracer == nil {
		providers.Tracer = otel.Tracer(MeterName)
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}
	if providers.Meter == nil {
		providers.Meter = otel.Meter(MeterName)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		w := cfg.TraceWriter
		if w == nil {
			w = os.Stdout
		}
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(w))
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.DebugContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics registers the exporter on its own registry so several
// providers can coexist in one process
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		registry := prom.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetMeterProvider(mp)
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.DebugContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Consolidation metrics
	ConsolidationsTotal    metric.Int64Counter
	ConsolidationDuration  metric.Float64Histogram
	ConsolidationErrors    metric.Int64Counter
	ActiveConsolidations   metric.Int64UpDownCounter
	InputRowsProcessed     metric.Int64Counter
	PagesProduced          metric.Int64Counter
	KeywordsFilteredOut    metric.Int64Counter
	CorrectedCells         metric.Int64Counter
	OutputBytesWritten     metric.Int64Counter
	SearchConsoleRowsFetch metric.Int64Counter

	// Progress feed metrics
	FeedClients       metric.Int64UpDownCounter
	FeedEventsSent    metric.Int64Counter
	FeedEventsDropped metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var m BusinessMetrics
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.ConsolidationsTotal, err = meter.Int64Counter(
		"consolidations_total",
		metric.WithDescription("Total number of consolidation runs"),
	); err != nil {
		return nil, err
	}
	if m.ConsolidationDuration, err = meter.Float64Histogram(
		"consolidation_duration_seconds",
		metric.WithDescription("Consolidation run duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.ConsolidationErrors, err = meter.Int64Counter(
		"consolidation_errors_total",
		metric.WithDescription("Total number of failed consolidation runs"),
	); err != nil {
		return nil, err
	}
	if m.ActiveConsolidations, err = meter.Int64UpDownCounter(
		"consolidation_active",
		metric.WithDescription("Number of consolidations in progress"),
	); err != nil {
		return nil, err
	}
	if m.InputRowsProcessed, err = meter.Int64Counter(
		"consolidation_input_rows_total",
		metric.WithDescription("Total number of input rows scanned"),
	); err != nil {
		return nil, err
	}
	if m.PagesProduced, err = meter.Int64Counter(
		"consolidation_pages_total",
		metric.WithDescription("Total number of consolidated page rows produced"),
	); err != nil {
		return nil, err
	}
	if m.KeywordsFilteredOut, err = meter.Int64Counter(
		"consolidation_keywords_filtered_total",
		metric.WithDescription("Total number of keywords dropped by the minimum click filter"),
	); err != nil {
		return nil, err
	}
	if m.CorrectedCells, err = meter.Int64Counter(
		"consolidation_corrected_cells_total",
		metric.WithDescription("Total number of non-numeric metric cells read as zero"),
	); err != nil {
		return nil, err
	}
	if m.OutputBytesWritten, err = meter.Int64Counter(
		"consolidation_output_bytes",
		metric.WithDescription("Total bytes of consolidated output written"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if m.SearchConsoleRowsFetch, err = meter.Int64Counter(
		"searchconsole_rows_fetched_total",
		metric.WithDescription("Total number of rows fetched from the Search Console API"),
	); err != nil {
		return nil, err
	}

	if m.FeedClients, err = meter.Int64UpDownCounter(
		"progress_feed_clients",
		metric.WithDescription("Number of connected progress feed clients"),
	); err != nil {
		return nil, err
	}
	if m.FeedEventsSent, err = meter.Int64Counter(
		"progress_feed_events_sent_total",
		metric.WithDescription("Total number of operation events delivered to feed clients"),
	); err != nil {
		return nil, err
	}
	if m.FeedEventsDropped, err = meter.Int64Counter(
		"progress_feed_events_dropped_total",
		metric.WithDescription("Total number of operation events dropped on full buffers"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// ConsolidationRecord describes one finished consolidation run
type ConsolidationRecord struct {
	Source         string
	Format         string
	Duration       time.Duration
	InputRows      int
	Pages          int
	FilteredOut    int
	CorrectedCells int
	OutputBytes    int64
	Err            error
}

// RecordConsolidation records the metrics of a finished run
func RecordConsolidation(ctx context.Context, metrics *BusinessMetrics, rec ConsolidationRecord) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", rec.Source),
		attribute.String("format", rec.Format),
	}

	metrics.ConsolidationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	status := attribute.String("status", "success")
	if rec.Err != nil {
		status = attribute.String("status", "failure")
		metrics.ConsolidationErrors.Add(ctx, 1, metric.WithAttributes(
			append(attrs, attribute.String("error.type", fmt.Sprintf("%T", rec.Err)))...))
	}
	metrics.ConsolidationDuration.Record(ctx, rec.Duration.Seconds(),
		metric.WithAttributes(append(attrs, status)...))

	if rec.Err != nil {
		return
	}

	metrics.InputRowsProcessed.Add(ctx, int64(rec.InputRows), metric.WithAttributes(attrs...))
	metrics.PagesProduced.Add(ctx, int64(rec.Pages), metric.WithAttributes(attrs...))
	metrics.KeywordsFilteredOut.Add(ctx, int64(rec.FilteredOut), metric.WithAttributes(attrs...))
	metrics.CorrectedCells.Add(ctx, int64(rec.CorrectedCells), metric.WithAttributes(attrs...))
	metrics.OutputBytesWritten.Add(ctx, rec.OutputBytes, metric.WithAttributes(attrs...))
}

// RecordActiveConsolidationChange records changes in the in-progress count
func RecordActiveConsolidationChange(ctx context.Context, metrics *BusinessMetrics, delta int64) {
	if metrics == nil {
		return
	}
	metrics.ActiveConsolidations.Add(ctx, delta)
}

// RecordHTTPRequest records one served request
func RecordHTTPRequest(ctx context.Context, metrics *BusinessMetrics, method, route string, status int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	metrics.HTTPRequestsTotal.Add(ctx, 1, attrs)
	metrics.HTTPRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSearchConsoleFetch records rows pulled from the Search Console API
func RecordSearchConsoleFetch(ctx context.Context, metrics *BusinessMetrics, site string, rows int) {
	if metrics == nil {
		return
	}
	metrics.SearchConsoleRowsFetch.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("site", site)))
}

// RecordFeedClientChange records a progress feed client connecting or leaving
func RecordFeedClientChange(ctx context.Context, metrics *BusinessMetrics, delta int64) {
	if metrics == nil {
		return
	}
	metrics.FeedClients.Add(ctx, delta)
}

// RecordFeedDelivery records the fan-out of one event
func RecordFeedDelivery(ctx context.Context, metrics *BusinessMetrics, eventType string, sent, dropped int) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("event.type", eventType))
	if sent > 0 {
		metrics.FeedEventsSent.Add(ctx, int64(sent), attrs)
	}
	if dropped > 0 {
		metrics.FeedEventsDropped.Add(ctx, int64(dropped), attrs)
	}
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.DebugContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts the OpenTelemetry trace ID from context
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// AddSpanEvent adds an event to the current span with structured attributes
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(toAttributes(attributes)...)
}

func toAttributes(attributes map[string]interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
	return attrs
}
