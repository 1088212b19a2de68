package http

import (
	"bytes"
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"gscconsolidate/internal/dataprocessing"
	"gscconsolidate/internal/datasource/searchconsole"
	apierrors "gscconsolidate/internal/errors"
	"gscconsolidate/internal/middleware"
	"gscconsolidate/internal/services"
	api "gscconsolidate/pkg/contracts/api/v1"
	"gscconsolidate/pkg/contracts/domain"
)

// multipartMemory is the part of an upload kept in memory before spilling to disk
const multipartMemory = 8 << 20

// Response headers carrying run statistics on downloads
const (
	HeaderOperationID      = "X-Consolidation-Operation-Id"
	HeaderPages            = "X-Consolidation-Pages"
	HeaderKeywordsBefore   = "X-Consolidation-Keywords-Before"
	HeaderKeywordsAfter    = "X-Consolidation-Keywords-After"
	HeaderTotalClicks      = "X-Consolidation-Total-Clicks"
	HeaderTotalImpressions = "X-Consolidation-Total-Impressions"
	HeaderMinClicks        = "X-Consolidation-Min-Clicks"
	HeaderStrategy         = "X-Consolidation-Strategy"
)

// ConsolidationHandler handles upload, preview and Search Console requests
type ConsolidationHandler struct {
	service        ConsolidationServiceInterface
	source         services.TableSource
	validator      *middleware.ValidationMiddleware
	errorHandler   *apierrors.ErrorHandler
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewConsolidationHandler creates a new consolidation handler. source may be
// nil when no Search Console credentials are configured.
func NewConsolidationHandler(
	service ConsolidationServiceInterface,
	source services.TableSource,
	validator *middleware.ValidationMiddleware,
	errorHandler *apierrors.ErrorHandler,
	maxUploadBytes int64,
	logger *slog.Logger,
) *ConsolidationHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	if validator == nil {
		validator = middleware.NewValidationMiddleware(logger, errorHandler)
	}

	return &ConsolidationHandler{
		service:        service,
		source:         source,
		validator:      validator,
		errorHandler:   errorHandler,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("handler", "consolidation")),
	}
}

// Routes returns the consolidation routes, mounted under /api/v1/consolidate
func (h *ConsolidationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(h.validator.ContentTypeValidator("multipart/form-data")).Post("/", h.Consolidate)
	r.With(h.validator.ContentTypeValidator("multipart/form-data")).Post("/preview", h.Preview)
	r.With(h.validator.ContentTypeValidator("application/json")).Post("/searchconsole", h.SearchConsole)
	return r
}

// Consolidate handles POST /api/v1/consolidate
func (h *ConsolidationHandler) Consolidate(w http.ResponseWriter, r *http.Request) {
	file, req, err := h.parseUpload(w, r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer file.Close()

	// Buffer the output so failures still produce a problem document
	var buf bytes.Buffer
	outcome, err := h.service.ConsolidateUpload(r.Context(), req.Filename, file, &buf, h.serviceRequest(req.MinClicks, req.Format))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeAttachment(w, r, outcome, &buf)
}

// Preview handles POST /api/v1/consolidate/preview
func (h *ConsolidationHandler) Preview(w http.ResponseWriter, r *http.Request) {
	file, req, err := h.parseUpload(w, r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer file.Close()

	outcome, rows, err := h.service.PreviewUpload(r.Context(), req.Filename, file, h.serviceRequest(req.MinClicks, req.Format))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, api.PreviewResponse{
		Source:        outcome.Source,
		Strategy:      string(outcome.Result.Mapping.Strategy),
		Stats:         api.NewStatsResponse(outcome.Result.Stats),
		FilterSummary: dataprocessing.FilterSummary(outcome.Result.Stats),
		Columns:       domain.OutputColumns,
		Rows:          dataprocessing.Records(rows),
		OutputName:    outcome.OutputName,
	})
}

// SearchConsole handles POST /api/v1/consolidate/searchconsole
func (h *ConsolidationHandler) SearchConsole(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusServiceUnavailable,
			"SEARCH_CONSOLE_DISABLED",
			"Search Console access is not configured",
			"set search_console.credentials_file to enable this endpoint",
		))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req api.SearchConsoleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	q := searchconsole.Query{SiteURL: req.SiteURL, StartDate: req.StartDate, EndDate: req.EndDate}
	var buf bytes.Buffer
	outcome, err := h.service.StreamSearchConsole(r.Context(), h.source, q, &buf, h.serviceRequest(req.MinClicks, req.Format))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeAttachment(w, r, outcome, &buf)
}

// parseUpload reads the multipart form and validates its fields
func (h *ConsolidationHandler) parseUpload(w http.ResponseWriter, r *http.Request) (multipart.File, api.ConsolidateRequest, error) {
	var req api.ConsolidateRequest

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, req, err
		}
		return nil, req, apierrors.InvalidRequestWithError(err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, req, apierrors.ErrMissingFile
		}
		return nil, req, apierrors.InvalidRequestWithError(err)
	}

	defaults := h.service.DefaultRequest()
	req.Filename = header.Filename
	req.MinClicks = defaults.MinClicks
	req.Format = string(defaults.Format)

	if v := strings.TrimSpace(r.FormValue("min_clicks")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			file.Close()
			return nil, req, apierrors.ErrValidation("min_clicks", "min_clicks must be an integer")
		}
		req.MinClicks = n
	}
	if v := strings.ToLower(strings.TrimSpace(r.FormValue("format"))); v != "" {
		req.Format = v
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		file.Close()
		return nil, req, err
	}

	h.logger.DebugContext(r.Context(), "upload received",
		slog.String("file", req.Filename),
		slog.Int64("size", header.Size),
		slog.Int("min_clicks", req.MinClicks),
		slog.String("format", req.Format))
	return file, req, nil
}

func (h *ConsolidationHandler) serviceRequest(minClicks int, format string) services.Request {
	req := h.service.DefaultRequest()
	req.MinClicks = minClicks
	if format != "" {
		req.Format = domain.OutputFormat(format)
	}
	return req
}

func (h *ConsolidationHandler) writeAttachment(w http.ResponseWriter, r *http.Request, outcome *services.Outcome, body *bytes.Buffer) {
	stats := outcome.Result.Stats
	header := w.Header()
	header.Set(HeaderOperationID, outcome.OperationID)
	header.Set(HeaderPages, strconv.Itoa(stats.Pages))
	header.Set(HeaderKeywordsBefore, strconv.Itoa(stats.KeywordsBefore))
	header.Set(HeaderKeywordsAfter, strconv.Itoa(stats.KeywordsAfter))
	header.Set(HeaderTotalClicks, dataprocessing.FormatNumber(stats.TotalClicks))
	header.Set(HeaderTotalImpressions, dataprocessing.FormatNumber(stats.TotalImpressions))
	header.Set(HeaderMinClicks, strconv.Itoa(stats.MinClicks))
	header.Set(HeaderStrategy, string(outcome.Result.Mapping.Strategy))

	header.Set("Content-Type", outcome.Format.ContentType())
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": outcome.OutputName}))
	header.Set("Content-Length", strconv.Itoa(body.Len()))
	w.WriteHeader(http.StatusOK)

	if _, err := body.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "failed to send consolidated output",
			slog.String("file", outcome.OutputName),
			slog.String("error", err.Error()))
	}
}
