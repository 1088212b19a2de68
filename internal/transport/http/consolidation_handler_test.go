package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gscconsolidate/internal/config"
	"gscconsolidate/internal/datasource/searchconsole"
	apierrors "gscconsolidate/internal/errors"
	"gscconsolidate/internal/services"
	"gscconsolidate/internal/shared/testutil"
	api "gscconsolidate/pkg/contracts/api/v1"
	"gscconsolidate/pkg/contracts/domain"
)

const sampleCSV = "Page,Requête,Clics,Impressions\n" +
	"/a,kw1,5,50\n" +
	"/a,kw2,10,80\n" +
	"/b,kw3,1,7\n" +
	"/a,kw1,2,20\n"

type MockTableSource struct {
	mock.Mock
}

func (m *MockTableSource) FetchTable(ctx context.Context, q searchconsole.Query) (domain.Table, error) {
	args := m.Called(q)
	return args.Get(0).(domain.Table), args.Error(1)
}

func newTestRouter(t *testing.T, source services.TableSource, maxUpload int64) chi.Router {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)

	svc := services.NewConsolidationService(config.Default().Consolidation, nil, nil, logger)
	errorHandler := apierrors.NewErrorHandler(logger, false)
	handler := NewConsolidationHandler(svc, source, nil, errorHandler, maxUpload, logger)

	r := chi.NewRouter()
	r.Mount(config.ConsolidateEndpoint, handler.Routes())
	return r
}

type formField struct {
	name, value string
}

func multipartBody(t *testing.T, filename string, content []byte, fields ...formField) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for _, f := range fields {
		require.NoError(t, mw.WriteField(f.name, f.value))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem), rec.Body.String())
	return problem
}

func TestConsolidationHandler_Consolidate(t *testing.T) {
	router := newTestRouter(t, nil, 1<<20)

	body, contentType := multipartBody(t, "export.csv", []byte(sampleCSV),
		formField{"min_clicks", "5"}, formField{"format", "csv"})
	req := httptest.NewRequest(http.MethodPost, config.ConsolidateEndpoint, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "export_consolide.csv", params["filename"])

	assert.Equal(t, "2", rec.Header().Get(HeaderPages))
	assert.Equal(t, "3", rec.Header().Get(HeaderKeywordsBefore))
	assert.Equal(t, "2", rec.Header().Get(HeaderKeywordsAfter))
	assert.Equal(t, "18", rec.Header().Get(HeaderTotalClicks))
	assert.Equal(t, "157", rec.Header().Get(HeaderTotalImpressions))
	assert.Equal(t, "5", rec.Header().Get(HeaderMinClicks))
	assert.Equal(t, "keyword", rec.Header().Get(HeaderStrategy))
	assert.NotEmpty(t, rec.Header().Get(HeaderOperationID))

	data := rec.Body.Bytes()
	require.True(t, bytes.HasPrefix(data, []byte("\xEF\xBB\xBF")))
	records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"/a", "kw2\nkw1", "2", "10\n7", "17", "80\n70", "150"}, records[1])
}

func TestConsolidationHandler_DefaultsToWorkbook(t *testing.T) {
	router := newTestRouter(t, nil, 1<<20)

	body, contentType := multipartBody(t, "export.csv", []byte(sampleCSV), formField{"min_clicks", "3"})
	req := httptest.NewRequest(http.MethodPost, config.ConsolidateEndpoint, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, domain.OutputFormatExcel.ContentType(), rec.Header().Get("Content-Type"))
	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "export_consolide_min3clics.xlsx", params["filename"])
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestConsolidationHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		content    []byte
		fields     []formField
		maxUpload  int64
		wantStatus int
	}{
		{
			name:       "columns not identified",
			filename:   "narrow.csv",
			content:    []byte("Foo,Bar\n1,2\n"),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unsupported extension",
			filename:   "export.pdf",
			content:    []byte("%PDF"),
			wantStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:       "negative threshold",
			filename:   "export.csv",
			content:    []byte(sampleCSV),
			fields:     []formField{{"min_clicks", "-2"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non-numeric threshold",
			filename:   "export.csv",
			content:    []byte(sampleCSV),
			fields:     []formField{{"min_clicks", "many"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown format",
			filename:   "export.csv",
			content:    []byte(sampleCSV),
			fields:     []formField{{"format", "ods"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing file",
			fields:     []formField{{"min_clicks", "1"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "upload too large",
			filename:   "export.csv",
			content:    bytes.Repeat([]byte("/a,kw,1,1\n"), 20000),
			maxUpload:  1024,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maxUpload := tt.maxUpload
			if maxUpload == 0 {
				maxUpload = 1 << 20
			}
			router := newTestRouter(t, nil, maxUpload)

			body, contentType := multipartBody(t, tt.filename, tt.content, tt.fields...)
			req := httptest.NewRequest(http.MethodPost, config.ConsolidateEndpoint, body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Empty(t, rec.Header().Get("Content-Disposition"))

			problem := decodeProblem(t, rec)
			assert.Equal(t, float64(tt.wantStatus), problem["status"])
		})
	}
}

func TestConsolidationHandler_RejectsWrongContentType(t *testing.T) {
	router := newTestRouter(t, nil, 1<<20)

	req := httptest.NewRequest(http.MethodPost, config.ConsolidateEndpoint, strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestConsolidationHandler_Preview(t *testing.T) {
	router := newTestRouter(t, nil, 1<<20)

	body, contentType := multipartBody(t, "export.csv", []byte(sampleCSV), formField{"min_clicks", "5"})
	req := httptest.NewRequest(http.MethodPost, config.PreviewEndpoint, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.PreviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "export.csv", resp.Source)
	assert.Equal(t, "keyword", resp.Strategy)
	assert.Equal(t, domain.OutputColumns, resp.Columns)
	assert.Equal(t, "export_consolide_min5clics.xlsx", resp.OutputName)
	assert.Equal(t, 2, resp.Stats.Pages)
	assert.Equal(t, "2 keywords kept out of 3 (threshold: 5 clicks minimum)", resp.FilterSummary)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, []string{"/a", "kw2\nkw1", "2", "10\n7", "17", "80\n70", "150"}, resp.Rows[0])
}

func TestConsolidationHandler_SearchConsole(t *testing.T) {
	q := searchconsole.Query{SiteURL: "https://example.com/", StartDate: "2024-01-01", EndDate: "2024-01-31"}
	table := domain.Table{
		Headers: searchconsole.Headers,
		Rows:    [][]string{{"/a", "kw", "3", "12"}},
	}

	post := func(t *testing.T, router chi.Router, payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, config.SearchConsoleEndpoint, strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("streams consolidated rows", func(t *testing.T) {
		src := new(MockTableSource)
		src.On("FetchTable", q).Return(table, nil).Once()
		router := newTestRouter(t, src, 1<<20)

		rec := post(t, router, `{"site_url":"https://example.com/","start_date":"2024-01-01","end_date":"2024-01-31","format":"csv"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		src.AssertExpectations(t)

		assert.Equal(t, "1", rec.Header().Get(HeaderPages))
		assert.Contains(t, rec.Body.String(), "/a,kw,1,3,3,12,12")
	})

	t.Run("invalid dates", func(t *testing.T) {
		src := new(MockTableSource)
		router := newTestRouter(t, src, 1<<20)

		rec := post(t, router, `{"site_url":"https://example.com/","start_date":"01/01/2024","end_date":"2024-01-31"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		src.AssertNotCalled(t, "FetchTable", mock.Anything)
	})

	t.Run("upstream failure", func(t *testing.T) {
		src := new(MockTableSource)
		src.On("FetchTable", q).Return(domain.Table{}, apierrors.NewNetworkError("search analytics query failed", errors.New("403"))).Once()
		router := newTestRouter(t, src, 1<<20)

		rec := post(t, router, `{"site_url":"https://example.com/","start_date":"2024-01-01","end_date":"2024-01-31"}`)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("not configured", func(t *testing.T) {
		router := newTestRouter(t, nil, 1<<20)

		rec := post(t, router, `{}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		router := newTestRouter(t, new(MockTableSource), 1<<20)

		rec := post(t, router, `{"site_url":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
