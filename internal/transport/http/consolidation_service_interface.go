package http

import (
	"context"
	"io"

	"gscconsolidate/internal/datasource/searchconsole"
	"gscconsolidate/internal/services"
	"gscconsolidate/pkg/contracts/domain"
)

// ConsolidationServiceInterface defines the consolidation operations used by
// the HTTP layer
type ConsolidationServiceInterface interface {
	DefaultRequest() services.Request
	ConsolidateUpload(ctx context.Context, name string, r io.Reader, w io.Writer, req services.Request) (*services.Outcome, error)
	PreviewUpload(ctx context.Context, name string, r io.Reader, req services.Request) (*services.Outcome, []domain.OutputRow, error)
	StreamSearchConsole(ctx context.Context, src services.TableSource, q searchconsole.Query, w io.Writer, req services.Request) (*services.Outcome, error)
}
