// Package http implements the HTTP handlers of the consolidation service.
// Handlers stay thin: they parse and validate requests, call the service
// layer and format responses.
//
// # Endpoints
//
//	POST /api/v1/consolidate                multipart upload, returns the file
//	POST /api/v1/consolidate/preview        multipart upload, returns JSON
//	POST /api/v1/consolidate/searchconsole  JSON query, returns the file
//	GET  /api/health                        liveness
//	GET  /api/health/ready                  readiness
//	GET  /api/version                       build information
//	GET  /metrics                           Prometheus scrape endpoint
//
// Downloads carry the run statistics in X-Consolidation-* headers and the
// derived file name in Content-Disposition.
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details and are rendered by
// errors.ErrorHandler:
//
//	{
//	    "type": "/errors/input-shape",
//	    "title": "Columns Not Identified",
//	    "status": 422,
//	    "detail": "cannot identify page, query, clicks and impressions columns",
//	    "instance": "/api/v1/consolidate"
//	}
//
// # Testing
//
// Handlers are tested with httptest against the real services and temporary
// files; remote sources are mocked with testify.
package http
