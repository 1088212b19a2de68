package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewAppValidationError("min_clicks must be >= 0"),
			expected: "[VALIDATION] min_clicks must be >= 0",
		},
		{
			name:     "with cause",
			err:      NewParsingError("failed to read csv", fmt.Errorf("bare quote")),
			expected: "[PARSING] failed to read csv: bare quote",
		},
		{
			name:     "input shape",
			err:      NewInputShapeError("cannot identify columns", nil),
			expected: "[INPUT_SHAPE] cannot identify columns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := NewStorageError("write failed", sentinel)

	assert.True(t, errors.Is(err, sentinel))

	wrapped := fmt.Errorf("export: %w", err)
	var appErr *AppError
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, ErrTypeStorage, appErr.Type)
}

func TestAppError_WithContext(t *testing.T) {
	err := &AppError{Type: ErrTypeConfig, Message: "bad"}
	err.WithContext("field", "workers").WithContext("value", -1)

	assert.Equal(t, "workers", err.Context["field"])
	assert.Equal(t, -1, err.Context["value"])
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), ""},
		{"direct", NewNetworkError("search console", nil), ErrTypeNetwork},
		{"wrapped", fmt.Errorf("read: %w", NewUnsupportedFormatError(".xls")), ErrTypeUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err))
			if tt.want != "" {
				assert.True(t, IsType(tt.err, tt.want))
			}
		})
	}
}

func TestNewUnsupportedFormatError(t *testing.T) {
	err := NewUnsupportedFormatError(".ods")

	assert.Equal(t, ErrTypeUnsupportedFormat, err.Type)
	assert.Equal(t, ".ods", err.Context["extension"])
	assert.Contains(t, err.Error(), `".ods"`)
}
