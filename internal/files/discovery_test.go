package files

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gscconsolidate/internal/errors"
	"gscconsolidate/internal/shared/testutil"
)

func TestDiscovery_FindInputs(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "b.csv", []byte("x"))
	testutil.WriteFile(t, dir, "a.xlsx", []byte("x"))
	testutil.WriteFile(t, dir, "a_consolide.xlsx", []byte("x"))
	testutil.WriteFile(t, dir, "legacy.xls", []byte("x"))
	testutil.WriteFile(t, dir, "~$a.xlsx", []byte("x"))
	testutil.WriteFile(t, dir, "notes.txt", []byte("x"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	testutil.WriteFile(t, filepath.Join(dir, "sub"), "deep.csv", []byte("x"))

	d := NewDiscovery(dir)

	t.Run("directory scan", func(t *testing.T) {
		found, err := d.FindInputs([]string{"."})
		require.NoError(t, err)

		var names []string
		for _, f := range found {
			names = append(names, f.Name)
		}
		assert.Equal(t, []string{"a.xlsx", "b.csv"}, names)
		assert.Equal(t, InputXLSX, found[0].Format)
	})

	t.Run("explicit file plus directory deduplicates", func(t *testing.T) {
		found, err := d.FindInputs([]string{"b.csv", dir, " "})
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("explicit unsupported file", func(t *testing.T) {
		_, err := d.FindInputs([]string{"legacy.xls"})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeUnsupportedFormat))
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := d.FindInputs([]string{"nope.csv"})
		require.Error(t, err)
	})
}

func TestManager_WriteAtomic(t *testing.T) {
	dir := t.TempDir()
	logger, logs := testutil.NewTestLogger(t)
	m := NewManager(logger)

	target := filepath.Join(dir, "out", "perf_consolide.csv")

	err := m.WriteAtomic(target, func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.True(t, logs.ContainsMessage("output written"))
}

func TestManager_WriteAtomic_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(nil)
	target := filepath.Join(dir, "perf_consolide.xlsx")

	boom := errors.New("boom")
	err := m.WriteAtomic(target, func(w io.Writer) error {
		_, _ = io.Copy(w, bytes.NewReader([]byte("partial")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.NoFileExists(t, target)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
