package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBlobStore(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewLocalBlobStore(filepath.Join(tmpDir, "exports"))
	require.NoError(t, err)
	ctx := context.Background()

	key := "payroll/2024-03.csv"
	require.NoError(t, store.Put(ctx, key, strings.NewReader("period,amount\n")))
	assert.FileExists(t, filepath.Join(tmpDir, "exports", "payroll", "2024-03.csv"))

	reader, err := store.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, reader.Close())
	require.NoError(t, err)
	assert.Equal(t, "period,amount\n", string(data))

	// Overwrite replaces content.
	require.NoError(t, store.Put(ctx, key, strings.NewReader("v2")))
	reader, err = store.Get(ctx, key)
	require.NoError(t, err)
	data, _ = io.ReadAll(reader)
	reader.Close()
	assert.Equal(t, "v2", string(data))

	require.NoError(t, store.Put(ctx, "payroll/2024-02.json", strings.NewReader("{}")))
	require.NoError(t, store.Put(ctx, "orgchart/2024-03.csv", strings.NewReader("x")))

	keys, err := store.List(ctx, "payroll")
	require.NoError(t, err)
	assert.Equal(t, []string{"payroll/2024-02.json", "payroll/2024-03.csv"}, keys)

	keys, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, keys, 3)

	keys, err = store.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, key), ErrNotFound)

	_, err = store.Get(ctx, "payroll/2024-02.json")
	assert.NoError(t, err)
}

func TestLocalBlobStore_NoTempFilesLeftBehind(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewLocalBlobStore(tmpDir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = store.Put(ctx, "payroll/2024-03.csv", strings.NewReader("data"))
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(tmpDir, "payroll"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidateKey(t *testing.T) {
	valid := []string{"payroll/2024-03.csv", "a", "a/b/c.json"}
	for _, k := range valid {
		assert.NoError(t, ValidateKey(k), k)
	}

	invalid := []string{"", "/etc/passwd", "../x", "a/../../x", "a//b", "a/./b", ".hidden", "a/.tmp-1", `a\b`, "."}
	for _, k := range invalid {
		assert.ErrorIs(t, ValidateKey(k), ErrInvalidKey, k)
	}
}
