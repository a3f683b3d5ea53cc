package examination

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueName(t *testing.T) {
	taken := map[string]bool{"scan.pdf": true, "scan_1.pdf": true}
	name, err := uniqueName("scan.pdf", func(n string) (bool, error) { return taken[n], nil })
	require.NoError(t, err)
	assert.Equal(t, "scan_2.pdf", name)

	name, err = uniqueName("../../etc/passwd", func(string) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.Equal(t, "passwd", name)

	name, err = uniqueName("", func(string) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.Equal(t, "file", name)

	_, err = uniqueName("x", func(string) (bool, error) { return false, errors.New("boom") })
	assert.Error(t, err)
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	first, err := store.Save(ctx, "mri.pdf", []byte("one"))
	require.NoError(t, err)
	second, err := store.Save(ctx, "mri.pdf", []byte("two"))
	require.NoError(t, err)
	third, err := store.Save(ctx, "mri.pdf", []byte("three"))
	require.NoError(t, err)
	assert.Equal(t, []string{"mri.pdf", "mri_1.pdf", "mri_2.pdf"}, []string{first, second, third})

	data, err := store.Load(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	require.NoError(t, store.Remove(ctx, second))
	_, err = os.Stat(filepath.Join(dir, second))
	assert.True(t, os.IsNotExist(err))

	_, err = store.Load(ctx, second)
	assert.ErrorIs(t, err, ErrFileMissing)
	assert.NoError(t, store.Remove(ctx, second))

	// freed name is reused
	again, err := store.Save(ctx, "mri.pdf", []byte("four"))
	require.NoError(t, err)
	assert.Equal(t, "mri_1.pdf", again)
}
