package jsondoc_test

import (
	"os"
	"path/filepath"
	"testing"

	"storyshelf/internal/storage/jsondoc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string   `json:"name"`
	Items []string `json:"items,omitempty"`
}

func setupStore(t *testing.T) *jsondoc.Store {
	t.Helper()

	store, err := jsondoc.New(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func TestStore_New(t *testing.T) {
	t.Run("creates data dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "data")

		store, err := jsondoc.New(dir)
		require.NoError(t, err)
		defer store.Close()

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("second open of same dir fails", func(t *testing.T) {
		dir := t.TempDir()

		first, err := jsondoc.New(dir)
		require.NoError(t, err)
		defer first.Close()

		_, err = jsondoc.New(dir)
		assert.Error(t, err)
	})

	t.Run("reopen after close succeeds", func(t *testing.T) {
		dir := t.TempDir()

		first, err := jsondoc.New(dir)
		require.NoError(t, err)
		require.NoError(t, first.Close())

		second, err := jsondoc.New(dir)
		require.NoError(t, err)
		defer second.Close()
	})
}

func TestDocument_ReadWrite(t *testing.T) {
	store := setupStore(t)
	doc := store.Document("test.json")

	t.Run("read missing file returns not exist", func(t *testing.T) {
		var out payload
		err := doc.Read(&out)
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.False(t, doc.Exists())
	})

	t.Run("round trip", func(t *testing.T) {
		in := payload{Name: "morning", Items: []string{"a", "b"}}
		require.NoError(t, doc.Write(in))
		assert.True(t, doc.Exists())

		var out payload
		require.NoError(t, doc.Read(&out))
		assert.Equal(t, in, out)
	})

	t.Run("write replaces whole document", func(t *testing.T) {
		require.NoError(t, doc.Write(payload{Name: "replaced"}))

		var out payload
		require.NoError(t, doc.Read(&out))
		assert.Equal(t, "replaced", out.Name)
		assert.Empty(t, out.Items)
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		require.NoError(t, doc.Write(payload{Name: "again"}))

		entries, err := os.ReadDir(store.Dir())
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp-")
		}
	})
}

func TestDocument_CorruptFile(t *testing.T) {
	store := setupStore(t)
	doc := store.Document("corrupt.json")

	require.NoError(t, os.WriteFile(doc.Path(), []byte("{not json"), 0644))

	var out payload
	err := doc.Read(&out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, os.ErrNotExist)
}
