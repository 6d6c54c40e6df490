package repository_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"storyshelf/internal/domain/models"
	"storyshelf/internal/repository"
	"storyshelf/internal/storage"
	"storyshelf/internal/storage/jsondoc"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCtx = context.Background()

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupRepo(t *testing.T) (*repository.CollectionRepo, *jsondoc.Document) {
	t.Helper()

	store, err := jsondoc.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	doc := store.Document("collections.json")
	return repository.NewCollectionRepository(testLogger(), doc), doc
}

func morningCollection(t *testing.T, repo *repository.CollectionRepo) models.Collection {
	t.Helper()

	created, err := repo.Create(testCtx, models.NewCollection("Morning", []models.NamedMediaItem{
		models.NewNamedMediaItem("asset-breakfast", "Breakfast"),
		models.NewNamedMediaItem("asset-teeth", "Toothbrushing"),
	}))
	require.NoError(t, err)

	return created
}

func TestCollectionRepo_Create(t *testing.T) {
	repo, doc := setupRepo(t)

	t.Run("create persists and returns resolved collection", func(t *testing.T) {
		created := morningCollection(t, repo)

		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, "Morning", created.Title)
		assert.Len(t, created.Items, 2)
		assert.Equal(t, "Breakfast", created.Items[0].Name)
		assert.Equal(t, "Toothbrushing", created.Items[1].Name)
		assert.True(t, doc.Exists())
	})

	t.Run("invalid collection rejected without write", func(t *testing.T) {
		before := readDoc(t, doc)

		_, err := repo.Create(testCtx, models.Collection{})
		require.Error(t, err)

		var vErr *models.CollectionValidationError
		assert.ErrorAs(t, err, &vErr)

		assert.Equal(t, before, readDoc(t, doc))
	})
}

func TestCollectionRepo_RoundTrip(t *testing.T) {
	store, err := jsondoc.New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	doc := store.Document("collections.json")

	repo := repository.NewCollectionRepository(testLogger(), doc)
	created := morningCollection(t, repo)

	withAudio, err := repo.Create(testCtx, models.NewCollection("Evening", []models.NamedMediaItem{
		models.NewNamedMediaItem("asset-bath", "Bathtime"),
	}))
	require.NoError(t, err)
	_, err = repo.SetItemAudio(testCtx, withAudio.ID, withAudio.Items[0].ID, "label.m4a")
	require.NoError(t, err)

	// simulate restart
	reloaded := repository.NewCollectionRepository(testLogger(), doc)

	list := reloaded.List(testCtx)
	require.Len(t, list, 2)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "Morning", list[0].Title)
	assert.Equal(t, []string{"asset-breakfast", "asset-teeth"}, list[0].OrderedAssetRefs())
	assert.Equal(t, "Breakfast", list[0].Items[0].Name)
	assert.Equal(t, "label.m4a", list[1].Items[0].AudioFile)
	assert.WithinDuration(t, created.CreatedAt, list[0].CreatedAt, 0)
}

func TestCollectionRepo_LoadDegradedDocuments(t *testing.T) {
	t.Run("missing document starts empty", func(t *testing.T) {
		repo, _ := setupRepo(t)
		assert.Empty(t, repo.List(testCtx))
	})

	t.Run("corrupt document starts empty", func(t *testing.T) {
		store, err := jsondoc.New(t.TempDir())
		require.NoError(t, err)
		defer store.Close()

		doc := store.Document("collections.json")
		require.NoError(t, os.WriteFile(doc.Path(), []byte("{broken"), 0644))

		repo := repository.NewCollectionRepository(testLogger(), doc)
		assert.Empty(t, repo.List(testCtx))
	})
}

func TestCollectionRepo_Rename(t *testing.T) {
	repo, doc := setupRepo(t)
	created := morningCollection(t, repo)

	t.Run("rename trims and persists", func(t *testing.T) {
		require.NoError(t, repo.Rename(testCtx, created.ID, "  Morning Routine  "))

		got, err := repo.Get(testCtx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Morning Routine", got.Title)
	})

	t.Run("empty title falls back to default", func(t *testing.T) {
		require.NoError(t, repo.Rename(testCtx, created.ID, "   "))

		got, err := repo.Get(testCtx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultCollectionTitle, got.Title)
	})

	// Scenario D: renaming a nonexistent id leaves the document untouched.
	t.Run("rename nonexistent id leaves document byte-for-byte unchanged", func(t *testing.T) {
		before := readDoc(t, doc)

		err := repo.Rename(testCtx, uuid.New(), "Ghost")
		require.ErrorIs(t, err, storage.ErrCollectionNotFound)

		assert.Equal(t, before, readDoc(t, doc))
	})
}

func TestCollectionRepo_Delete(t *testing.T) {
	repo, _ := setupRepo(t)
	created := morningCollection(t, repo)

	t.Run("delete returns removed record", func(t *testing.T) {
		removed, err := repo.Delete(testCtx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, removed.ID)
		assert.Len(t, removed.Items, 2)

		assert.Empty(t, repo.List(testCtx))
	})

	t.Run("delete nonexistent reports not found", func(t *testing.T) {
		_, err := repo.Delete(testCtx, uuid.New())
		assert.ErrorIs(t, err, storage.ErrCollectionNotFound)
	})
}

func TestCollectionRepo_AddItems(t *testing.T) {
	repo, _ := setupRepo(t)
	created := morningCollection(t, repo)

	t.Run("appends new items in order", func(t *testing.T) {
		added, err := repo.AddItems(testCtx, created.ID, []models.NamedMediaItem{
			models.NewNamedMediaItem("asset-shoes", "Shoes"),
			models.NewNamedMediaItem("asset-coat", "Coat"),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, added)

		got, err := repo.Get(testCtx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"asset-breakfast", "asset-teeth", "asset-shoes", "asset-coat"},
			got.OrderedAssetRefs())
	})

	// Scenario B: duplicate asset references are skipped without error.
	t.Run("duplicate asset reference skipped", func(t *testing.T) {
		before, err := repo.Get(testCtx, created.ID)
		require.NoError(t, err)

		added, err := repo.AddItems(testCtx, created.ID, []models.NamedMediaItem{
			models.NewNamedMediaItem("asset-breakfast", "Second Breakfast"),
		})
		require.NoError(t, err)
		assert.Equal(t, 0, added)

		after, err := repo.Get(testCtx, created.ID)
		require.NoError(t, err)
		assert.Len(t, after.Items, len(before.Items))
	})

	t.Run("duplicate within one batch collapses", func(t *testing.T) {
		added, err := repo.AddItems(testCtx, created.ID, []models.NamedMediaItem{
			models.NewNamedMediaItem("asset-hat", "Hat"),
			models.NewNamedMediaItem("asset-hat", "Hat Again"),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, added)
	})

	t.Run("unknown collection reports not found", func(t *testing.T) {
		_, err := repo.AddItems(testCtx, uuid.New(), []models.NamedMediaItem{
			models.NewNamedMediaItem("asset-x", "X"),
		})
		assert.ErrorIs(t, err, storage.ErrCollectionNotFound)
	})
}

// A batch with one invalid candidate must not change the collection at all:
// earlier valid items may not linger in memory while the document on disk
// still holds the old state.
func TestCollectionRepo_AddItems_InvalidBatchIsAtomic(t *testing.T) {
	repo, doc := setupRepo(t)
	created := morningCollection(t, repo)

	before, err := repo.Get(testCtx, created.ID)
	require.NoError(t, err)
	diskBefore := readDoc(t, doc)

	added, err := repo.AddItems(testCtx, created.ID, []models.NamedMediaItem{
		models.NewNamedMediaItem("asset-shoes", "Shoes"),
		models.NewNamedMediaItem("asset-coat", "   "),
	})
	require.Error(t, err)
	var vErr *models.ItemValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, 0, added)

	after, err := repo.Get(testCtx, created.ID)
	require.NoError(t, err)
	assert.Len(t, after.Items, len(before.Items))
	assert.False(t, after.HasAssetRef("asset-shoes"))

	assert.Equal(t, diskBefore, readDoc(t, doc))
}

func TestCollectionRepo_RemoveItem(t *testing.T) {
	repo, _ := setupRepo(t)
	created := morningCollection(t, repo)

	t.Run("removes and returns the item", func(t *testing.T) {
		removed, err := repo.RemoveItem(testCtx, created.ID, created.Items[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "asset-breakfast", removed.AssetRef)

		got, err := repo.Get(testCtx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"asset-teeth"}, got.OrderedAssetRefs())
	})

	t.Run("unknown item reports not found", func(t *testing.T) {
		_, err := repo.RemoveItem(testCtx, created.ID, uuid.New())
		assert.ErrorIs(t, err, storage.ErrItemNotFound)
	})
}

func TestCollectionRepo_Reorder(t *testing.T) {
	repo, _ := setupRepo(t)
	created, err := repo.Create(testCtx, models.NewCollection("Routine", []models.NamedMediaItem{
		models.NewNamedMediaItem("a", "A"),
		models.NewNamedMediaItem("b", "B"),
		models.NewNamedMediaItem("c", "C"),
	}))
	require.NoError(t, err)

	ids := func(c models.Collection) []uuid.UUID {
		out := make([]uuid.UUID, len(c.Items))
		for i, item := range c.Items {
			out[i] = item.ID
		}
		return out
	}

	t.Run("valid permutation applied, item set unchanged", func(t *testing.T) {
		order := ids(created)
		perm := []uuid.UUID{order[2], order[0], order[1]}

		require.NoError(t, repo.Reorder(testCtx, created.ID, perm))

		got, err := repo.Get(testCtx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, perm, ids(got))
		assert.ElementsMatch(t, created.Items, got.Items)
	})

	t.Run("wrong length rejected", func(t *testing.T) {
		err := repo.Reorder(testCtx, created.ID, ids(created)[:2])
		assert.ErrorIs(t, err, storage.ErrInvalidReorder)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		order := ids(created)
		err := repo.Reorder(testCtx, created.ID, []uuid.UUID{order[0], order[0], order[1]})
		assert.ErrorIs(t, err, storage.ErrInvalidReorder)
	})

	t.Run("foreign id rejected", func(t *testing.T) {
		order := ids(created)
		err := repo.Reorder(testCtx, created.ID, []uuid.UUID{order[0], order[1], uuid.New()})
		assert.ErrorIs(t, err, storage.ErrInvalidReorder)
	})

	t.Run("rejected reorder never drops items", func(t *testing.T) {
		got, err := repo.Get(testCtx, created.ID)
		require.NoError(t, err)
		assert.Len(t, got.Items, 3)
	})
}

func TestCollectionRepo_RenameItem(t *testing.T) {
	repo, _ := setupRepo(t)
	created := morningCollection(t, repo)
	item := created.Items[0]

	t.Run("renames in place, id and asset ref preserved", func(t *testing.T) {
		require.NoError(t, repo.RenameItem(testCtx, created.ID, item.ID, "  Big Breakfast "))

		got, err := repo.Get(testCtx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Big Breakfast", got.Items[0].Name)
		assert.Equal(t, item.ID, got.Items[0].ID)
		assert.Equal(t, item.AssetRef, got.Items[0].AssetRef)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		err := repo.RenameItem(testCtx, created.ID, item.ID, "   ")
		require.Error(t, err)
	})
}

func TestCollectionRepo_SetItemAudio(t *testing.T) {
	repo, _ := setupRepo(t)
	created := morningCollection(t, repo)
	item := created.Items[0]

	t.Run("set returns previous empty", func(t *testing.T) {
		prev, err := repo.SetItemAudio(testCtx, created.ID, item.ID, "first.m4a")
		require.NoError(t, err)
		assert.Empty(t, prev)
	})

	t.Run("replace returns previous filename", func(t *testing.T) {
		prev, err := repo.SetItemAudio(testCtx, created.ID, item.ID, "second.m4a")
		require.NoError(t, err)
		assert.Equal(t, "first.m4a", prev)
	})

	t.Run("clear returns previous and empties reference", func(t *testing.T) {
		prev, err := repo.SetItemAudio(testCtx, created.ID, item.ID, "")
		require.NoError(t, err)
		assert.Equal(t, "second.m4a", prev)

		got, err := repo.Get(testCtx, created.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Items[0].AudioFile)
	})
}

func TestCollectionRepo_MaterializeLegacy(t *testing.T) {
	store, err := jsondoc.New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	doc := store.Document("collections.json")

	legacy := models.Collection{
		ID:        uuid.New(),
		Title:     "Old Favorites",
		AssetRefs: []string{"asset-1", "asset-2"},
	}
	require.NoError(t, doc.Write([]models.Collection{legacy}))

	repo := repository.NewCollectionRepository(testLogger(), doc)

	t.Run("load keeps legacy array untouched", func(t *testing.T) {
		got, err := repo.Get(testCtx, legacy.ID)
		require.NoError(t, err)
		assert.True(t, got.IsLegacy())
		assert.Equal(t, []string{"asset-1", "asset-2"}, got.AssetRefs)
	})

	t.Run("materialize swaps refs for items", func(t *testing.T) {
		items := []models.NamedMediaItem{
			models.NewNamedMediaItem("asset-1", "Photo Jan 3, 2024"),
			models.NewNamedMediaItem("asset-2", "Video Feb 8, 2024"),
		}
		require.NoError(t, repo.MaterializeLegacy(testCtx, legacy.ID, items))

		got, err := repo.Get(testCtx, legacy.ID)
		require.NoError(t, err)
		assert.False(t, got.IsLegacy())
		assert.Empty(t, got.AssetRefs)
		assert.Equal(t, []string{"asset-1", "asset-2"}, got.OrderedAssetRefs())
	})

	t.Run("materialize of non-legacy is a no-op", func(t *testing.T) {
		require.NoError(t, repo.MaterializeLegacy(testCtx, legacy.ID, nil))

		got, err := repo.Get(testCtx, legacy.ID)
		require.NoError(t, err)
		assert.Len(t, got.Items, 2)
	})
}

func TestCollectionRepo_FindMatch(t *testing.T) {
	repo, _ := setupRepo(t)

	morning := morningCollection(t, repo)
	_, err := repo.Create(testCtx, models.NewCollection("Evening", []models.NamedMediaItem{
		models.NewNamedMediaItem("asset-bath", "Bathtime"),
		models.NewNamedMediaItem("asset-story", "Storytime"),
	}))
	require.NoError(t, err)

	t.Run("exact asset set match wins regardless of title", func(t *testing.T) {
		got, err := repo.FindMatch(testCtx, "Wrong Title", []string{"asset-teeth", "asset-breakfast"})
		require.NoError(t, err)
		assert.Equal(t, morning.ID, got.ID)
	})

	t.Run("fallback on title plus subset", func(t *testing.T) {
		got, err := repo.FindMatch(testCtx, "Morning", []string{"asset-breakfast"})
		require.NoError(t, err)
		assert.Equal(t, morning.ID, got.ID)
	})

	t.Run("subset without matching title fails", func(t *testing.T) {
		_, err := repo.FindMatch(testCtx, "Midday", []string{"asset-breakfast"})
		assert.ErrorIs(t, err, storage.ErrNoMatch)
	})

	t.Run("no match reported, never guessed", func(t *testing.T) {
		_, err := repo.FindMatch(testCtx, "Morning", []string{"asset-unknown"})
		assert.ErrorIs(t, err, storage.ErrNoMatch)
	})

	t.Run("ambiguous fallback reported", func(t *testing.T) {
		// second "Morning" sharing an asset with the first
		_, err := repo.Create(testCtx, models.NewCollection("Morning", []models.NamedMediaItem{
			models.NewNamedMediaItem("asset-breakfast", "Breakfast"),
			models.NewNamedMediaItem("asset-teeth-2", "Toothbrushing"),
		}))
		require.NoError(t, err)

		_, err = repo.FindMatch(testCtx, "Morning", []string{"asset-breakfast"})
		assert.ErrorIs(t, err, storage.ErrAmbiguousMatch)
	})
}

func readDoc(t *testing.T, doc *jsondoc.Document) []byte {
	t.Helper()

	data, err := os.ReadFile(doc.Path())
	require.NoError(t, err)
	return data
}
