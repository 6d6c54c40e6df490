package services_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"storyshelf/internal/domain/models"
	"storyshelf/internal/services/medialibrary"
	services "storyshelf/internal/services/projection_service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) ResolveAssets(ctx context.Context, ids []string) ([]medialibrary.Asset, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]medialibrary.Asset), args.Error(1)
}

func (m *MockResolver) ThumbnailURL(assetID string, size int) string {
	args := m.Called(assetID, size)
	return args.String(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func photoAsset(id string) medialibrary.Asset {
	return medialibrary.Asset{
		ID:        id,
		Kind:      models.MediaKindPhoto,
		CreatedAt: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}
}

func videoAsset(id string, seconds int) medialibrary.Asset {
	return medialibrary.Asset{
		ID:              id,
		Kind:            models.MediaKindVideo,
		DurationSeconds: &seconds,
		CreatedAt:       time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC),
	}
}

func anyThumbnail(resolver *MockResolver) {
	resolver.On("ThumbnailURL", mock.Anything, mock.Anything).Return("https://library/thumb")
}

func TestProjectionService_Project(t *testing.T) {
	ctx := context.Background()

	t.Run("preserves stored order filtered to resolvable", func(t *testing.T) {
		resolver := new(MockResolver)
		service := services.NewProjectionService(testLogger(), resolver, "/media/audio")

		collection := models.NewCollection("Morning", []models.NamedMediaItem{
			models.NewNamedMediaItem("a", "Breakfast"),
			models.NewNamedMediaItem("gone", "Vanished"),
			models.NewNamedMediaItem("b", "Toothbrushing"),
		})

		// library answers out of request order and without "gone"
		resolver.On("ResolveAssets", ctx, []string{"a", "gone", "b"}).
			Return([]medialibrary.Asset{photoAsset("b"), photoAsset("a")}, nil)
		anyThumbnail(resolver)

		projection, err := service.Project(ctx, collection)
		require.NoError(t, err)

		require.Len(t, projection.Items, 2)
		assert.Equal(t, "Breakfast", projection.Items[0].Name)
		assert.Equal(t, "a", projection.Items[0].Asset.Ref)
		assert.Equal(t, "Toothbrushing", projection.Items[1].Name)
		assert.Equal(t, "b", projection.Items[1].Asset.Ref)
		assert.Equal(t, 1, projection.Unresolved)
	})

	t.Run("projection never mutates the collection", func(t *testing.T) {
		resolver := new(MockResolver)
		service := services.NewProjectionService(testLogger(), resolver, "/media/audio")

		collection := models.NewCollection("Morning", []models.NamedMediaItem{
			models.NewNamedMediaItem("a", "Breakfast"),
			models.NewNamedMediaItem("gone", "Vanished"),
		})
		before := collection.Clone()

		resolver.On("ResolveAssets", ctx, mock.Anything).
			Return([]medialibrary.Asset{photoAsset("a")}, nil)
		anyThumbnail(resolver)

		_, err := service.Project(ctx, collection)
		require.NoError(t, err)
		assert.Equal(t, before.Items, collection.Items)
	})

	t.Run("counts and kind flags", func(t *testing.T) {
		resolver := new(MockResolver)
		service := services.NewProjectionService(testLogger(), resolver, "/media/audio")
		anyThumbnail(resolver)

		mixed := models.NewCollection("Mixed", []models.NamedMediaItem{
			models.NewNamedMediaItem("p1", "One"),
			models.NewNamedMediaItem("v1", "Two"),
		})
		resolver.On("ResolveAssets", ctx, []string{"p1", "v1"}).
			Return([]medialibrary.Asset{photoAsset("p1"), videoAsset("v1", 12)}, nil)

		projection, err := service.Project(ctx, mixed)
		require.NoError(t, err)

		assert.Equal(t, 1, projection.PhotoCount)
		assert.Equal(t, 1, projection.VideoCount)
		assert.True(t, projection.IsMixed)
		assert.False(t, projection.IsPhotoCollection)
		assert.False(t, projection.IsVideoCollection)
		assert.False(t, projection.IsSinglePhoto)
		assert.False(t, projection.IsSingleVideo)
	})

	t.Run("single video flag", func(t *testing.T) {
		resolver := new(MockResolver)
		service := services.NewProjectionService(testLogger(), resolver, "/media/audio")
		anyThumbnail(resolver)

		c := models.NewCollection("Clip", []models.NamedMediaItem{
			models.NewNamedMediaItem("v1", "The clip"),
		})
		resolver.On("ResolveAssets", ctx, []string{"v1"}).
			Return([]medialibrary.Asset{videoAsset("v1", 8)}, nil)

		projection, err := service.Project(ctx, c)
		require.NoError(t, err)

		assert.True(t, projection.IsVideoCollection)
		assert.True(t, projection.IsSingleVideo)
		assert.False(t, projection.IsMixed)
		require.NotNil(t, projection.Items[0].Asset.DurationSeconds)
		assert.Equal(t, 8, *projection.Items[0].Asset.DurationSeconds)
	})

	t.Run("audio url only when a clip is attached", func(t *testing.T) {
		resolver := new(MockResolver)
		service := services.NewProjectionService(testLogger(), resolver, "/media/audio")
		anyThumbnail(resolver)

		items := []models.NamedMediaItem{
			models.NewNamedMediaItem("a", "Voiced"),
			models.NewNamedMediaItem("b", "Silent"),
		}
		items[0].AudioFile = "label.m4a"
		c := models.NewCollection("Morning", items)

		resolver.On("ResolveAssets", ctx, mock.Anything).
			Return([]medialibrary.Asset{photoAsset("a"), photoAsset("b")}, nil)

		projection, err := service.Project(ctx, c)
		require.NoError(t, err)

		assert.Equal(t, "/media/audio/label.m4a", projection.Items[0].AudioURL)
		assert.Empty(t, projection.Items[1].AudioURL)
	})

	t.Run("legacy collection synthesizes display names", func(t *testing.T) {
		resolver := new(MockResolver)
		service := services.NewProjectionService(testLogger(), resolver, "/media/audio")
		anyThumbnail(resolver)

		legacy := models.Collection{
			Title:     "Old Times",
			AssetRefs: []string{"p1", "v1"},
		}
		resolver.On("ResolveAssets", ctx, []string{"p1", "v1"}).
			Return([]medialibrary.Asset{photoAsset("p1"), videoAsset("v1", 5)}, nil)

		projection, err := service.Project(ctx, legacy)
		require.NoError(t, err)

		require.Len(t, projection.Items, 2)
		assert.Equal(t, "Photo Mar 15, 2024", projection.Items[0].Name)
		assert.Equal(t, "Video Mar 16, 2024", projection.Items[1].Name)
	})

	t.Run("empty collection projects without a library call", func(t *testing.T) {
		resolver := new(MockResolver)
		service := services.NewProjectionService(testLogger(), resolver, "/media/audio")

		projection, err := service.Project(ctx, models.NewCollection("Empty", nil))
		require.NoError(t, err)

		assert.Empty(t, projection.Items)
		resolver.AssertNotCalled(t, "ResolveAssets", mock.Anything, mock.Anything)
	})

	t.Run("library error fails the projection", func(t *testing.T) {
		resolver := new(MockResolver)
		service := services.NewProjectionService(testLogger(), resolver, "/media/audio")

		c := models.NewCollection("Morning", []models.NamedMediaItem{
			models.NewNamedMediaItem("a", "One"),
		})
		resolver.On("ResolveAssets", ctx, mock.Anything).
			Return([]medialibrary.Asset(nil), errors.New("library down"))

		_, err := service.Project(ctx, c)
		assert.Error(t, err)
	})

	t.Run("projection is idempotent", func(t *testing.T) {
		resolver := new(MockResolver)
		service := services.NewProjectionService(testLogger(), resolver, "/media/audio")
		anyThumbnail(resolver)

		c := models.NewCollection("Morning", []models.NamedMediaItem{
			models.NewNamedMediaItem("a", "One"),
			models.NewNamedMediaItem("b", "Two"),
		})
		resolver.On("ResolveAssets", ctx, mock.Anything).
			Return([]medialibrary.Asset{photoAsset("a"), photoAsset("b")}, nil)

		first, err := service.Project(ctx, c)
		require.NoError(t, err)
		second, err := service.Project(ctx, c)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}

func TestProjectionService_ProjectAll(t *testing.T) {
	ctx := context.Background()
	resolver := new(MockResolver)
	service := services.NewProjectionService(testLogger(), resolver, "/media/audio")
	anyThumbnail(resolver)

	good := models.NewCollection("Good", []models.NamedMediaItem{
		models.NewNamedMediaItem("a", "One"),
	})
	bad := models.NewCollection("Bad", []models.NamedMediaItem{
		models.NewNamedMediaItem("broken", "Two"),
	})

	resolver.On("ResolveAssets", ctx, []string{"a"}).
		Return([]medialibrary.Asset{photoAsset("a")}, nil)
	resolver.On("ResolveAssets", ctx, []string{"broken"}).
		Return([]medialibrary.Asset(nil), fmt.Errorf("timeout"))

	projections, err := service.ProjectAll(ctx, []models.Collection{good, bad})
	require.NoError(t, err)

	require.Len(t, projections, 1)
	assert.Equal(t, "Good", projections[0].Title)
}
