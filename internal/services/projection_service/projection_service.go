package services

import (
	"context"
	"fmt"
	"log/slog"

	"storyshelf/internal/domain/models"
	"storyshelf/internal/lib/logger/sl"
	"storyshelf/internal/metrics"
	"storyshelf/internal/services/medialibrary"
	"storyshelf/internal/transport/http/dto"
)

// thumbnailSize is the edge length requested for grid thumbnails.
const thumbnailSize = 300

type AssetResolver interface {
	ResolveAssets(ctx context.Context, ids []string) ([]medialibrary.Asset, error)
	ThumbnailURL(assetID string, size int) string
}

// ProjectionService turns stored collections into displayable views. The
// store only holds asset identifiers; everything visual is resolved against
// the media library at read time, so deletions in the library surface here
// as silently shrunk collections rather than broken tiles.
type ProjectionService struct {
	log          *slog.Logger
	library      AssetResolver
	audioBaseURL string
}

func NewProjectionService(log *slog.Logger, library AssetResolver, audioBaseURL string) *ProjectionService {
	return &ProjectionService{
		log:          log,
		library:      library,
		audioBaseURL: audioBaseURL,
	}
}

// Project resolves one collection. Stored order is preserved; items whose
// asset no longer resolves are dropped from the view but never from the
// store, so a later library restore brings them back untouched.
func (s *ProjectionService) Project(ctx context.Context, collection models.Collection) (dto.CollectionProjection, error) {
	const op = "projection_service.Project"

	log := s.log.With(
		slog.String("op", op),
		slog.String("collection_id", collection.ID.String()),
	)

	refs := collection.OrderedAssetRefs()

	var assets []medialibrary.Asset
	if len(refs) > 0 {
		var err error
		assets, err = s.library.ResolveAssets(ctx, refs)
		if err != nil {
			log.Error("failed to resolve collection assets", sl.Err(err))
			return dto.CollectionProjection{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	byRef := make(map[string]medialibrary.Asset, len(assets))
	for _, asset := range assets {
		byRef[asset.ID] = asset
	}

	projection := dto.CollectionProjection{
		CollectionID: collection.ID,
		Title:        collection.Title,
		IconTag:      collection.IconTag,
		ColorTag:     collection.ColorTag,
		Items:        make([]dto.ProjectedItem, 0, len(refs)),
	}

	for _, item := range s.displayItems(collection, byRef) {
		asset, ok := byRef[item.AssetRef]
		if !ok {
			projection.Unresolved++
			continue
		}

		projected := dto.ProjectedItem{
			ItemID: item.ID,
			Name:   item.Name,
			Asset: dto.ResolvedAsset{
				Ref:             asset.ID,
				Kind:            asset.Kind,
				DurationSeconds: asset.DurationSeconds,
				CreatedAt:       asset.CreatedAt,
				ThumbnailURL:    s.library.ThumbnailURL(asset.ID, thumbnailSize),
			},
		}
		if item.AudioFile != "" {
			projected.AudioURL = s.audioBaseURL + "/" + item.AudioFile
		}

		switch asset.Kind {
		case models.MediaKindVideo:
			projection.VideoCount++
		default:
			projection.PhotoCount++
		}
		projection.Items = append(projection.Items, projected)
	}

	metrics.ProjectionResolvedAssets.Observe(float64(len(projection.Items)))

	if len(refs) > 0 && len(projection.Items) == 0 {
		log.Warn("no assets in collection resolved",
			slog.Int("stored_refs", len(refs)),
		)
	} else if projection.Unresolved > 0 {
		log.Info("collection projected with unresolved assets",
			slog.Int("resolved", len(projection.Items)),
			slog.Int("unresolved", projection.Unresolved),
		)
	}

	total := projection.PhotoCount + projection.VideoCount
	projection.IsPhotoCollection = projection.PhotoCount > 0 && projection.VideoCount == 0
	projection.IsVideoCollection = projection.VideoCount > 0 && projection.PhotoCount == 0
	projection.IsMixed = projection.PhotoCount > 0 && projection.VideoCount > 0
	projection.IsSinglePhoto = total == 1 && projection.PhotoCount == 1
	projection.IsSingleVideo = total == 1 && projection.VideoCount == 1

	return projection, nil
}

// ProjectAll projects each collection in turn; the client's asset cache
// absorbs repeated lookups across collections. Collections that fail to
// project are skipped rather than failing the whole listing.
func (s *ProjectionService) ProjectAll(ctx context.Context, collections []models.Collection) ([]dto.CollectionProjection, error) {
	projections := make([]dto.CollectionProjection, 0, len(collections))
	for _, collection := range collections {
		projection, err := s.Project(ctx, collection)
		if err != nil {
			s.log.Error("skipping unprojectable collection",
				slog.String("collection_id", collection.ID.String()),
				sl.Err(err),
			)
			continue
		}
		projections = append(projections, projection)
	}
	return projections, nil
}

// displayItems yields the collection's items in stored order. Legacy
// collections have no item records; a transient item is synthesized per
// reference with a name derived from the resolved asset. Nothing synthesized
// here is written back.
func (s *ProjectionService) displayItems(collection models.Collection, byRef map[string]medialibrary.Asset) []models.NamedMediaItem {
	if !collection.IsLegacy() {
		return collection.Items
	}

	items := make([]models.NamedMediaItem, 0, len(collection.AssetRefs))
	for i, ref := range collection.AssetRefs {
		name := fmt.Sprintf("Item %d", i+1)
		if asset, ok := byRef[ref]; ok {
			name = models.DefaultItemName(asset.Kind, asset.CreatedAt)
		}
		items = append(items, models.NewNamedMediaItem(ref, name))
	}
	return items
}
