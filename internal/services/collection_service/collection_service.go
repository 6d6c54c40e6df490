package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storyshelf/internal/domain/models"
	"storyshelf/internal/lib/logger/sl"
	"storyshelf/internal/repository"
	"storyshelf/internal/services/medialibrary"
	basestorage "storyshelf/internal/storage"
	storage "storyshelf/internal/storage/filestorage"
	"storyshelf/internal/transport/http/dto"

	"github.com/google/uuid"
)

var ErrClipTooLong = errors.New("audio clip exceeds maximum duration")

// AssetResolver is the slice of the media library gateway this service needs
// (resolving legacy records into named items on first edit).
type AssetResolver interface {
	ResolveAssets(ctx context.Context, ids []string) ([]medialibrary.Asset, error)
}

// CollectionService coordinates the collection store with the audio clip
// storage: every item mutation that touches a clip keeps the file and the
// stored reference in step. If a clip file fails to delete, the reference is
// still removed; an orphaned file beats a dangling reference.
type CollectionService struct {
	log             *slog.Logger
	repo            repository.CollectionRepository
	audioStorage    storage.AudioStorage
	library         AssetResolver
	maxClipDuration time.Duration
}

func NewCollectionService(
	log *slog.Logger,
	repo repository.CollectionRepository,
	audioStorage storage.AudioStorage,
	library AssetResolver,
	maxClipDuration time.Duration,
) *CollectionService {
	return &CollectionService{
		log:             log,
		repo:            repo,
		audioStorage:    audioStorage,
		library:         library,
		maxClipDuration: maxClipDuration,
	}
}

func (s *CollectionService) CreateCollection(ctx context.Context, req dto.CreateCollectionRequest) (models.Collection, error) {
	const op = "collection_service.CreateCollection"

	log := s.log.With(
		slog.String("op", op),
		slog.String("title", req.Title),
	)

	log.Info("creating collection", slog.Int("items", len(req.Items)))

	collection := models.NewCollection(req.Title, dto.ToDomainItems(req.Items))

	created, err := s.repo.Create(ctx, collection)
	if err != nil {
		log.Error("failed to create collection", sl.Err(err))
		return models.Collection{}, fmt.Errorf("%s: %w", op, err)
	}

	return created, nil
}

func (s *CollectionService) ListCollections(ctx context.Context) ([]models.Collection, error) {
	return s.repo.List(ctx), nil
}

func (s *CollectionService) GetCollection(ctx context.Context, id uuid.UUID) (models.Collection, error) {
	const op = "collection_service.GetCollection"

	collection, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Collection{}, fmt.Errorf("%s: %w", op, err)
	}

	return collection, nil
}

// UpdateCollection applies a rename and/or cosmetic tag change.
func (s *CollectionService) UpdateCollection(ctx context.Context, id uuid.UUID, req dto.UpdateCollectionRequest) error {
	const op = "collection_service.UpdateCollection"

	log := s.log.With(
		slog.String("op", op),
		slog.String("collection_id", id.String()),
	)

	if req.Title != nil {
		if err := s.repo.Rename(ctx, id, *req.Title); err != nil {
			log.Warn("rename failed", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if req.IconTag != nil || req.ColorTag != nil {
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		icon, color := current.IconTag, current.ColorTag
		if req.IconTag != nil {
			icon = *req.IconTag
		}
		if req.ColorTag != nil {
			color = *req.ColorTag
		}

		if err := s.repo.UpdateTags(ctx, id, icon, color); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// DeleteCollection removes the collection and every attached audio clip.
// Deleting an id that no longer exists is a no-op.
func (s *CollectionService) DeleteCollection(ctx context.Context, id uuid.UUID) error {
	const op = "collection_service.DeleteCollection"

	log := s.log.With(
		slog.String("op", op),
		slog.String("collection_id", id.String()),
	)

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, basestorage.ErrCollectionNotFound) {
			log.Info("delete of unknown collection ignored")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, filename := range removed.AudioFiles() {
		s.deleteClip(ctx, log, filename)
	}

	log.Info("collection deleted", slog.Int("items", len(removed.Items)))
	return nil
}

// AddItems appends new items, skipping duplicates. An unknown collection id
// is logged and otherwise ignored.
func (s *CollectionService) AddItems(ctx context.Context, id uuid.UUID, items []dto.NewItemInput) error {
	const op = "collection_service.AddItems"

	log := s.log.With(
		slog.String("op", op),
		slog.String("collection_id", id.String()),
	)

	if err := s.materializeIfLegacy(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	added, err := s.repo.AddItems(ctx, id, dto.ToDomainItems(items))
	if err != nil {
		if errors.Is(err, basestorage.ErrCollectionNotFound) {
			log.Error("add items to unknown collection", sl.Err(err))
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("items added", slog.Int("added", added), slog.Int("requested", len(items)))
	return nil
}

// RemoveItem deletes the item and its audio clip, if any.
func (s *CollectionService) RemoveItem(ctx context.Context, id, itemID uuid.UUID) error {
	const op = "collection_service.RemoveItem"

	log := s.log.With(
		slog.String("op", op),
		slog.String("collection_id", id.String()),
		slog.String("item_id", itemID.String()),
	)

	removed, err := s.repo.RemoveItem(ctx, id, itemID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if removed.AudioFile != "" {
		s.deleteClip(ctx, log, removed.AudioFile)
	}

	return nil
}

func (s *CollectionService) Reorder(ctx context.Context, id uuid.UUID, order []uuid.UUID) error {
	const op = "collection_service.Reorder"

	if err := s.repo.Reorder(ctx, id, order); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *CollectionService) RenameItem(ctx context.Context, id, itemID uuid.UUID, name string) error {
	const op = "collection_service.RenameItem"

	if err := s.repo.RenameItem(ctx, id, itemID, name); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SetItemAudio stores the uploaded clip under a fresh filename, points the
// item at it, and deletes the clip it replaced.
func (s *CollectionService) SetItemAudio(ctx context.Context, id, itemID uuid.UUID, input dto.AudioUploadInput) error {
	const op = "collection_service.SetItemAudio"

	log := s.log.With(
		slog.String("op", op),
		slog.String("collection_id", id.String()),
		slog.String("item_id", itemID.String()),
	)

	if input.DurationSeconds > 0 &&
		time.Duration(input.DurationSeconds)*time.Second > s.maxClipDuration {
		return fmt.Errorf("%s: %w", op, ErrClipTooLong)
	}

	filename, size, err := s.audioStorage.Save(ctx, input.File)
	if err != nil {
		log.Error("failed to save audio clip", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	previous, err := s.repo.SetItemAudio(ctx, id, itemID, filename)
	if err != nil {
		// keep the store consistent: drop the clip we just wrote
		s.deleteClip(ctx, log, filename)
		return fmt.Errorf("%s: %w", op, err)
	}

	if previous != "" {
		s.deleteClip(ctx, log, previous)
	}

	log.Info("audio label attached",
		slog.String("filename", filename),
		slog.Int64("size", size),
	)
	return nil
}

// ClearItemAudio removes the item's audio association and deletes the clip.
func (s *CollectionService) ClearItemAudio(ctx context.Context, id, itemID uuid.UUID) error {
	const op = "collection_service.ClearItemAudio"

	log := s.log.With(
		slog.String("op", op),
		slog.String("collection_id", id.String()),
		slog.String("item_id", itemID.String()),
	)

	previous, err := s.repo.SetItemAudio(ctx, id, itemID, "")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if previous != "" {
		s.deleteClip(ctx, log, previous)
	}

	return nil
}

// FindMatch locates a collection for callers that only hold a title and an
// asset set. Prefer carrying the stable id; this exists for legacy clients.
func (s *CollectionService) FindMatch(ctx context.Context, title string, assetRefs []string) (models.Collection, error) {
	const op = "collection_service.FindMatch"

	match, err := s.repo.FindMatch(ctx, title, assetRefs)
	if err != nil {
		s.log.Warn("collection lookup failed",
			slog.String("op", op),
			slog.String("title", title),
			sl.Err(err),
		)
		return models.Collection{}, fmt.Errorf("%s: %w", op, err)
	}

	return match, nil
}

// materializeIfLegacy upgrades a legacy flat-identifier record to named items
// before an item-level edit. Names are synthesized from asset metadata;
// references that no longer resolve keep a positional name so a restored
// asset reappears under it.
func (s *CollectionService) materializeIfLegacy(ctx context.Context, id uuid.UUID) error {
	const op = "collection_service.materializeIfLegacy"

	collection, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, basestorage.ErrCollectionNotFound) {
			return nil
		}
		return err
	}

	if !collection.IsLegacy() {
		return nil
	}

	assets, err := s.library.ResolveAssets(ctx, collection.AssetRefs)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	byRef := make(map[string]medialibrary.Asset, len(assets))
	for _, asset := range assets {
		byRef[asset.ID] = asset
	}

	items := make([]models.NamedMediaItem, 0, len(collection.AssetRefs))
	for i, ref := range collection.AssetRefs {
		name := fmt.Sprintf("Item %d", i+1)
		if asset, ok := byRef[ref]; ok {
			name = models.DefaultItemName(asset.Kind, asset.CreatedAt)
		}
		items = append(items, models.NewNamedMediaItem(ref, name))
	}

	s.log.Info("materializing legacy collection",
		slog.String("op", op),
		slog.String("collection_id", id.String()),
		slog.Int("items", len(items)),
	)

	return s.repo.MaterializeLegacy(ctx, id, items)
}

func (s *CollectionService) deleteClip(ctx context.Context, log *slog.Logger, filename string) {
	if err := s.audioStorage.Delete(ctx, filename); err != nil {
		log.Warn("failed to delete audio clip, leaving orphan",
			slog.String("filename", filename),
			sl.Err(err),
		)
	}
}
