package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"storyshelf/internal/domain/models"
	"storyshelf/internal/lib/logger/sl"
	"storyshelf/internal/metrics"
	"storyshelf/internal/storage"
	"storyshelf/internal/storage/jsondoc"

	"github.com/google/uuid"
)

// CollectionRepo is the single source of truth for which collections exist.
// The whole collection list lives in memory and is written through to one
// JSON document after every mutation. A save failure is logged and swallowed:
// memory stays the user-visible truth for the rest of the session.
//
// All mutations serialize on one mutex. The process-level lock on the data
// directory is taken by the jsondoc store that owns the document.
type CollectionRepo struct {
	log *slog.Logger
	doc *jsondoc.Document

	mu          sync.Mutex
	collections []models.Collection
}

func NewCollectionRepository(log *slog.Logger, doc *jsondoc.Document) *CollectionRepo {
	r := &CollectionRepo{
		log: log,
		doc: doc,
	}
	r.load()

	return r
}

// load reads the document once at startup. A missing or unparsable document
// is non-fatal: the repository starts empty.
func (r *CollectionRepo) load() {
	const op = "repository.collection_repository.load"

	log := r.log.With(slog.String("op", op))

	var collections []models.Collection
	if err := r.doc.Read(&collections); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info("no collections document yet, starting empty")
		} else {
			log.Error("collections document unreadable, starting empty", sl.Err(err))
		}
		r.collections = nil
		return
	}

	r.collections = collections
	log.Info("collections loaded", slog.Int("count", len(collections)))
}

// persist rewrites the full document. Must be called with the mutex held.
func (r *CollectionRepo) persist(op string) {
	if err := r.doc.Write(r.collections); err != nil {
		metrics.StoreSaveFailuresTotal.Inc()
		r.log.Error("failed to persist collections, keeping in-memory state",
			slog.String("op", op), sl.Err(err))
		return
	}

	metrics.StoreMutationsTotal.WithLabelValues(op, "ok").Inc()
}

// indexOf must be called with the mutex held.
func (r *CollectionRepo) indexOf(id uuid.UUID) int {
	for i := range r.collections {
		if r.collections[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *CollectionRepo) List(ctx context.Context) []models.Collection {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Collection, 0, len(r.collections))
	for i := range r.collections {
		out = append(out, r.collections[i].Clone())
	}
	return out
}

func (r *CollectionRepo) Get(ctx context.Context, id uuid.UUID) (models.Collection, error) {
	const op = "repository.collection_repository.Get"

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.Collection{}, fmt.Errorf("%s: %w", op, storage.ErrCollectionNotFound)
	}

	return r.collections[i].Clone(), nil
}

func (r *CollectionRepo) Create(ctx context.Context, collection models.Collection) (models.Collection, error) {
	const op = "repository.collection_repository.Create"

	if err := collection.Validate(); err != nil {
		return models.Collection{}, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.collections = append(r.collections, collection.Clone())
	r.persist(op)

	return collection, nil
}

func (r *CollectionRepo) Rename(ctx context.Context, id uuid.UUID, title string) error {
	const op = "repository.collection_repository.Rename"

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrCollectionNotFound)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = models.DefaultCollectionTitle
	}

	r.collections[i].Title = title
	r.persist(op)

	return nil
}

func (r *CollectionRepo) UpdateTags(ctx context.Context, id uuid.UUID, iconTag, colorTag string) error {
	const op = "repository.collection_repository.UpdateTags"

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrCollectionNotFound)
	}

	r.collections[i].IconTag = iconTag
	r.collections[i].ColorTag = colorTag
	r.persist(op)

	return nil
}

// Delete removes the collection and returns the removed record so the caller
// can clean up attached audio files.
func (r *CollectionRepo) Delete(ctx context.Context, id uuid.UUID) (models.Collection, error) {
	const op = "repository.collection_repository.Delete"

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.Collection{}, fmt.Errorf("%s: %w", op, storage.ErrCollectionNotFound)
	}

	removed := r.collections[i]
	r.collections = append(r.collections[:i], r.collections[i+1:]...)
	r.persist(op)

	return removed, nil
}

// AddItems appends the candidates that do not duplicate an asset reference
// already present, in the order given, and reports how many were added.
// Duplicates are skipped, not an error.
func (r *CollectionRepo) AddItems(ctx context.Context, id uuid.UUID, items []models.NamedMediaItem) (int, error) {
	const op = "repository.collection_repository.AddItems"

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrCollectionNotFound)
	}

	c := &r.collections[i]

	// validate the whole batch before touching the collection, so a bad
	// candidate cannot leave unpersisted items behind
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	added := 0
	for _, item := range items {
		if c.HasAssetRef(item.AssetRef) {
			r.log.Info("skipping duplicate asset reference",
				slog.String("op", op),
				slog.String("asset_ref", item.AssetRef),
			)
			continue
		}
		c.Items = append(c.Items, item)
		added++
	}

	if added > 0 {
		r.persist(op)
	}

	return added, nil
}

// RemoveItem removes one item and returns it so the caller can delete its
// audio clip.
func (r *CollectionRepo) RemoveItem(ctx context.Context, id, itemID uuid.UUID) (models.NamedMediaItem, error) {
	const op = "repository.collection_repository.RemoveItem"

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.NamedMediaItem{}, fmt.Errorf("%s: %w", op, storage.ErrCollectionNotFound)
	}

	c := &r.collections[i]
	j := c.ItemIndex(itemID)
	if j < 0 {
		return models.NamedMediaItem{}, fmt.Errorf("%s: %w", op, storage.ErrItemNotFound)
	}

	removed := c.Items[j]
	c.Items = append(c.Items[:j], c.Items[j+1:]...)
	r.persist(op)

	return removed, nil
}

// Reorder replaces the item order with the given permutation. The new order
// must contain exactly the existing item IDs, each once; anything else is
// rejected so items are never silently dropped.
func (r *CollectionRepo) Reorder(ctx context.Context, id uuid.UUID, order []uuid.UUID) error {
	const op = "repository.collection_repository.Reorder"

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrCollectionNotFound)
	}

	c := &r.collections[i]

	if len(order) != len(c.Items) {
		return fmt.Errorf("%s: %w: got %d ids, have %d items",
			op, storage.ErrInvalidReorder, len(order), len(c.Items))
	}

	byID := make(map[uuid.UUID]models.NamedMediaItem, len(c.Items))
	for _, item := range c.Items {
		byID[item.ID] = item
	}

	reordered := make([]models.NamedMediaItem, 0, len(order))
	seen := make(map[uuid.UUID]struct{}, len(order))
	for _, itemID := range order {
		if _, dup := seen[itemID]; dup {
			return fmt.Errorf("%s: %w: duplicate id %s", op, storage.ErrInvalidReorder, itemID)
		}
		seen[itemID] = struct{}{}

		item, ok := byID[itemID]
		if !ok {
			return fmt.Errorf("%s: %w: unknown id %s", op, storage.ErrInvalidReorder, itemID)
		}
		reordered = append(reordered, item)
	}

	c.Items = reordered
	r.persist(op)

	return nil
}

func (r *CollectionRepo) RenameItem(ctx context.Context, id, itemID uuid.UUID, name string) error {
	const op = "repository.collection_repository.RenameItem"

	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%s: %w", op, &models.ItemValidationError{Errors: []string{"item name is required"}})
	}
	if len(name) > models.MaxItemNameLength {
		return fmt.Errorf("%s: %w", op, &models.ItemValidationError{
			Errors: []string{fmt.Sprintf("item name must be %d characters or less", models.MaxItemNameLength)},
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrCollectionNotFound)
	}

	c := &r.collections[i]
	j := c.ItemIndex(itemID)
	if j < 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrItemNotFound)
	}

	c.Items[j].Name = name
	r.persist(op)

	return nil
}

// SetItemAudio swaps the item's audio clip reference and returns the previous
// filename (empty if none) so the caller can delete the old file. An empty
// filename clears the association.
func (r *CollectionRepo) SetItemAudio(ctx context.Context, id, itemID uuid.UUID, filename string) (string, error) {
	const op = "repository.collection_repository.SetItemAudio"

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return "", fmt.Errorf("%s: %w", op, storage.ErrCollectionNotFound)
	}

	c := &r.collections[i]
	j := c.ItemIndex(itemID)
	if j < 0 {
		return "", fmt.Errorf("%s: %w", op, storage.ErrItemNotFound)
	}

	previous := c.Items[j].AudioFile
	c.Items[j].AudioFile = filename
	r.persist(op)

	return previous, nil
}

// MaterializeLegacy upgrades a legacy flat-identifier record to the named
// item format. The stored legacy array is only replaced here, on an explicit
// edit; reads never rewrite it.
func (r *CollectionRepo) MaterializeLegacy(ctx context.Context, id uuid.UUID, items []models.NamedMediaItem) error {
	const op = "repository.collection_repository.MaterializeLegacy"

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrCollectionNotFound)
	}

	c := &r.collections[i]
	if !c.IsLegacy() {
		return nil
	}

	c.Items = items
	c.AssetRefs = nil
	r.persist(op)

	return nil
}

// FindMatch locates a stored collection from a title and an asset-reference
// set, for callers that do not carry the stable id. Tier one is exact
// asset-set equality; tier two is same title plus the candidate set fully
// contained in the stored set. Zero or multiple matches are errors, never a
// guess.
func (r *CollectionRepo) FindMatch(ctx context.Context, title string, assetRefs []string) (models.Collection, error) {
	const op = "repository.collection_repository.FindMatch"

	candidate := make(map[string]struct{}, len(assetRefs))
	for _, ref := range assetRefs {
		candidate[ref] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var exact []int
	for i := range r.collections {
		if setsEqual(candidate, r.collections[i].AssetRefSet()) {
			exact = append(exact, i)
		}
	}

	switch len(exact) {
	case 1:
		return r.collections[exact[0]].Clone(), nil
	case 0:
		// fall through to tier two
	default:
		return models.Collection{}, fmt.Errorf("%s: %w", op, storage.ErrAmbiguousMatch)
	}

	title = strings.TrimSpace(title)

	var fallback []int
	for i := range r.collections {
		if r.collections[i].Title != title {
			continue
		}
		if isSubset(candidate, r.collections[i].AssetRefSet()) {
			fallback = append(fallback, i)
		}
	}

	switch len(fallback) {
	case 1:
		return r.collections[fallback[0]].Clone(), nil
	case 0:
		return models.Collection{}, fmt.Errorf("%s: %w", op, storage.ErrNoMatch)
	default:
		return models.Collection{}, fmt.Errorf("%s: %w", op, storage.ErrAmbiguousMatch)
	}
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func isSubset(sub, super map[string]struct{}) bool {
	if len(sub) == 0 {
		return false
	}
	for k := range sub {
		if _, ok := super[k]; !ok {
			return false
		}
	}
	return true
}
