package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxCollectionTitleLength = 100

	// DefaultCollectionTitle is used when a caller submits an empty title.
	DefaultCollectionTitle = "New Collection"
)

// Collection is an ordered, named group of NamedMediaItems. Items are owned
// exclusively by their collection.
//
// AssetRefs is the legacy on-disk shape: older documents stored only raw
// asset identifiers without per-item names. A record that carries AssetRefs
// and no Items is kept as-is until the next explicit edit; readers synthesize
// per-item names on the fly.
type Collection struct {
	ID        uuid.UUID        `json:"id"`
	Title     string           `json:"title"`
	AssetRefs []string         `json:"asset_refs,omitempty"`
	Items     []NamedMediaItem `json:"items,omitempty"`
	IconTag   string           `json:"icon_tag,omitempty"`
	ColorTag  string           `json:"color_tag,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewCollection creates a collection with a fresh ID and timestamp. An
// empty-after-trim title falls back to DefaultCollectionTitle.
func NewCollection(title string, items []NamedMediaItem) Collection {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultCollectionTitle
	}

	return Collection{
		ID:        uuid.New(),
		Title:     title,
		Items:     items,
		CreatedAt: time.Now().UTC(),
	}
}

// IsLegacy reports whether the record is in the old flat-identifier format.
func (c *Collection) IsLegacy() bool {
	return len(c.Items) == 0 && len(c.AssetRefs) > 0
}

// OrderedAssetRefs returns the collection's asset references in display
// order, whichever format the record is in.
func (c *Collection) OrderedAssetRefs() []string {
	if c.IsLegacy() {
		refs := make([]string, len(c.AssetRefs))
		copy(refs, c.AssetRefs)
		return refs
	}

	refs := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		refs = append(refs, item.AssetRef)
	}
	return refs
}

// AssetRefSet returns the collection's asset references as a set.
func (c *Collection) AssetRefSet() map[string]struct{} {
	refs := c.OrderedAssetRefs()
	set := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		set[ref] = struct{}{}
	}
	return set
}

// HasAssetRef reports whether the collection already references the asset.
func (c *Collection) HasAssetRef(ref string) bool {
	for _, r := range c.OrderedAssetRefs() {
		if r == ref {
			return true
		}
	}
	return false
}

// ItemIndex returns the position of the item with the given ID, or -1.
func (c *Collection) ItemIndex(itemID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

// AudioFiles returns the filenames of every attached audio clip.
func (c *Collection) AudioFiles() []string {
	var files []string
	for _, item := range c.Items {
		if item.AudioFile != "" {
			files = append(files, item.AudioFile)
		}
	}
	return files
}

// Clone returns a deep copy so callers cannot mutate stored state through
// returned slices.
func (c *Collection) Clone() Collection {
	out := *c
	if c.AssetRefs != nil {
		out.AssetRefs = make([]string, len(c.AssetRefs))
		copy(out.AssetRefs, c.AssetRefs)
	}
	if c.Items != nil {
		out.Items = make([]NamedMediaItem, len(c.Items))
		copy(out.Items, c.Items)
	}
	return out
}

// Validate checks collection-level invariants before persisting.
func (c *Collection) Validate() error {
	var validationErrors []string

	if c.ID == uuid.Nil {
		validationErrors = append(validationErrors, "collection ID is required")
	}
	if strings.TrimSpace(c.Title) == "" {
		validationErrors = append(validationErrors, "collection title is required")
	}
	if len(c.Title) > MaxCollectionTitleLength {
		validationErrors = append(validationErrors,
			fmt.Sprintf("collection title must be %d characters or less", MaxCollectionTitleLength))
	}

	for _, item := range c.Items {
		if err := item.Validate(); err != nil {
			validationErrors = append(validationErrors, err.Error())
		}
	}

	if len(validationErrors) > 0 {
		return &CollectionValidationError{Errors: validationErrors}
	}

	return nil
}

type CollectionValidationError struct {
	Errors []string
}

func (e *CollectionValidationError) Error() string {
	return fmt.Sprintf("collection validation failed: %s", strings.Join(e.Errors, "; "))
}

func IsCollectionValidationError(err error) bool {
	_, ok := err.(*CollectionValidationError)
	return ok
}
