package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MediaKind string

const (
	MediaKindPhoto MediaKind = "photo"
	MediaKindVideo MediaKind = "video"
)

const MaxItemNameLength = 100

// NamedMediaItem associates one library asset with a user-chosen name and an
// optional recorded audio label. AssetRef is an opaque identifier assigned by
// the media library; it is fixed for the lifetime of the item. Only Name and
// AudioFile change after creation.
type NamedMediaItem struct {
	ID        uuid.UUID `json:"id"`
	AssetRef  string    `json:"asset_ref"`
	Name      string    `json:"name"`
	AudioFile string    `json:"audio_file,omitempty"`
}

// NewNamedMediaItem creates a new item for the given asset reference.
func NewNamedMediaItem(assetRef, name string) NamedMediaItem {
	return NamedMediaItem{
		ID:       uuid.New(),
		AssetRef: assetRef,
		Name:     strings.TrimSpace(name),
	}
}

// DefaultItemName synthesizes a display name for a legacy item that was
// stored without one, from the asset's kind and creation date.
func DefaultItemName(kind MediaKind, createdAt time.Time) string {
	label := "Photo"
	if kind == MediaKindVideo {
		label = "Video"
	}
	if createdAt.IsZero() {
		return label
	}
	return label + " " + createdAt.Format("Jan 2, 2006")
}

// Validate checks that the item is complete enough to store.
func (i *NamedMediaItem) Validate() error {
	var validationErrors []string

	if i.ID == uuid.Nil {
		validationErrors = append(validationErrors, "item ID is required")
	}
	if i.AssetRef == "" {
		validationErrors = append(validationErrors, "asset reference is required")
	}
	if strings.TrimSpace(i.Name) == "" {
		validationErrors = append(validationErrors, "item name is required")
	}
	if len(i.Name) > MaxItemNameLength {
		validationErrors = append(validationErrors,
			fmt.Sprintf("item name must be %d characters or less", MaxItemNameLength))
	}

	if len(validationErrors) > 0 {
		return &ItemValidationError{Errors: validationErrors}
	}

	return nil
}

type ItemValidationError struct {
	Errors []string
}

func (e *ItemValidationError) Error() string {
	return fmt.Sprintf("item validation failed: %s", strings.Join(e.Errors, "; "))
}

func IsItemValidationError(err error) bool {
	_, ok := err.(*ItemValidationError)
	return ok
}
