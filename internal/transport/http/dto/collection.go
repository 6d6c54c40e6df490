package dto

import (
	"time"

	"storyshelf/internal/domain/models"

	"github.com/google/uuid"
)

type NewItemInput struct {
	AssetRef string `json:"asset_ref" validate:"required"`
	Name     string `json:"name" validate:"required,max=100"`
}

type CreateCollectionRequest struct {
	Title string         `json:"title" validate:"max=100"`
	Items []NewItemInput `json:"items" validate:"required,min=1,dive"`
}

type UpdateCollectionRequest struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,max=100"`
	IconTag  *string `json:"icon_tag,omitempty"`
	ColorTag *string `json:"color_tag,omitempty"`
}

type AddItemsRequest struct {
	Items []NewItemInput `json:"items" validate:"required,min=1,dive"`
}

type ReorderRequest struct {
	Order []uuid.UUID `json:"order" validate:"required,min=1"`
}

type RenameItemRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type LookupCollectionRequest struct {
	Title     string   `json:"title"`
	AssetRefs []string `json:"asset_refs" validate:"required,min=1"`
}

type ItemResponse struct {
	ID       uuid.UUID `json:"id"`
	AssetRef string    `json:"asset_ref"`
	Name     string    `json:"name"`
	AudioURL string    `json:"audio_url,omitempty"`
}

type CollectionResponse struct {
	ID        uuid.UUID      `json:"id"`
	Title     string         `json:"title"`
	Legacy    bool           `json:"legacy"`
	Items     []ItemResponse `json:"items"`
	IconTag   string         `json:"icon_tag,omitempty"`
	ColorTag  string         `json:"color_tag,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ToDomainItems converts request items into domain models, keeping order.
func ToDomainItems(items []NewItemInput) []models.NamedMediaItem {
	out := make([]models.NamedMediaItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.NewNamedMediaItem(item.AssetRef, item.Name))
	}
	return out
}

// FromCollection maps a stored record into the API shape. audioBaseURL turns
// bare clip filenames into playable URLs.
func FromCollection(c models.Collection, audioBaseURL string) CollectionResponse {
	items := make([]ItemResponse, 0, len(c.Items))
	for _, item := range c.Items {
		out := ItemResponse{
			ID:       item.ID,
			AssetRef: item.AssetRef,
			Name:     item.Name,
		}
		if item.AudioFile != "" {
			out.AudioURL = audioBaseURL + "/" + item.AudioFile
		}
		items = append(items, out)
	}

	return CollectionResponse{
		ID:        c.ID,
		Title:     c.Title,
		Legacy:    c.IsLegacy(),
		Items:     items,
		IconTag:   c.IconTag,
		ColorTag:  c.ColorTag,
		CreatedAt: c.CreatedAt,
	}
}
