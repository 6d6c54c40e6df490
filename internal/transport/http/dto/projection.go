package dto

import (
	"time"

	"storyshelf/internal/domain/models"

	"github.com/google/uuid"
)

// ResolvedAsset is the displayable/playable view of one library asset at
// projection time. Nothing here is persisted.
type ResolvedAsset struct {
	Ref             string           `json:"ref"`
	Kind            models.MediaKind `json:"kind"`
	DurationSeconds *int             `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	ThumbnailURL    string           `json:"thumbnail_url"`
}

type ProjectedItem struct {
	ItemID   uuid.UUID     `json:"item_id"`
	Name     string        `json:"name"`
	AudioURL string        `json:"audio_url,omitempty"`
	Asset    ResolvedAsset `json:"asset"`
}

type CollectionProjection struct {
	CollectionID uuid.UUID       `json:"collection_id"`
	Title        string          `json:"title"`
	IconTag      string          `json:"icon_tag,omitempty"`
	ColorTag     string          `json:"color_tag,omitempty"`
	Items        []ProjectedItem `json:"items"`
	PhotoCount   int             `json:"photo_count"`
	VideoCount   int             `json:"video_count"`
	Unresolved   int             `json:"unresolved"`

	IsPhotoCollection bool `json:"is_photo_collection"`
	IsVideoCollection bool `json:"is_video_collection"`
	IsMixed           bool `json:"is_mixed"`
	IsSinglePhoto     bool `json:"is_single_photo"`
	IsSingleVideo     bool `json:"is_single_video"`
}
