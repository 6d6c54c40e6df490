package repository

import (
	"context"
	"time"

	"storyshelf/internal/domain/models"

	"github.com/google/uuid"
)

type CollectionRepository interface {
	List(ctx context.Context) []models.Collection
	Get(ctx context.Context, id uuid.UUID) (models.Collection, error)
	Create(ctx context.Context, collection models.Collection) (models.Collection, error)
	Rename(ctx context.Context, id uuid.UUID, title string) error
	UpdateTags(ctx context.Context, id uuid.UUID, iconTag, colorTag string) error
	Delete(ctx context.Context, id uuid.UUID) (models.Collection, error)
	AddItems(ctx context.Context, id uuid.UUID, items []models.NamedMediaItem) (int, error)
	RemoveItem(ctx context.Context, id, itemID uuid.UUID) (models.NamedMediaItem, error)
	Reorder(ctx context.Context, id uuid.UUID, order []uuid.UUID) error
	RenameItem(ctx context.Context, id, itemID uuid.UUID, name string) error
	SetItemAudio(ctx context.Context, id, itemID uuid.UUID, filename string) (string, error)
	MaterializeLegacy(ctx context.Context, id uuid.UUID, items []models.NamedMediaItem) error
	FindMatch(ctx context.Context, title string, assetRefs []string) (models.Collection, error)
}

type SessionRepository interface {
	SaveRefreshToken(ctx context.Context, token string, exp time.Duration) error
	GetRefreshToken(ctx context.Context, token string) (bool, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	DeleteAllTokens(ctx context.Context) error
}

type SettingsRepository interface {
	Get(ctx context.Context) (models.Settings, error)
	Update(ctx context.Context, settings models.Settings) error
}
