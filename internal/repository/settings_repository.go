package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"storyshelf/internal/domain/models"
	"storyshelf/internal/lib/logger/sl"
	"storyshelf/internal/storage/jsondoc"
)

// SettingsRepo persists the small app-settings document next to the
// collections document, with the same write-through discipline.
type SettingsRepo struct {
	log *slog.Logger
	doc *jsondoc.Document

	mu       sync.Mutex
	settings models.Settings
}

func NewSettingsRepository(log *slog.Logger, doc *jsondoc.Document) *SettingsRepo {
	r := &SettingsRepo{
		log: log,
		doc: doc,
	}
	r.load()

	return r
}

func (r *SettingsRepo) load() {
	const op = "repository.settings_repository.load"

	var settings models.Settings
	if err := r.doc.Read(&settings); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.log.Error("settings document unreadable, using defaults",
				slog.String("op", op), sl.Err(err))
		}
		r.settings = models.Settings{Autoplay: true}
		return
	}

	r.settings = settings
}

func (r *SettingsRepo) Get(ctx context.Context) (models.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.settings, nil
}

func (r *SettingsRepo) Update(ctx context.Context, settings models.Settings) error {
	const op = "repository.settings_repository.Update"

	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings = settings
	if err := r.doc.Write(r.settings); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
