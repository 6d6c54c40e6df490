package services

import (
	"context"
	"fmt"
	"log/slog"

	"storyshelf/internal/repository"
	"storyshelf/internal/transport/http/dto"
)

// SettingsService exposes the playback preferences. The PIN hash lives in
// the same document but never crosses this boundary.
type SettingsService struct {
	log  *slog.Logger
	repo repository.SettingsRepository
}

func NewSettingsService(log *slog.Logger, repo repository.SettingsRepository) *SettingsService {
	return &SettingsService{log: log, repo: repo}
}

func (s *SettingsService) Get(ctx context.Context) (dto.SettingsResponse, error) {
	const op = "settings_service.Get"

	settings, err := s.repo.Get(ctx)
	if err != nil {
		return dto.SettingsResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	return dto.SettingsResponse{
		Autoplay: settings.Autoplay,
		Shuffle:  settings.Shuffle,
	}, nil
}

// Update applies only the fields present in the request.
func (s *SettingsService) Update(ctx context.Context, req dto.UpdateSettingsRequest) (dto.SettingsResponse, error) {
	const op = "settings_service.Update"

	settings, err := s.repo.Get(ctx)
	if err != nil {
		return dto.SettingsResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	if req.Autoplay != nil {
		settings.Autoplay = *req.Autoplay
	}
	if req.Shuffle != nil {
		settings.Shuffle = *req.Shuffle
	}

	if err := s.repo.Update(ctx, settings); err != nil {
		return dto.SettingsResponse{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("settings updated",
		slog.String("op", op),
		slog.Bool("autoplay", settings.Autoplay),
		slog.Bool("shuffle", settings.Shuffle),
	)

	return dto.SettingsResponse{
		Autoplay: settings.Autoplay,
		Shuffle:  settings.Shuffle,
	}, nil
}
