package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storyshelf/internal/domain/models"
	"storyshelf/internal/lib/jwt"
	"storyshelf/internal/lib/logger/sl"
	"storyshelf/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidPIN   = errors.New("invalid pin")
	ErrInvalidToken = errors.New("invalid token")
	ErrPINUnchanged = errors.New("new pin must differ from current pin")
)

const (
	AccessTokenExpire  = 15 * time.Minute
	RefreshTokenExpire = 7 * 24 * time.Hour

	caregiverSubject = "caregiver"
)

// CaregiverService gates the editing surface behind the caregiver PIN. There
// is exactly one caregiver identity per installation; tokens carry no user
// id, only the caregiver subject.
type CaregiverService struct {
	log      *slog.Logger
	settings repository.SettingsRepository
	sessions repository.SessionRepository
	secret   string
}

func NewCaregiverService(
	log *slog.Logger,
	settings repository.SettingsRepository,
	sessions repository.SessionRepository,
	secret string,
) *CaregiverService {
	return &CaregiverService{
		log:      log,
		settings: settings,
		sessions: sessions,
		secret:   secret,
	}
}

// Login verifies the PIN and issues a token pair. On a fresh installation no
// PIN hash exists yet; the first login enrolls the presented PIN.
func (s *CaregiverService) Login(ctx context.Context, pin string) (*models.TokenPair, error) {
	const op = "caregiver_service.Login"

	log := s.log.With(slog.String("op", op))

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if settings.CaregiverPINHash == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		settings.CaregiverPINHash = string(hash)
		if err := s.settings.Update(ctx, settings); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("caregiver pin enrolled")
	} else if err := bcrypt.CompareHashAndPassword([]byte(settings.CaregiverPINHash), []byte(pin)); err != nil {
		log.Warn("pin verification failed")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPIN)
	}

	pair, err := s.issueTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("caregiver logged in")
	return pair, nil
}

// Refresh rotates a refresh token: the presented token must exist in session
// storage, is consumed, and a fresh pair is issued.
func (s *CaregiverService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "caregiver_service.Refresh"

	exists, err := s.sessions.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if err := s.sessions.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issueTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// Logout invalidates one refresh token. Unknown tokens are not an error.
func (s *CaregiverService) Logout(ctx context.Context, refreshToken string) error {
	const op = "caregiver_service.Logout"

	if err := s.sessions.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ChangePIN replaces the caregiver PIN and revokes every active session, so
// a device holding an old refresh token must log in again.
func (s *CaregiverService) ChangePIN(ctx context.Context, currentPIN, newPIN string) error {
	const op = "caregiver_service.ChangePIN"

	log := s.log.With(slog.String("op", op))

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if settings.CaregiverPINHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(settings.CaregiverPINHash), []byte(currentPIN)); err != nil {
			log.Warn("pin change rejected, current pin mismatch")
			return fmt.Errorf("%s: %w", op, ErrInvalidPIN)
		}
	}
	if currentPIN == newPIN {
		return fmt.Errorf("%s: %w", op, ErrPINUnchanged)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPIN), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	settings.CaregiverPINHash = string(hash)
	if err := s.settings.Update(ctx, settings); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.sessions.DeleteAllTokens(ctx); err != nil {
		log.Error("failed to revoke sessions after pin change", sl.Err(err))
	}

	log.Info("caregiver pin changed")
	return nil
}

func (s *CaregiverService) issueTokens(ctx context.Context) (*models.TokenPair, error) {
	accessToken, err := jwt.NewToken(caregiverSubject, s.secret, AccessTokenExpire)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwt.NewToken(caregiverSubject, s.secret, RefreshTokenExpire)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.SaveRefreshToken(ctx, refreshToken, RefreshTokenExpire); err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
