package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"storyshelf/internal/domain/models"
	"storyshelf/internal/lib/logger/sl"
	collectionservice "storyshelf/internal/services/collection_service"
	"storyshelf/internal/storage"
	"storyshelf/internal/transport/http/dto"
	"storyshelf/internal/transport/http/dto/request"
	"storyshelf/internal/transport/http/dto/response"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

type CollectionService interface {
	CreateCollection(ctx context.Context, req dto.CreateCollectionRequest) (models.Collection, error)
	ListCollections(ctx context.Context) ([]models.Collection, error)
	GetCollection(ctx context.Context, id uuid.UUID) (models.Collection, error)
	UpdateCollection(ctx context.Context, id uuid.UUID, req dto.UpdateCollectionRequest) error
	DeleteCollection(ctx context.Context, id uuid.UUID) error
	AddItems(ctx context.Context, id uuid.UUID, items []dto.NewItemInput) error
	RemoveItem(ctx context.Context, id, itemID uuid.UUID) error
	Reorder(ctx context.Context, id uuid.UUID, order []uuid.UUID) error
	RenameItem(ctx context.Context, id, itemID uuid.UUID, name string) error
	SetItemAudio(ctx context.Context, id, itemID uuid.UUID, input dto.AudioUploadInput) error
	ClearItemAudio(ctx context.Context, id, itemID uuid.UUID) error
	FindMatch(ctx context.Context, title string, assetRefs []string) (models.Collection, error)
}

type ProjectionService interface {
	Project(ctx context.Context, collection models.Collection) (dto.CollectionProjection, error)
	ProjectAll(ctx context.Context, collections []models.Collection) ([]dto.CollectionProjection, error)
}

type CaregiverService interface {
	Login(ctx context.Context, pin string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePIN(ctx context.Context, currentPIN, newPIN string) error
}

type SettingsService interface {
	Get(ctx context.Context) (dto.SettingsResponse, error)
	Update(ctx context.Context, req dto.UpdateSettingsRequest) (dto.SettingsResponse, error)
}

type PlaybackResolver interface {
	ResolvePlayableResource(ctx context.Context, assetID string) (string, error)
}

type Routers struct {
	log               *slog.Logger
	CollectionService CollectionService
	ProjectionService ProjectionService
	CaregiverService  CaregiverService
	SettingsService   SettingsService
	Playback          PlaybackResolver
	audioBaseURL      string
}

func NewRouter(
	log *slog.Logger,
	collectionService CollectionService,
	projectionService ProjectionService,
	caregiverService CaregiverService,
	settingsService SettingsService,
	playback PlaybackResolver,
	audioBaseURL string,
) *Routers {
	return &Routers{
		log:               log,
		CollectionService: collectionService,
		ProjectionService: projectionService,
		CaregiverService:  caregiverService,
		SettingsService:   settingsService,
		Playback:          playback,
		audioBaseURL:      audioBaseURL,
	}
}

const sessionName = "storyshelf_session"

func (r *Routers) Login(c echo.Context) error {
	const op = "http.routers.Login"

	log := r.log.With(
		slog.String("op", op),
	)

	var req request.CaregiverLoginRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		log.Warn("invalid login request")
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	pair, err := r.CaregiverService.Login(c.Request().Context(), req.PIN)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
	}

	if sess, err := session.Get(sessionName, c); err == nil {
		sess.Values["caregiver"] = true
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			log.Warn("failed to save session", sl.Err(err))
		}
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(pair))
}

func (r *Routers) Refresh(c echo.Context) error {
	var req request.RefreshRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	pair, err := r.CaregiverService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(pair))
}

func (r *Routers) Logout(c echo.Context) error {
	const op = "http.routers.Logout"

	var req request.RefreshRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := r.CaregiverService.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		r.log.Error("logout failed", slog.String("op", op), sl.Err(err))
	}

	if sess, err := session.Get(sessionName, c); err == nil {
		sess.Options.MaxAge = -1
		_ = sess.Save(c.Request(), c.Response())
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success"})
}

func (r *Routers) ChangePIN(c echo.Context) error {
	var req request.ChangePINRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := r.CaregiverService.ChangePIN(c.Request().Context(), req.CurrentPIN, req.NewPIN); err != nil {
		return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success"})
}

func (r *Routers) ListCollections(c echo.Context) error {
	const op = "http.routers.ListCollections"

	collections, err := r.CollectionService.ListCollections(c.Request().Context())
	if err != nil {
		r.log.Error("failed to list collections", slog.String("op", op), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrOperationFailed)
	}

	out := make([]dto.CollectionResponse, 0, len(collections))
	for _, collection := range collections {
		out = append(out, dto.FromCollection(collection, r.audioBaseURL))
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(out))
}

func (r *Routers) CreateCollection(c echo.Context) error {
	const op = "http.routers.CreateCollection"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.CreateCollectionRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	collection, err := r.CollectionService.CreateCollection(c.Request().Context(), req)
	if err != nil {
		var vErr *models.CollectionValidationError
		if errors.As(err, &vErr) {
			return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", vErr.Error()))
		}
		log.Error("failed to create collection", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrOperationFailed)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(dto.FromCollection(collection, r.audioBaseURL)))
}

func (r *Routers) GetCollection(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	collection, err := r.CollectionService.GetCollection(c.Request().Context(), id)
	if err != nil {
		return r.collectionError(c, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.FromCollection(collection, r.audioBaseURL)))
}

func (r *Routers) GetProjection(c echo.Context) error {
	const op = "http.routers.GetProjection"

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	ctx := c.Request().Context()

	collection, err := r.CollectionService.GetCollection(ctx, id)
	if err != nil {
		return r.collectionError(c, err)
	}

	projection, err := r.ProjectionService.Project(ctx, collection)
	if err != nil {
		r.log.Error("projection failed", slog.String("op", op), sl.Err(err))
		return c.JSON(http.StatusBadGateway, response.ErrOperationFailed)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(projection))
}

func (r *Routers) LookupCollection(c echo.Context) error {
	var req dto.LookupCollectionRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	collection, err := r.CollectionService.FindMatch(c.Request().Context(), req.Title, req.AssetRefs)
	if err != nil {
		if errors.Is(err, storage.ErrNoMatch) {
			return c.JSON(http.StatusNotFound, response.ErrNoMatchingCollection)
		}
		if errors.Is(err, storage.ErrAmbiguousMatch) {
			return c.JSON(http.StatusConflict, response.ErrorResponseWithDetails(
				"ambiguous_match", "more than one collection matches this title and asset set"))
		}
		return c.JSON(http.StatusInternalServerError, response.ErrOperationFailed)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.FromCollection(collection, r.audioBaseURL)))
}

func (r *Routers) UpdateCollection(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	var req dto.UpdateCollectionRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	if err := r.CollectionService.UpdateCollection(c.Request().Context(), id, req); err != nil {
		return r.collectionError(c, err)
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success"})
}

func (r *Routers) DeleteCollection(c echo.Context) error {
	const op = "http.routers.DeleteCollection"

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := r.CollectionService.DeleteCollection(c.Request().Context(), id); err != nil {
		r.log.Error("failed to delete collection", slog.String("op", op), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrOperationFailed)
	}

	return c.NoContent(http.StatusNoContent)
}

func (r *Routers) AddItems(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	var req dto.AddItemsRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	if err := r.CollectionService.AddItems(c.Request().Context(), id, req.Items); err != nil {
		return r.collectionError(c, err)
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success"})
}

func (r *Routers) RemoveItem(c echo.Context) error {
	id, itemID, err := parseItemPath(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := r.CollectionService.RemoveItem(c.Request().Context(), id, itemID); err != nil {
		return r.collectionError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (r *Routers) Reorder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	var req dto.ReorderRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := r.CollectionService.Reorder(c.Request().Context(), id, req.Order); err != nil {
		if errors.Is(err, storage.ErrInvalidReorder) {
			return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails(
				"invalid_reorder", "order must be a permutation of the collection's item ids"))
		}
		return r.collectionError(c, err)
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success"})
}

func (r *Routers) RenameItem(c echo.Context) error {
	id, itemID, err := parseItemPath(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	var req dto.RenameItemRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	}

	if err := r.CollectionService.RenameItem(c.Request().Context(), id, itemID, req.Name); err != nil {
		return r.collectionError(c, err)
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success"})
}

func (r *Routers) SetItemAudio(c echo.Context) error {
	const op = "http.routers.SetItemAudio"

	log := r.log.With(
		slog.String("op", op),
	)

	id, itemID, err := parseItemPath(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails(
			"invalid_request", "multipart field 'file' is required"))
	}

	input := dto.AudioUploadInput{File: file}
	if v := c.FormValue("duration_seconds"); v != "" {
		// duration is advisory; a malformed value is treated as absent
		seconds, err := strconv.Atoi(v)
		if err != nil {
			log.Warn("unparsable duration_seconds", slog.String("value", v))
		} else {
			input.DurationSeconds = seconds
		}
	}

	if err := r.CollectionService.SetItemAudio(c.Request().Context(), id, itemID, input); err != nil {
		if errors.Is(err, collectionservice.ErrClipTooLong) {
			return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails(
				"clip_too_long", "audio label exceeds the maximum clip duration"))
		}
		if errors.Is(err, storage.ErrInvalidFileType) {
			return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails(
				"invalid_file_type", "unsupported audio format"))
		}
		if errors.Is(err, storage.ErrFileTooLarge) {
			return c.JSON(http.StatusRequestEntityTooLarge, response.ErrorResponseWithDetails(
				"file_too_large", "audio clip exceeds the size limit"))
		}
		return r.collectionError(c, err)
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success"})
}

func (r *Routers) ClearItemAudio(c echo.Context) error {
	id, itemID, err := parseItemPath(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := r.CollectionService.ClearItemAudio(c.Request().Context(), id, itemID); err != nil {
		return r.collectionError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (r *Routers) GetSettings(c echo.Context) error {
	settings, err := r.SettingsService.Get(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, response.ErrOperationFailed)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(settings))
}

func (r *Routers) UpdateSettings(c echo.Context) error {
	var req dto.UpdateSettingsRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	settings, err := r.SettingsService.Update(c.Request().Context(), req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, response.ErrOperationFailed)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(settings))
}

// ResolvePlayback redirects to the library's short-lived playback URL for a
// video asset.
func (r *Routers) ResolvePlayback(c echo.Context) error {
	const op = "http.routers.ResolvePlayback"

	assetID := c.Param("id")
	if assetID == "" {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	url, err := r.Playback.ResolvePlayableResource(c.Request().Context(), assetID)
	if err != nil {
		r.log.Error("playback resolution failed", slog.String("op", op), sl.Err(err))
		return c.JSON(http.StatusBadGateway, response.ErrOperationFailed)
	}

	return c.Redirect(http.StatusTemporaryRedirect, url)
}

func (r *Routers) collectionError(c echo.Context, err error) error {
	var itemErr *models.ItemValidationError
	var collectionErr *models.CollectionValidationError

	switch {
	case errors.Is(err, storage.ErrCollectionNotFound):
		return c.JSON(http.StatusNotFound, response.ErrCollectionNotFound)
	case errors.Is(err, storage.ErrItemNotFound):
		return c.JSON(http.StatusNotFound, response.ErrItemNotFound)
	case errors.As(err, &itemErr):
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", itemErr.Error()))
	case errors.As(err, &collectionErr):
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", collectionErr.Error()))
	default:
		r.log.Error("collection operation failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrOperationFailed)
	}
}

func parseItemPath(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return id, itemID, nil
}
