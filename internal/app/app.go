package app

import (
	"log/slog"

	httpapp "storyshelf/internal/app/http"
	"storyshelf/internal/config"
	"storyshelf/internal/repository"
	caregiverservice "storyshelf/internal/services/caregiver_service"
	collectionservice "storyshelf/internal/services/collection_service"
	"storyshelf/internal/services/medialibrary"
	projectionservice "storyshelf/internal/services/projection_service"
	settingsservice "storyshelf/internal/services/settings_service"
	storage "storyshelf/internal/storage/filestorage"
	"storyshelf/internal/storage/jsondoc"
	redisapp "storyshelf/internal/storage/redis"
	httprouters "storyshelf/internal/transport/http"
)

type App struct {
	HTTPServer *httpapp.Server

	store *jsondoc.Store
	redis *redisapp.Client
}

func New(log *slog.Logger, cfg *config.Config) *App {
	store, err := jsondoc.New(cfg.Storage.DataDir)
	if err != nil {
		panic(err)
	}

	audioStorage, err := storage.NewLocalAudioStorage(
		cfg.AudioStorage.BaseDir,
		cfg.AudioStorage.BaseURL,
		cfg.AudioStorage.MaxSize,
	)
	if err != nil {
		panic(err)
	}

	redisClient := redisapp.NewClient(cfg.Redis.RedisAddr, cfg.Redis.RedisPassword, cfg.Redis.RedisDB)

	collectionRepo := repository.NewCollectionRepository(log, store.Document(cfg.Storage.CollectionsFile))
	settingsRepo := repository.NewSettingsRepository(log, store.Document(cfg.Storage.SettingsFile))
	sessionRepo := repository.NewRedisSessionRepo(redisClient)

	library := medialibrary.NewClient(log, cfg.MediaLibrary.BaseURL, cfg.MediaLibrary.Timeout, cfg.MediaLibrary.CacheTTL)

	collectionService := collectionservice.NewCollectionService(
		log, collectionRepo, audioStorage, library, cfg.AudioStorage.MaxClipDuration)
	projectionService := projectionservice.NewProjectionService(log, library, cfg.AudioStorage.BaseURL)
	caregiverService := caregiverservice.NewCaregiverService(log, settingsRepo, sessionRepo, cfg.TokenSecret)
	settingsService := settingsservice.NewSettingsService(log, settingsRepo)

	routers := httprouters.NewRouter(
		log,
		collectionService,
		projectionService,
		caregiverService,
		settingsService,
		library,
		cfg.AudioStorage.BaseURL,
	)

	server := httpapp.New(log, cfg.TokenSecret, cfg.HTTP.Host, cfg.HTTP.Port, audioStorage.BaseDir(), routers)
	server.BuildRouters()

	return &App{
		HTTPServer: server,
		store:      store,
		redis:      redisClient,
	}
}

// Stop shuts the server down and releases the data-dir lock.
func (a *App) Stop() error {
	if err := a.HTTPServer.Stop(); err != nil {
		return err
	}

	a.redis.Close()

	return a.store.Close()
}
