package suite

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	httpapp "storyshelf/internal/app/http"
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

	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const TokenSecret = "integration-test-secret"

// Suite runs the whole application in-process against a temp data dir, a
// containerized redis and a stubbed media library. Every asset id the stub
// sees resolves to a photo unless it starts with "video-"; ids starting with
// "missing-" never resolve.
type Suite struct {
	*testing.T
	BaseURL  string
	Client   *http.Client
	AudioDir string
	DataDir  string
}

func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, cancelCtx := context.WithTimeout(context.Background(), time.Hour)

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	dataDir := t.TempDir()
	audioDir := t.TempDir()

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start redis container")

	redisURL, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err)
	redisAddr := strings.TrimPrefix(redisURL, "redis://")

	library := newLibraryStub(t)

	store, err := jsondoc.New(dataDir)
	require.NoError(t, err)

	audioStorage, err := storage.NewLocalAudioStorage(audioDir, "/audio", 5<<20)
	require.NoError(t, err)

	redisClient := redisapp.NewClient(redisAddr, "", 0)

	collectionRepo := repository.NewCollectionRepository(log, store.Document("collections.json"))
	settingsRepo := repository.NewSettingsRepository(log, store.Document("settings.json"))
	sessionRepo := repository.NewRedisSessionRepo(redisClient)

	libraryClient := medialibrary.NewClient(log, library.URL, 5*time.Second, time.Minute)

	collectionService := collectionservice.NewCollectionService(
		log, collectionRepo, audioStorage, libraryClient, 30*time.Second)
	projectionService := projectionservice.NewProjectionService(log, libraryClient, "/audio")
	caregiverService := caregiverservice.NewCaregiverService(log, settingsRepo, sessionRepo, TokenSecret)
	settingsService := settingsservice.NewSettingsService(log, settingsRepo)

	routers := httprouters.NewRouter(
		log,
		collectionService,
		projectionService,
		caregiverService,
		settingsService,
		libraryClient,
		"/audio",
	)

	server := httpapp.New(log, TokenSecret, "", "0", audioDir, routers)
	server.BuildRouters()

	testServer := httptest.NewServer(server.Handler())

	t.Cleanup(func() {
		t.Helper()
		testServer.Close()
		library.Close()
		redisClient.Close()
		_ = store.Close()
		_ = redisContainer.Terminate(context.Background())
		cancelCtx()
	})

	return ctx, &Suite{
		T:        t,
		BaseURL:  testServer.URL,
		Client:   testServer.Client(),
		AudioDir: audioDir,
		DataDir:  dataDir,
	}
}

func newLibraryStub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /assets/resolve", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		type asset struct {
			ID        string    `json:"id"`
			Kind      string    `json:"kind"`
			CreatedAt time.Time `json:"created_at"`
		}
		resp := struct {
			Assets []asset `json:"assets"`
		}{}

		for _, id := range req.IDs {
			if strings.HasPrefix(id, "missing-") {
				continue
			}
			kind := "photo"
			if strings.HasPrefix(id, "video-") {
				kind = "video"
			}
			resp.Assets = append(resp.Assets, asset{
				ID:        id,
				Kind:      kind,
				CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("GET /assets/{id}/playback", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"url": "https://library.example/play/" + r.PathValue("id"),
		})
	})

	return httptest.NewServer(mux)
}
