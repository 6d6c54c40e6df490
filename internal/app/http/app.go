package httpapp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	appmiddleware "storyshelf/internal/middleware"
	httprouters "storyshelf/internal/transport/http"

	"github.com/arl/statsviz"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

type Server struct {
	m        *http.ServeMux
	log      *slog.Logger
	e        *echo.Echo
	routers  *httprouters.Routers
	host     string
	port     string
	token    string
	audioDir string
}

func New(log *slog.Logger, token string, host, port, audioDir string, routers *httprouters.Routers) *Server {
	e := echo.New()
	e.HideBanner = true

	validate := validator.New()
	e.Validator = &CustomValidator{validator: validate}

	e.Use(session.Middleware(sessions.NewCookieStore([]byte(token))))

	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(appmiddleware.PrometheusMetrics)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("URI", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote ip", v.RemoteIP),
			)

			return nil
		},
	}))

	mux := http.NewServeMux()
	err := statsviz.Register(mux)
	if err != nil {
		log.Info("Statsviz start with error", slog.Any("error:", err.Error()))
	}

	return &Server{
		m:        mux,
		log:      log,
		e:        e,
		routers:  routers,
		host:     host,
		port:     port,
		token:    token,
		audioDir: audioDir,
	}
}

// Handler exposes the configured echo instance for in-process test servers.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) MustRun() {
	const op = "http.Server.MustRun"

	s.log.Info(op, slog.String("Start", "server"))

	if err := s.Start(); err != nil {
		panic(err)
	}
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	if err := s.e.Start(fmt.Sprintf(":%s", s.port)); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("%s server stopped: %w", op, err)
	}

	return nil
}

func (s *Server) Stop() error {
	const op = "http.Server.Stop"

	optCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	s.log.Info("stopping", op, "http server")

	if err := s.e.Shutdown(optCtx); err != nil {
		return fmt.Errorf("%s could not shutdown server gracefuly: %w", op, err)
	}

	return nil
}

func (s *Server) BuildRouters() {
	api := s.e.Group("/api/v1")
	{
		caregiver := api.Group("/caregiver")
		{
			caregiver.POST("/login", s.routers.Login)
			caregiver.POST("/refresh", s.routers.Refresh)
			caregiver.POST("/logout", s.routers.Logout)
		}

		// the child-facing surface is read-mostly and unauthenticated
		api.GET("/collections", s.routers.ListCollections)
		api.GET("/collections/:id", s.routers.GetCollection)
		api.GET("/collections/:id/projection", s.routers.GetProjection)
		api.POST("/collections/lookup", s.routers.LookupCollection)
		api.GET("/settings", s.routers.GetSettings)
		api.GET("/assets/:id/playback", s.routers.ResolvePlayback)

		// editing requires a caregiver token
		edit := api.Group("", echojwt.WithConfig(echojwt.Config{
			SigningKey: []byte(s.token),
		}))
		{
			edit.POST("/caregiver/pin", s.routers.ChangePIN)
			edit.POST("/collections", s.routers.CreateCollection)
			edit.PATCH("/collections/:id", s.routers.UpdateCollection)
			edit.DELETE("/collections/:id", s.routers.DeleteCollection)
			edit.POST("/collections/:id/items", s.routers.AddItems)
			edit.DELETE("/collections/:id/items/:item_id", s.routers.RemoveItem)
			edit.PUT("/collections/:id/items/order", s.routers.Reorder)
			edit.PATCH("/collections/:id/items/:item_id", s.routers.RenameItem)
			edit.PUT("/collections/:id/items/:item_id/audio", s.routers.SetItemAudio)
			edit.DELETE("/collections/:id/items/:item_id/audio", s.routers.ClearItemAudio)
			edit.PATCH("/settings", s.routers.UpdateSettings)
		}
	}

	s.e.Static("/audio", s.audioDir)
	s.e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	debug := s.e.Group("/debug")
	{
		debug.GET("/statsviz/", echo.WrapHandler(s.m))
		debug.GET("/statsviz/*", echo.WrapHandler(s.m))
	}
}
