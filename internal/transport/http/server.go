package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vladbarsukov/gameroom-server/internal/config"
	"github.com/vladbarsukov/gameroom-server/internal/registry"
	"github.com/vladbarsukov/gameroom-server/internal/session"
)

// GameService bundles one configured game type with its registry of
// live sessions.
type GameService struct {
	Type        string
	DisplayName string
	Registry    *registry.Registry[*session.Session]
}

// NewServer builds the HTTP server: a REST surface per game type plus
// the realtime stream endpoint.
func NewServer(services map[string]*GameService, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(LoggerMiddleware(logger), gin.Recovery())

	router.GET("/health", healthHandler)

	h := NewGameHandlers(services, logger)
	g := router.Group("/api/:gameType")
	g.GET("/games", h.ListGames)
	g.POST("/create", h.CreateGame)
	g.POST("/:gameID/register", h.RegisterPlayer)
	g.GET("/:gameID/connect", h.Connect)
	g.GET("/:gameID/state", h.GetState)
	g.POST("/:gameID/move", h.SubmitMove)
	g.GET("/:gameID/history", h.GetHistory)
	g.GET("/:gameID/stream", h.Stream)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
