package http

import (
	stdhttp "net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/puzzlink/puzzlink-server/internal/auth"
	"github.com/puzzlink/puzzlink-server/internal/config"
	"github.com/puzzlink/puzzlink-server/internal/core"
	"github.com/puzzlink/puzzlink-server/internal/pubsub/hub"
	"github.com/puzzlink/puzzlink-server/internal/store"
)

// NewServer builds the HTTP server with all API routes.
// localHub may be nil when the managed transport is configured; the websocket
// subscriber bridge is only mounted in local-hub mode.
func NewServer(authorizer *auth.Authorizer, st store.Store, broadcaster *core.Broadcaster, localHub *hub.Hub, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	router.GET("/health", healthHandler)

	authHandlers := NewAuthHandlers(authorizer, logger)
	participantHandlers := NewParticipantHandlers(st, logger)
	publishHandlers := NewPublishHandlers(broadcaster, logger)

	api := router.Group("/api")
	{
		api.POST("/channel/auth", authHandlers.ChannelAuth)
		api.POST("/participants", participantHandlers.RegisterProfile)
		api.GET("/participants/:connectionID", participantHandlers.GetProfile)
		api.POST("/rooms/:roomID/chat", publishHandlers.Chat)
		api.POST("/rooms/:roomID/move", publishHandlers.Move)
		api.POST("/rooms/:roomID/complete", publishHandlers.Complete)
	}

	if localHub != nil {
		router.GET("/ws", gin.WrapH(NewWSHandler(localHub, logger)))
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
