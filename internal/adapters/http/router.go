package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/peercall/peercall/internal/adapters/signal"
	"github.com/peercall/peercall/internal/app"
	"github.com/peercall/peercall/internal/config"
)

// ClientTokenMiddleware gives every browser a stable token in its
// session, used only to correlate sockets from the same client in
// logs. Connection identity stays per-socket.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		token, _ := sess.Get("ct").(string)
		if token == "" {
			token = uuid.NewString()
			sess.Set("ct", token)
			if err := sess.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("PeercallSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/join/:room", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	// Stateless helper for integrations: mint a fresh meeting URL.
	api.POST("/v1/meeting", func(c *gin.Context) {
		if cfg.APIKey == "" || c.GetHeader("authorization") != cfg.APIKey {
			c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
			return
		}
		meeting := cfg.Host + "/join/" + uuid.NewString()
		log.Info().Str("module", "adapters.http").Str("meeting", meeting).Msg("meeting minted")
		c.JSON(http.StatusOK, gin.H{"meeting": meeting})
	})

	ctrl := signal.NewSignalWSController(orch, cfg)
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("ct", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}
