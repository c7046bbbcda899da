package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/adapters/signal"
	"github.com/parley-app/parley/internal/app"
	"github.com/parley-app/parley/internal/config"
	"github.com/parley-app/parley/internal/store"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware mints a stable per-browser token. The token doubles as
// the signaling connection id, so a reconnecting tab keeps its identity.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	coord *app.Coordinator,
	st store.Store,
	monitor *MonitorController,
) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookies := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ParleySessions", cookies))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	ctl := signal.NewSignalWSController(coord, cfg.ReadLimit, cfg.PingPeriod)
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("cid", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	api.GET("/ice", ICEServersHandler(cfg))

	if monitor != nil {
		api.GET("/monitor", monitor.Stream)
	}

	meetings := NewMeetingController(st, coord.Registry())
	m := api.Group("/meetings")
	m.POST("", meetings.Create)
	m.GET("", meetings.ListActive)
	m.GET("/:id", meetings.Get)
	m.GET("/key/:key", meetings.GetByKey)
	m.POST("/:id/join", meetings.Join)
	m.POST("/:id/leave", meetings.Leave)
	m.GET("/:id/participants", meetings.Participants)
	m.DELETE("/:id", meetings.Close)

	return r
}
