package http

import (
	"context"
	"net/http"

	"github.com/SkyMonder/SkyCalling/internal/adapters/auth"
	"github.com/SkyMonder/SkyCalling/internal/adapters/signal"
	"github.com/SkyMonder/SkyCalling/internal/app/orch"
	"github.com/SkyMonder/SkyCalling/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const sessionName = "SkyCallingSession"

// SetupRouter wires the account API, the signaling websocket and the
// operational endpoints.
func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, accounts *auth.Accounts, limiter *signal.CallRateLimiter) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.TokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "stats": o.Stats()})
	})
	if o.Metrics != nil {
		r.GET("/metrics", gin.WrapH(o.Metrics.Handler()))
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &accountHandlers{accounts: accounts, orch: o}
	api := r.Group("/api")
	api.POST("/register", h.register)
	api.POST("/login", h.login)
	api.POST("/logout", h.logout)

	authed := api.Group("", h.requireUser)
	authed.GET("/me", h.me)
	authed.GET("/users", h.searchUsers)

	ctrl := signal.NewSignalWSController(o, limiter, signal.Options{
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		WriteTimeout: cfg.WriteTimeout,
		SendBuffer:   cfg.SendBuffer,
	})
	api.GET("/ws/signal", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	return r
}
