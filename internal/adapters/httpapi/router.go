// Package httpapi wires the gin router: static UI, REST, metrics and
// the websocket signal endpoint.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/huddle-dev/huddle/internal/adapters/signal"
	"github.com/huddle-dev/huddle/internal/app"
	"github.com/huddle-dev/huddle/internal/config"
	"github.com/huddle-dev/huddle/internal/domain"
)

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
	r.Use(sessions.Sessions("HuddleSession", store))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Str("module", "adapters.httpapi").Str("static", cfg.StaticPath).Msg("router setup")

	ctl := signal.NewController(orch, cfg)

	api := r.Group("/api")
	api.Use(AuthMiddleware(cfg.Secret))

	api.GET("/ws/signal", func(c *gin.Context) {
		ctl.HandleSignal(ctx, c)
	})

	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, domain.User{
			ID:    domain.UserID(c.GetString("user_id")),
			Name:  c.GetString("user_name"),
			Guest: c.GetBool("guest"),
		})
	})

	api.GET("/sessions", func(c *gin.Context) {
		type sessionInfo struct {
			ID      domain.SessionID `json:"id"`
			Members int              `json:"members"`
		}
		out := make([]sessionInfo, 0)
		for _, s := range orch.Registry.Sessions() {
			out = append(out, sessionInfo{ID: s.ID, Members: s.MemberCount()})
		}
		c.JSON(http.StatusOK, gin.H{"sessions": out})
	})

	// explicit teardown is the only way a group session dies
	api.DELETE("/sessions/:id", func(c *gin.Context) {
		if c.GetBool("guest") {
			c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
			return
		}
		id := domain.SessionID(c.Param("id"))
		s, ok := orch.Registry.Get(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		for _, m := range s.Members() {
			orch.Leave(m.ID)
		}
		orch.Registry.Destroy(id)
		c.JSON(http.StatusOK, gin.H{"deleted": string(id)})
	})

	return r
}
