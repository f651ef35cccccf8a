package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/DevinMcDonald/GallupStopMotion/config"
	"github.com/DevinMcDonald/GallupStopMotion/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 10*ttl)
	caching := mw.Cache(cacheStore, ttl)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Thumbnails and built artifacts are served straight off disk.
	r.Static("/frames", h.framesRoot)
	r.Static("/videos", h.videosRoot)

	r.GET("/ws", h.Events)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/frames", h.PostFrame)
		api.GET("/frames", caching, h.GetFrames)
		api.DELETE("/frames/last", h.DeleteLastFrame)
		api.DELETE("/frames/all", h.DeleteAllFrames)
		api.POST("/video", h.PostVideo)
		api.POST("/button", h.PostButton)
	}

	return r
}
