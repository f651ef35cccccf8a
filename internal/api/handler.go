package api

import (
	"context"
	"log"
	"regexp"

	"github.com/DevinMcDonald/GallupStopMotion/internal/hub"
	"github.com/DevinMcDonald/GallupStopMotion/internal/store"

	"github.com/gin-gonic/gin"
)

// VideoBuilder assembles ordered frame files into a playable artifact.
// video.Builder is the real implementation.
type VideoBuilder interface {
	Build(ctx context.Context, framePaths []string, outDir string) (string, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store       store.Store
	builder     VideoBuilder
	hub         *hub.Hub
	framesRoot  string
	videosRoot  string
	buttonToken string
	logger      *log.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, builder VideoBuilder, h *hub.Hub, framesRoot, videosRoot, buttonToken string, logger *log.Logger) *Handler {
	return &Handler{
		store:       s,
		builder:     builder,
		hub:         h,
		framesRoot:  framesRoot,
		videosRoot:  videosRoot,
		buttonToken: buttonToken,
		logger:      logger,
	}
}

// Session names are path components on disk, so only a safe alphabet is
// accepted; anything else falls back to the default session.
var sessionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// sessionName extracts the session query parameter, defaulting for kiosks
// that predate session scoping.
func sessionName(c *gin.Context) string {
	s := c.Query("session")
	if s == "" || !sessionNamePattern.MatchString(s) {
		return store.DefaultSession
	}
	return s
}
