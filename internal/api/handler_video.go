package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/DevinMcDonald/GallupStopMotion/internal/video"
)

// PostVideo handles POST /api/video: assemble the session's frames, strictly
// in capture order, into a single playable artifact.
func (h *Handler) PostVideo(c *gin.Context) {
	session := sessionName(c)
	frames, err := h.store.ListFrames(c.Request.Context(), session)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to list frames"})
		return
	}

	// Frames whose bytes went missing on disk are skipped rather than
	// failing the whole build.
	framePaths := make([]string, 0, len(frames))
	for _, f := range frames {
		path := filepath.Join(h.framesRoot, session, f.Filename)
		if _, err := os.Stat(path); err != nil {
			h.logger.Printf("Warning: skipping missing frame %s: %v", path, err)
			continue
		}
		framePaths = append(framePaths, path)
	}
	if len(framePaths) == 0 {
		c.String(http.StatusBadRequest, "No frames to build")
		return
	}

	outDir := filepath.Join(h.videosRoot, session)
	name, err := h.builder.Build(c.Request.Context(), framePaths, outDir)
	if errors.Is(err, video.ErrNoFFmpeg) {
		c.String(http.StatusServiceUnavailable, "ffmpeg not available")
		return
	}
	if err != nil {
		h.logger.Printf("Error building video: %v", err)
		c.String(http.StatusInternalServerError, "video build failed: %v", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"video_url": fmt.Sprintf("/videos/%s/%s", session, name),
	})
}
