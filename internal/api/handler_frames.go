package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// frameResponse is the wire shape of one stored frame.
type frameResponse struct {
	ID           int64  `json:"id"`
	Index        int    `json:"index"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// PostFrame handles POST /api/frames: accept one JPEG and record it in the
// session's ordered manifest. Filenames are zero-padded by index so
// lexicographic order matches capture order on disk too.
func (h *Handler) PostFrame(c *gin.Context) {
	file, err := c.FormFile("frame")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing frame upload"})
		return
	}
	session := sessionName(c)

	frame, err := h.store.AppendFrame(c.Request.Context(), session)
	if err != nil {
		h.logger.Printf("Error recording frame: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to record frame"})
		return
	}

	dir := filepath.Join(h.framesRoot, session)
	if err := os.MkdirAll(dir, 0o755); err == nil {
		err = c.SaveUploadedFile(file, filepath.Join(dir, frame.Filename))
	}
	if err != nil {
		// The manifest entry must not outlive its missing bytes.
		h.logger.Printf("Error storing frame bytes: %v", err)
		if derr := h.store.DeleteFrame(c.Request.Context(), frame); derr != nil {
			h.logger.Printf("Warning: could not roll back manifest entry %d: %v", frame.ID, derr)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to store frame"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":            frame.ID,
		"thumbnail_url": fmt.Sprintf("/frames/%s/%s", session, frame.Filename),
	})
}

// GetFrames handles GET /api/frames: the session's frames in capture order.
func (h *Handler) GetFrames(c *gin.Context) {
	session := sessionName(c)
	frames, err := h.store.ListFrames(c.Request.Context(), session)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to list frames"})
		return
	}

	out := make([]frameResponse, 0, len(frames))
	for _, f := range frames {
		out = append(out, frameResponse{
			ID:           f.ID,
			Index:        f.Idx,
			ThumbnailURL: fmt.Sprintf("/frames/%s/%s", session, f.Filename),
		})
	}
	c.JSON(http.StatusOK, out)
}

// DeleteLastFrame handles DELETE /api/frames/last: drop the most recent
// frame by capture order. Answers 204 whether or not a frame existed.
func (h *Handler) DeleteLastFrame(c *gin.Context) {
	session := sessionName(c)
	removed, err := h.store.DeleteLastFrame(c.Request.Context(), session)
	if err != nil {
		h.logger.Printf("Error deleting last frame: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to delete frame"})
		return
	}
	if removed != nil {
		path := filepath.Join(h.framesRoot, session, removed.Filename)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			h.logger.Printf("Warning: manifest entry removed but file remains: %v", err)
		}
	}
	c.Status(http.StatusNoContent)
}

// DeleteAllFrames handles DELETE /api/frames/all: hard reset of the
// session's frames and built videos.
func (h *Handler) DeleteAllFrames(c *gin.Context) {
	session := sessionName(c)
	removed, err := h.store.DeleteAllFrames(c.Request.Context(), session)
	if err != nil {
		h.logger.Printf("Error clearing frames: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to clear frames"})
		return
	}

	if err := os.RemoveAll(filepath.Join(h.framesRoot, session)); err != nil {
		h.logger.Printf("Warning: could not remove frame files: %v", err)
	}
	if err := os.RemoveAll(filepath.Join(h.videosRoot, session)); err != nil {
		h.logger.Printf("Warning: could not remove session videos: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"deleted": len(removed)})
}
