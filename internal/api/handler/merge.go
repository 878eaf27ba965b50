package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/krafity/krafity/internal/domain"
	"github.com/krafity/krafity/internal/service"
)

// MergeHandler handles the video merge endpoint.
type MergeHandler struct {
	merge *service.MergeService
}

// NewMergeHandler creates a new merge handler.
func NewMergeHandler(merge *service.MergeService) *MergeHandler {
	return &MergeHandler{merge: merge}
}

type mergeRequest struct {
	VideoURLs []string `json:"video_urls" binding:"required"`
	UserID    string   `json:"user_id" binding:"required"`
}

// MergeVideos handles POST /api/v1/videos/merge. It blocks until the
// merge finishes and returns the persisted URL.
func (h *MergeHandler) MergeVideos(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	mergedURL, err := h.merge.Merge(c.Request.Context(), req.VideoURLs, req.UserID)
	if err != nil {
		var validationErr *domain.ValidationError
		switch {
		case errors.Is(err, domain.ErrNoSegments), errors.As(err, &validationErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "merge failed: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"video_url": mergedURL,
	})
}
