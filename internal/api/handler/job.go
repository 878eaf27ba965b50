package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/krafity/krafity/internal/domain"
	"github.com/krafity/krafity/internal/service"
)

// maxImageBytes bounds a single uploaded reference image.
const maxImageBytes = 20 << 20

// JobHandler handles video generation job endpoints.
type JobHandler struct {
	jobs *service.JobService
}

// NewJobHandler creates a new job handler.
func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// CreateVideoJob handles POST /api/v1/jobs/video. The request is a
// multipart form with an "image" file, an optional "ending_image" file,
// and optional "prompt" and "duration_seconds" fields. It answers 202
// with the job id; progress is reported by the status endpoint.
func (h *JobHandler) CreateVideoJob(c *gin.Context) {
	image, err := readFormImage(c, "image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required: " + err.Error()})
		return
	}

	endingImage, err := readFormImage(c, "ending_image")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ending_image: " + err.Error()})
		return
	}

	duration := 0
	if v := c.PostForm("duration_seconds"); v != "" {
		duration, err = strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "duration_seconds must be an integer"})
			return
		}
	}

	req := &domain.VideoJobRequest{
		Image:           image,
		EndingImage:     endingImage,
		Prompt:          c.PostForm("prompt"),
		DurationSeconds: duration,
	}

	jobID, err := h.jobs.Create(c.Request.Context(), req)
	if err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create job: " + err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"status": "accepted",
	})
}

// GetVideoJob handles GET /api/v1/jobs/video/:id.
func (h *JobHandler) GetVideoJob(c *gin.Context) {
	jobID := c.Param("id")

	status, err := h.jobs.Status(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to query job: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, status)
}

// readFormImage reads one uploaded file from the multipart form.
func readFormImage(c *gin.Context, field string) ([]byte, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	if fileHeader.Size > maxImageBytes {
		return nil, errors.New("file too large")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	return io.ReadAll(io.LimitReader(file, maxImageBytes))
}
