package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leadforge/leadforge/internal/api/dispatch"
	"github.com/leadforge/leadforge/internal/api/domain"
	"github.com/leadforge/leadforge/internal/api/dto"
	"github.com/leadforge/leadforge/internal/api/model"
	"github.com/leadforge/leadforge/internal/api/router/identity"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// csvMIMETypes is the set of declared content types accepted for CSV uploads
var csvMIMETypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true,
	"text/plain":               true,
}

// UploadCSV handles POST /api/v1/imports
// Stages the file, creates the job record in pending, and dispatches it.
// Returns the job id immediately; the caller never blocks on processing.
func (h *ImportHandler) UploadCSV(c *gin.Context) {
	uploaderID := identity.UploaderID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "file is required",
		})
		return
	}

	// Fail fast before any state is created
	if fileHeader.Size > h.maxUploadBytes {
		h.logger.Warn("Upload rejected - file too large",
			slog.String("file_name", fileHeader.Filename),
			slog.Int64("size", fileHeader.Size),
			slog.Int64("max_bytes", h.maxUploadBytes),
		)
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "file exceeds the maximum upload size",
		})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !csvMIMETypes[contentType] {
		h.logger.Warn("Upload rejected - unsupported content type",
			slog.String("file_name", fileHeader.Filename),
			slog.String("content_type", contentType),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "file must be a CSV",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to read uploaded file",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.logger.Error("Failed to read uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to read uploaded file",
		})
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "file exceeds the maximum upload size",
		})
		return
	}

	jobID := uuid.New().String()
	storageKey := buildStorageKey(h.keyPrefix, fileHeader.Filename)

	if err := h.blobs.Put(c.Request.Context(), storageKey, data, contentType); err != nil {
		h.logger.Error("Failed to stage file",
			slog.String("storage_key", storageKey),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to stage file",
		})
		return
	}

	job := model.ImportJob{
		ID:         jobID,
		UploaderID: uploaderID,
		FileName:   fileHeader.Filename,
		StorageKey: storageKey,
		Status:     domain.JobStatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	if err := h.store.CreateImportJob(c.Request.Context(), &job); err != nil {
		h.logger.Error("Failed to create import job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create import job",
		})
		return
	}

	msg := dispatch.JobMessage{
		JobID:      jobID,
		StorageKey: storageKey,
		UploaderID: uploaderID,
	}
	if err := h.dispatcher.DispatchCSVJob(c.Request.Context(), msg); err != nil {
		// The pending row stays behind; the sweeper can re-dispatch it later
		h.logger.Error("Failed to dispatch import job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to dispatch import job",
		})
		return
	}

	h.logger.Info("Import job staged",
		slog.String("job_id", jobID),
		slog.String("file_name", fileHeader.Filename),
		slog.Int("size", len(data)),
		slog.Int64("uploader_id", uploaderID),
	)

	c.JSON(http.StatusCreated, dto.UploadResponse{
		JobID:  jobID,
		Status: domain.JobStatusPending,
	})
}

// GetImportJob handles GET /api/v1/imports/:job_id
func (h *ImportHandler) GetImportJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.store.GetImportJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrImportJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "import job not found",
			})
			return
		}
		h.logger.Error("Failed to get import job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to get import job",
		})
		return
	}

	c.JSON(http.StatusOK, dto.FromModel(job))
}

// ListImportJobs handles GET /api/v1/imports
// Returns the uploader's most recent jobs, newest first.
func (h *ImportHandler) ListImportJobs(c *gin.Context) {
	uploaderID := identity.UploaderID(c)

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	jobs, err := h.store.ListImportJobsByUploader(c.Request.Context(), uploaderID, limit)
	if err != nil {
		h.logger.Error("Failed to list import jobs",
			slog.Int64("uploader_id", uploaderID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to list import jobs",
		})
		return
	}

	out := make([]dto.ImportJobDTO, len(jobs))
	for i := range jobs {
		out[i] = dto.FromModel(&jobs[i])
	}

	c.JSON(http.StatusOK, dto.ListImportJobsResponse{Jobs: out})
}
