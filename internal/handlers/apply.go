package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"talentbase/hiring-pipeline/internal/models"
	"talentbase/hiring-pipeline/internal/pipeline"
	"talentbase/hiring-pipeline/internal/repositories"
	"talentbase/hiring-pipeline/internal/storage"
)

// PublicHandler serves the candidate-facing surface: job listings and
// application submission.
type PublicHandler struct {
	jobs        repositories.JobRepository
	controller  pipeline.Controller
	store       storage.ObjectStore
	maxFileSize int64
	log         *zap.SugaredLogger
}

func NewPublicHandler(
	jobs repositories.JobRepository,
	controller pipeline.Controller,
	store storage.ObjectStore,
	maxFileSize int64,
	log *zap.SugaredLogger,
) *PublicHandler {
	return &PublicHandler{
		jobs:        jobs,
		controller:  controller,
		store:       store,
		maxFileSize: maxFileSize,
		log:         log,
	}
}

// HandleListJobs handles GET /jobs
func (h *PublicHandler) HandleListJobs(c *fiber.Ctx) error {
	jobs, err := h.jobs.ListOpen()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"jobs": jobs})
}

// HandleGetJob handles GET /jobs/:id
func (h *PublicHandler) HandleGetJob(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job ID format")
	}

	job, err := h.jobs.FindOpenByID(jobID)
	if err != nil {
		// Closed jobs are simply not visible on the public surface.
		if errors.Is(err, models.ErrJobClosed) {
			return fiber.NewError(fiber.StatusNotFound, "job not found")
		}
		return err
	}
	return c.JSON(job)
}

// HandleApply handles POST /jobs/:id/apply (multipart: resume, name, email).
// The resume is uploaded first; if the application is then rejected, the
// uploaded object is removed again.
func (h *PublicHandler) HandleApply(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job ID format")
	}

	name := c.FormValue("name")
	email := c.FormValue("email")

	file, err := c.FormFile("resume")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "resume file is required")
	}
	if file.Size > h.maxFileSize {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("resume too large, max size is %d bytes", h.maxFileSize))
	}
	if !storage.AllowedResumeExt(file.Filename) {
		return fiber.NewError(fiber.StatusBadRequest,
			"invalid file type, only PDF, DOC, DOCX and TXT files are allowed")
	}

	key := storage.ResumeKey(file.Filename, name)

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	contentType := file.Header.Get(fiber.HeaderContentType)
	if contentType == "" {
		contentType = storage.ContentTypeForKey(key)
	}
	if err := h.store.Put(c.Context(), key, src, file.Size, contentType); err != nil {
		return err
	}

	applicant, err := h.controller.Apply(c.Context(), jobID, name, email, key)
	if err != nil {
		// Don't orphan the upload when the application is rejected.
		if rmErr := h.store.Remove(c.Context(), key); rmErr != nil {
			h.log.Warnw("failed to clean up rejected resume upload", "key", key, "error", rmErr)
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(models.ApplyResponse{
		ID:       applicant.ID.String(),
		StatusAI: string(applicant.StatusAI),
		Resume:   applicant.Resume,
	})
}
