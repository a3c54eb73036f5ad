package handlers

import (
	"path"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"talentbase/hiring-pipeline/internal/models"
	"talentbase/hiring-pipeline/internal/pipeline"
	"talentbase/hiring-pipeline/internal/repositories"
	"talentbase/hiring-pipeline/internal/storage"
)

// InterviewHandler serves the employer surface for individual applicants:
// interview progression, pipeline recovery and resume download.
type InterviewHandler struct {
	stages     pipeline.StageManager
	controller pipeline.Controller
	jobs       repositories.JobRepository
	applicants repositories.ApplicantRepository
	store      storage.ObjectStore
	log        *zap.SugaredLogger
}

func NewInterviewHandler(
	stages pipeline.StageManager,
	controller pipeline.Controller,
	jobs repositories.JobRepository,
	applicants repositories.ApplicantRepository,
	store storage.ObjectStore,
	log *zap.SugaredLogger,
) *InterviewHandler {
	return &InterviewHandler{
		stages:     stages,
		controller: controller,
		jobs:       jobs,
		applicants: applicants,
		store:      store,
		log:        log,
	}
}

// HandleAdvanceStage handles POST /employer/applicants/:id/advance-stage
func (h *InterviewHandler) HandleAdvanceStage(c *fiber.Ctx) error {
	owner, err := employerID(c)
	if err != nil {
		return err
	}
	applicantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid applicant ID format")
	}

	applicant, err := h.stages.AdvanceStage(c.Context(), applicantID, owner)
	if err != nil {
		return err
	}
	return c.JSON(applicant)
}

// HandleSetInterviewStatus handles PUT /employer/applicants/:id/interview-status
func (h *InterviewHandler) HandleSetInterviewStatus(c *fiber.Ctx) error {
	owner, err := employerID(c)
	if err != nil {
		return err
	}
	applicantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid applicant ID format")
	}

	var req models.InterviewStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request payload")
	}

	applicant, err := h.stages.SetInterviewStatus(c.Context(), applicantID, owner, &req)
	if err != nil {
		return err
	}
	return c.JSON(applicant)
}

// HandleRequeue handles POST /employer/applicants/:id/requeue, the manual
// recovery path for failed or stuck applicants.
func (h *InterviewHandler) HandleRequeue(c *fiber.Ctx) error {
	owner, err := employerID(c)
	if err != nil {
		return err
	}
	applicantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid applicant ID format")
	}

	if err := h.controller.Requeue(c.Context(), applicantID, owner); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": string(models.AIStatusPending)})
}

// HandleGetResume handles GET /employer/applicants/:id/resume
func (h *InterviewHandler) HandleGetResume(c *fiber.Ctx) error {
	owner, err := employerID(c)
	if err != nil {
		return err
	}
	applicantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid applicant ID format")
	}

	applicant, err := h.applicants.FindByID(applicantID)
	if err != nil {
		return err
	}
	job, err := h.jobs.FindByID(applicant.JobID)
	if err != nil {
		return err
	}
	if job.CreatedByID != owner {
		return models.ErrNotAuthorized
	}

	stream, size, err := h.store.Get(c.Context(), applicant.Resume)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, storage.ContentTypeForKey(applicant.Resume))
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+path.Base(applicant.Resume)+`"`)
	return c.SendStream(stream, int(size))
}
