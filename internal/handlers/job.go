package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"talentbase/hiring-pipeline/internal/models"
	"talentbase/hiring-pipeline/internal/pipeline"
	"talentbase/hiring-pipeline/internal/repositories"
)

// JobHandler serves the employer surface for job postings.
type JobHandler struct {
	jobs       repositories.JobRepository
	controller pipeline.Controller
	log        *zap.SugaredLogger
}

func NewJobHandler(
	jobs repositories.JobRepository,
	controller pipeline.Controller,
	log *zap.SugaredLogger,
) *JobHandler {
	return &JobHandler{
		jobs:       jobs,
		controller: controller,
		log:        log,
	}
}

// HandleCreateJob handles POST /employer/jobs
func (h *JobHandler) HandleCreateJob(c *fiber.Ctx) error {
	owner, err := employerID(c)
	if err != nil {
		return err
	}

	var req models.JobRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request payload")
	}

	job := jobFromRequest(&req)
	job.ID = uuid.New()
	job.CreatedByID = owner
	job.IsOpen = true
	if req.IsOpen != nil {
		job.IsOpen = *req.IsOpen
	}

	if err := job.Validate(); err != nil {
		return err
	}
	if err := h.jobs.Create(job); err != nil {
		return err
	}

	h.log.Infow("job created", "job_id", job.ID, "title", job.Title)
	return c.Status(fiber.StatusCreated).JSON(job)
}

// HandleUpdateJob handles PUT /employer/jobs/:id
func (h *JobHandler) HandleUpdateJob(c *fiber.Ctx) error {
	owner, err := employerID(c)
	if err != nil {
		return err
	}
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job ID format")
	}

	var req models.JobRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request payload")
	}

	existing, err := h.jobs.FindByID(jobID)
	if err != nil {
		return err
	}
	if existing.CreatedByID != owner {
		return models.ErrNotAuthorized
	}

	updated := jobFromRequest(&req)
	updated.ID = existing.ID
	updated.CreatedByID = existing.CreatedByID
	updated.Hires = existing.Hires
	updated.CreatedAt = existing.CreatedAt
	updated.IsOpen = existing.IsOpen
	if req.IsOpen != nil {
		updated.IsOpen = *req.IsOpen
	}

	if err := updated.Validate(); err != nil {
		return err
	}
	if err := h.jobs.Update(updated); err != nil {
		return err
	}

	return c.JSON(updated)
}

// HandleListJobs handles GET /employer/jobs
func (h *JobHandler) HandleListJobs(c *fiber.Ctx) error {
	owner, err := employerID(c)
	if err != nil {
		return err
	}
	jobs, err := h.jobs.ListByOwner(owner)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"jobs": jobs})
}

// HandleGetJob handles GET /employer/jobs/:id; the applicants come back
// sorted by overall score descending.
func (h *JobHandler) HandleGetJob(c *fiber.Ctx) error {
	owner, err := employerID(c)
	if err != nil {
		return err
	}
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job ID format")
	}

	job, err := h.jobs.FindByIDWithApplicants(jobID)
	if err != nil {
		return err
	}
	if job.CreatedByID != owner {
		return models.ErrNotAuthorized
	}
	return c.JSON(job)
}

// HandleRescore handles POST /employer/jobs/:id/rescore
func (h *JobHandler) HandleRescore(c *fiber.Ctx) error {
	owner, err := employerID(c)
	if err != nil {
		return err
	}
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job ID format")
	}

	queued, err := h.controller.RescoreJob(c.Context(), jobID, owner)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"queued": queued})
}

func jobFromRequest(req *models.JobRequest) *models.Job {
	return &models.Job{
		Title:             req.Title,
		Description:       req.Description,
		Skills:            req.Skills,
		YearsOfExperience: req.YearsOfExperience,
		EducationDegree:   req.EducationDegree,
		EducationField:    req.EducationField,
		Timezone:          req.Timezone,
		SkillsWeight:      req.SkillsWeight,
		ExperienceWeight:  req.ExperienceWeight,
		EducationWeight:   req.EducationWeight,
		TimezoneWeight:    req.TimezoneWeight,
		InterviewsNeeded:  req.InterviewsNeeded,
		HiresNeeded:       req.HiresNeeded,
		EmploymentType:    req.EmploymentType,
		WorkplaceType:     req.WorkplaceType,
		Location:          req.Location,
		Benefits:          req.Benefits,
		SalaryType:        req.SalaryType,
		FixedSalary:       req.FixedSalary,
		SalaryRangeMin:    req.SalaryRangeMin,
		SalaryRangeMax:    req.SalaryRangeMax,
		SalaryCurrency:    req.SalaryCurrency,
	}
}
