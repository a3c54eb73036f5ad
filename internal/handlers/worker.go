package handlers

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"talentbase/hiring-pipeline/internal/models"
	"talentbase/hiring-pipeline/internal/pipeline"
	"talentbase/hiring-pipeline/internal/queue"
)

// RequireWorkerKey authenticates the AI worker's callback surface with the
// shared service credential.
func RequireWorkerKey(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return fiber.NewError(fiber.StatusServiceUnavailable, "worker callbacks are not configured")
		}
		token := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid worker credentials")
		}
		return c.Next()
	}
}

// WorkerHandler serves the external AI worker: work-item delivery plus the
// callbacks for each pipeline transition.
type WorkerHandler struct {
	controller pipeline.Controller
	consumer   queue.Consumer
	log        *zap.SugaredLogger
}

func NewWorkerHandler(
	controller pipeline.Controller,
	consumer queue.Consumer,
	log *zap.SugaredLogger,
) *WorkerHandler {
	return &WorkerHandler{
		controller: controller,
		consumer:   consumer,
		log:        log,
	}
}

// HandleLeaseTasks handles GET /worker/tasks. Delivery is at-least-once: an
// item not completed within the visibility timeout is handed out again.
func (h *WorkerHandler) HandleLeaseTasks(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	items, err := h.consumer.Lease(c.Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tasks": items})
}

// HandleCompleteTask handles POST /worker/tasks/:id/complete
func (h *WorkerHandler) HandleCompleteTask(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid task ID format")
	}
	if err := h.consumer.Complete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleReportStatus handles POST /worker/applicants/:id/status
func (h *WorkerHandler) HandleReportStatus(c *fiber.Ctx) error {
	applicantID, err := parseApplicantID(c)
	if err != nil {
		return err
	}
	var report models.StatusReport
	if err := c.BodyParser(&report); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request payload")
	}
	if err := h.controller.ReportStatus(c.Context(), applicantID, &report); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleReportParsed handles POST /worker/applicants/:id/parsed
func (h *WorkerHandler) HandleReportParsed(c *fiber.Ctx) error {
	applicantID, err := parseApplicantID(c)
	if err != nil {
		return err
	}
	var data models.ParsedData
	if err := c.BodyParser(&data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request payload")
	}
	if err := h.controller.ReportParsed(c.Context(), applicantID, &data); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleReportMatchedSkills handles POST /worker/applicants/:id/matched-skills
func (h *WorkerHandler) HandleReportMatchedSkills(c *fiber.Ctx) error {
	applicantID, err := parseApplicantID(c)
	if err != nil {
		return err
	}
	var report models.MatchedSkillsReport
	if err := c.BodyParser(&report); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request payload")
	}
	if err := h.controller.ReportMatchedSkills(c.Context(), applicantID, report.Skills); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleReportScores handles POST /worker/applicants/:id/scores
func (h *WorkerHandler) HandleReportScores(c *fiber.Ctx) error {
	applicantID, err := parseApplicantID(c)
	if err != nil {
		return err
	}
	var report models.ScoreReport
	if err := c.BodyParser(&report); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request payload")
	}
	if err := h.controller.ReportScores(c.Context(), applicantID, &report); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleQueueScoring handles POST /worker/applicants/:id/queue-scoring. The
// worker requests scoring once parsing is done; the status guard rejects
// applicants that were never parsed.
func (h *WorkerHandler) HandleQueueScoring(c *fiber.Ctx) error {
	applicantID, err := parseApplicantID(c)
	if err != nil {
		return err
	}
	if err := h.controller.QueueScoring(c.Context(), applicantID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": string(models.AIStatusProcessing)})
}

func parseApplicantID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid applicant ID format")
	}
	return id, nil
}
