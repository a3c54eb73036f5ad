package pipeline

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"talentbase/hiring-pipeline/internal/models"
	"talentbase/hiring-pipeline/internal/queue"
	"talentbase/hiring-pipeline/internal/repositories"
)

// Controller drives an application from submission through parsing and
// scoring. All coordination happens through the store's transactional
// guarantees; there is no in-process shared mutable state.
type Controller interface {
	// Apply creates the applicant (AI status pending) and enqueues the
	// process-resume work item in the same transaction.
	Apply(ctx context.Context, jobID uuid.UUID, name, email, resumeKey string) (*models.Applicant, error)

	// ReportStatus handles the worker's report-status callback: parsing
	// (from pending only) or failed (from any non-terminal state).
	ReportStatus(ctx context.Context, applicantID uuid.UUID, report *models.StatusReport) error

	// ReportParsed writes the parsed applicant fields and replaces the
	// experience list in one transaction, moving the status to processing.
	ReportParsed(ctx context.Context, applicantID uuid.UUID, data *models.ParsedData) error

	// ReportMatchedSkills replaces the applicant's matched-skill set.
	ReportMatchedSkills(ctx context.Context, applicantID uuid.UUID, skills []models.MatchedSkillInput) error

	// ReportScores persists all five scores plus feedback and marks the
	// applicant completed. Only accepted once parsing has occurred (status
	// processing or completed); a stale report against a pending or failed
	// applicant conflicts.
	ReportScores(ctx context.Context, applicantID uuid.UUID, report *models.ScoreReport) error

	// QueueScoring accepts a scoring request only once parsing has occurred
	// (status processing or completed), sets the status to processing and
	// enqueues the score-applicant work item, all in one transaction.
	QueueScoring(ctx context.Context, applicantID uuid.UUID) error

	// Requeue is the manual recovery path: reset to pending and re-enqueue
	// resume processing with the original resume key.
	Requeue(ctx context.Context, applicantID uuid.UUID, employerID string) error

	// RescoreJob enqueues scoring work for every applicant of the job,
	// regardless of AI status. Returns the number of items queued.
	RescoreJob(ctx context.Context, jobID uuid.UUID, employerID string) (int, error)
}

type controller struct {
	db         *gorm.DB
	jobs       repositories.JobRepository
	applicants repositories.ApplicantRepository
	queue      queue.Enqueuer
	log        *zap.SugaredLogger
}

func NewController(
	db *gorm.DB,
	jobs repositories.JobRepository,
	applicants repositories.ApplicantRepository,
	q queue.Enqueuer,
	log *zap.SugaredLogger,
) Controller {
	return &controller{
		db:         db,
		jobs:       jobs,
		applicants: applicants,
		queue:      q,
		log:        log,
	}
}

func (c *controller) Apply(ctx context.Context, jobID uuid.UUID, name, email, resumeKey string) (*models.Applicant, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 255 {
		return nil, fmt.Errorf("%w: name is required", models.ErrValidation)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || len(email) > 255 {
		return nil, fmt.Errorf("%w: valid email is required", models.ErrValidation)
	}
	if resumeKey == "" {
		return nil, fmt.Errorf("%w: resume is required", models.ErrValidation)
	}

	applicant := &models.Applicant{
		ID:              uuid.New(),
		JobID:           jobID,
		Name:            name,
		Email:           email,
		Resume:          resumeKey,
		StatusAI:        models.AIStatusPending,
		InterviewStatus: models.InterviewPending,
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := c.jobs.WithTx(tx).FindOpenByID(jobID); err != nil {
			return err
		}
		if err := c.applicants.WithTx(tx).Create(applicant); err != nil {
			return err
		}
		// Enqueued inside the transaction: a failed enqueue rolls the record
		// back, so an applicant can never sit at pending with no queued work.
		return c.queue.Enqueue(ctx, tx, queue.KindProcessResume, queue.ProcessResumePayload{
			ApplicantID: applicant.ID,
			ResumeKey:   resumeKey,
		})
	})
	if err != nil {
		return nil, err
	}

	c.log.Infow("application received",
		"applicant_id", applicant.ID, "job_id", jobID, "email", email)
	return applicant, nil
}

func (c *controller) ReportStatus(ctx context.Context, applicantID uuid.UUID, report *models.StatusReport) error {
	switch report.Status {
	case models.AIStatusParsing:
		ok, err := c.applicants.CompareAndSwapStatusAI(applicantID,
			[]models.AIStatus{models.AIStatusPending}, models.AIStatusParsing)
		if err != nil {
			return err
		}
		if !ok {
			return c.conflictOrNotFound(applicantID, "cannot start parsing")
		}
	case models.AIStatusFailed:
		msg := "processing failed"
		if report.Error != nil && *report.Error != "" {
			msg = *report.Error
		}
		ok, err := c.applicants.MarkFailed(applicantID, msg)
		if err != nil {
			return err
		}
		if !ok {
			return c.conflictOrNotFound(applicantID, "cannot fail a terminal applicant")
		}
		c.log.Warnw("applicant processing failed", "applicant_id", applicantID, "error", msg)
	default:
		return fmt.Errorf("%w: reportable statuses are parsing and failed, got %q",
			models.ErrValidation, report.Status)
	}
	return nil
}

func (c *controller) ReportParsed(ctx context.Context, applicantID uuid.UUID, data *models.ParsedData) error {
	for _, exp := range data.Experiences {
		if strings.TrimSpace(exp.JobTitle) == "" {
			return fmt.Errorf("%w: experience job_title is required", models.ErrValidation)
		}
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		applicants := c.applicants.WithTx(tx)

		// Completed and failed applicants don't accept stale parse reports.
		ok, err := applicants.CompareAndSwapStatusAI(applicantID, []models.AIStatus{
			models.AIStatusPending, models.AIStatusParsing, models.AIStatusProcessing,
		}, models.AIStatusProcessing)
		if err != nil {
			return err
		}
		if !ok {
			return c.conflictOrNotFound(applicantID, "parsed data not accepted in current state")
		}

		if err := applicants.UpdateParsedFields(applicantID, data); err != nil {
			return err
		}

		entries := make([]models.Experience, 0, len(data.Experiences))
		for _, in := range data.Experiences {
			entries = append(entries, models.Experience{
				JobTitle:   in.JobTitle,
				StartMonth: in.StartMonth,
				StartYear:  in.StartYear,
				EndMonth:   in.EndMonth,
				EndYear:    in.EndYear,
				IsRelevant: in.IsRelevant,
			})
		}
		return applicants.ReplaceExperiences(applicantID, entries)
	})
	if err != nil {
		return err
	}

	c.log.Infow("parsed data stored",
		"applicant_id", applicantID, "experiences", len(data.Experiences))
	return nil
}

func (c *controller) ReportMatchedSkills(ctx context.Context, applicantID uuid.UUID, skills []models.MatchedSkillInput) error {
	for _, s := range skills {
		if !s.MatchType.Valid() {
			return fmt.Errorf("%w: invalid match type %q", models.ErrValidation, s.MatchType)
		}
	}

	if _, err := c.applicants.FindByID(applicantID); err != nil {
		return err
	}

	rows := make([]models.MatchedSkill, 0, len(skills))
	for _, in := range skills {
		rows = append(rows, models.MatchedSkill{
			RequiredSkill: in.RequiredSkill,
			MatchType:     in.MatchType,
			MatchedSkill:  in.MatchedSkill,
			Score:         in.Score,
			Reason:        in.Reason,
		})
	}
	return c.applicants.ReplaceMatchedSkills(applicantID, rows)
}

func (c *controller) ReportScores(ctx context.Context, applicantID uuid.UUID, report *models.ScoreReport) error {
	for name, score := range map[string]float64{
		"skills_score":     report.SkillsScore,
		"experience_score": report.ExperienceScore,
		"education_score":  report.EducationScore,
		"timezone_score":   report.TimezoneScore,
		"overall_score":    report.OverallScore,
	} {
		if score < 0 {
			return fmt.Errorf("%w: %s must not be negative", models.ErrValidation, name)
		}
	}

	ok, err := c.applicants.UpdateScores(applicantID, report)
	if err != nil {
		return err
	}
	if !ok {
		return c.conflictOrNotFound(applicantID, "scores not accepted in current state")
	}

	c.log.Infow("scores stored",
		"applicant_id", applicantID, "overall", report.OverallScore)
	return nil
}

func (c *controller) QueueScoring(ctx context.Context, applicantID uuid.UUID) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		applicants := c.applicants.WithTx(tx)

		applicant, err := applicants.FindByIDFull(applicantID)
		if err != nil {
			return err
		}
		if !applicant.StatusAI.ReadyForScoring() {
			return fmt.Errorf("applicant %s in status %q: %w",
				applicantID, applicant.StatusAI, models.ErrNotReadyForScoring)
		}

		// Conditional write: a concurrent failure report between the read
		// above and this update makes the swap miss and rolls everything back.
		ok, err := applicants.CompareAndSwapStatusAI(applicantID, []models.AIStatus{
			models.AIStatusProcessing, models.AIStatusCompleted,
		}, models.AIStatusProcessing)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("applicant %s: %w", applicantID, models.ErrNotReadyForScoring)
		}
		applicant.StatusAI = models.AIStatusProcessing

		job, err := c.jobs.WithTx(tx).FindByID(applicant.JobID)
		if err != nil {
			return err
		}

		return c.queue.Enqueue(ctx, tx, queue.KindScoreApplicant, queue.ScoreApplicantPayload{
			ApplicantID: applicant.ID,
			Applicant:   *applicant,
			Job:         *job,
		})
	})
}

func (c *controller) Requeue(ctx context.Context, applicantID uuid.UUID, employerID string) error {
	applicant, err := c.applicants.FindByID(applicantID)
	if err != nil {
		return err
	}
	if err := c.checkOwnership(applicant.JobID, employerID); err != nil {
		return err
	}

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := c.applicants.WithTx(tx).ResetToPending(applicantID); err != nil {
			return err
		}
		return c.queue.Enqueue(ctx, tx, queue.KindProcessResume, queue.ProcessResumePayload{
			ApplicantID: applicantID,
			ResumeKey:   applicant.Resume,
		})
	})
	if err != nil {
		return err
	}

	c.log.Infow("applicant re-queued", "applicant_id", applicantID)
	return nil
}

func (c *controller) RescoreJob(ctx context.Context, jobID uuid.UUID, employerID string) (int, error) {
	if err := c.checkOwnership(jobID, employerID); err != nil {
		return 0, err
	}

	var queued int
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := c.jobs.WithTx(tx).FindByID(jobID)
		if err != nil {
			return err
		}
		applicants, err := c.applicants.WithTx(tx).ListByJob(jobID)
		if err != nil {
			return err
		}
		for i := range applicants {
			err := c.queue.Enqueue(ctx, tx, queue.KindScoreApplicant, queue.ScoreApplicantPayload{
				ApplicantID: applicants[i].ID,
				Applicant:   applicants[i],
				Job:         *job,
			})
			if err != nil {
				return err
			}
		}
		queued = len(applicants)
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.log.Infow("job re-score queued", "job_id", jobID, "applicants", queued)
	return queued, nil
}

func (c *controller) checkOwnership(jobID uuid.UUID, employerID string) error {
	job, err := c.jobs.FindByID(jobID)
	if err != nil {
		return err
	}
	if job.CreatedByID != employerID {
		return fmt.Errorf("job %s: %w", jobID, models.ErrNotAuthorized)
	}
	return nil
}

// conflictOrNotFound distinguishes a missing applicant from a conditional
// write that missed because of the applicant's current state.
func (c *controller) conflictOrNotFound(applicantID uuid.UUID, reason string) error {
	if _, err := c.applicants.FindByID(applicantID); err != nil {
		return err
	}
	return fmt.Errorf("%s (applicant %s): %w", reason, applicantID, models.ErrConflict)
}
