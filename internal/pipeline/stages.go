package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"talentbase/hiring-pipeline/internal/models"
	"talentbase/hiring-pipeline/internal/repositories"
)

// StageManager handles interview progression for a job's applicants and keeps
// the job's hires counter in step with interview statuses.
type StageManager interface {
	// AdvanceStage moves the applicant to the next interview stage and marks
	// the interview scheduled. Hired and rejected applicants are terminal
	// and cannot re-enter the interview loop.
	AdvanceStage(ctx context.Context, applicantID uuid.UUID, employerID string) (*models.Applicant, error)

	// SetInterviewStatus writes the new status plus optional stage and notes.
	// A transition into hired increments the job's hires counter, a
	// transition out of hired decrements it, both in the same transaction as
	// the status write.
	SetInterviewStatus(ctx context.Context, applicantID uuid.UUID, employerID string, req *models.InterviewStatusRequest) (*models.Applicant, error)
}

type stageManager struct {
	db         *gorm.DB
	jobs       repositories.JobRepository
	applicants repositories.ApplicantRepository
	log        *zap.SugaredLogger
}

func NewStageManager(
	db *gorm.DB,
	jobs repositories.JobRepository,
	applicants repositories.ApplicantRepository,
	log *zap.SugaredLogger,
) StageManager {
	return &stageManager{
		db:         db,
		jobs:       jobs,
		applicants: applicants,
		log:        log,
	}
}

func (m *stageManager) AdvanceStage(ctx context.Context, applicantID uuid.UUID, employerID string) (*models.Applicant, error) {
	var updated *models.Applicant
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		applicants := m.applicants.WithTx(tx)

		applicant, err := applicants.FindByID(applicantID)
		if err != nil {
			return err
		}
		if err := m.checkOwnership(tx, applicant.JobID, employerID); err != nil {
			return err
		}

		ok, err := applicants.AdvanceStage(applicantID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("applicant %s interview status %q is terminal: %w",
				applicantID, applicant.InterviewStatus, models.ErrConflict)
		}

		updated, err = applicants.FindByID(applicantID)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.log.Infow("interview stage advanced",
		"applicant_id", applicantID, "stage", updated.CurrentStage)
	return updated, nil
}

func (m *stageManager) SetInterviewStatus(ctx context.Context, applicantID uuid.UUID, employerID string, req *models.InterviewStatusRequest) (*models.Applicant, error) {
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid interview status %q", models.ErrValidation, req.Status)
	}
	if req.Stage != nil && *req.Stage < 0 {
		return nil, fmt.Errorf("%w: stage must not be negative", models.ErrValidation)
	}

	var updated *models.Applicant
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		applicants := m.applicants.WithTx(tx)

		applicant, err := applicants.FindByID(applicantID)
		if err != nil {
			return err
		}
		if err := m.checkOwnership(tx, applicant.JobID, employerID); err != nil {
			return err
		}

		prev := applicant.InterviewStatus

		// The conditional write pins the transition to the status we just
		// read; a concurrent writer makes it miss and the whole transaction
		// rolls back, counter untouched.
		ok, err := applicants.CompareAndSwapInterview(applicantID, prev, req.Status, req.Stage, req.Notes)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("applicant %s interview status changed concurrently: %w",
				applicantID, models.ErrConflict)
		}

		// Only transitions across the hired boundary touch the counter.
		delta := 0
		if req.Status == models.InterviewHired && prev != models.InterviewHired {
			delta = 1
		} else if prev == models.InterviewHired && req.Status != models.InterviewHired {
			delta = -1
		}
		if delta != 0 {
			if err := m.jobs.WithTx(tx).AdjustHires(applicant.JobID, delta); err != nil {
				return err
			}
		}

		updated, err = applicants.FindByID(applicantID)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.log.Infow("interview status updated",
		"applicant_id", applicantID, "status", req.Status)
	return updated, nil
}

func (m *stageManager) checkOwnership(tx *gorm.DB, jobID uuid.UUID, employerID string) error {
	job, err := m.jobs.WithTx(tx).FindByID(jobID)
	if err != nil {
		return err
	}
	if job.CreatedByID != employerID {
		return fmt.Errorf("job %s: %w", jobID, models.ErrNotAuthorized)
	}
	return nil
}
