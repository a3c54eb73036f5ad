package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"talentbase/hiring-pipeline/internal/models"
)

type ApplicantRepository interface {
	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *gorm.DB) ApplicantRepository

	// Create fails with ErrDuplicateApplication when an applicant with the
	// same (job, email) pair already exists.
	Create(applicant *models.Applicant) error
	FindByID(id uuid.UUID) (*models.Applicant, error)
	// FindByIDFull preloads experiences and matched skills.
	FindByIDFull(id uuid.UUID) (*models.Applicant, error)
	// ListByJob returns a job's applicants ordered by overall score
	// descending, with sub-records preloaded.
	ListByJob(jobID uuid.UUID) ([]models.Applicant, error)

	// ReplaceExperiences and ReplaceMatchedSkills swap the full set of
	// sub-records in one transaction: delete by parent, bulk insert. A crash
	// mid-replacement never leaves a mix of old and new rows.
	ReplaceExperiences(applicantID uuid.UUID, entries []models.Experience) error
	ReplaceMatchedSkills(applicantID uuid.UUID, skills []models.MatchedSkill) error

	// UpdateParsedFields overwrites all parsed columns from the report; a nil
	// field clears its column. Also moves the AI status to processing.
	UpdateParsedFields(id uuid.UUID, data *models.ParsedData) error
	// UpdateScores writes all five scores plus feedback and marks the AI
	// status completed. Only accepted while the applicant is processing or
	// completed; returns false when the conditional write missed.
	UpdateScores(id uuid.UUID, report *models.ScoreReport) (bool, error)

	// CompareAndSwapStatusAI sets the AI status to next only when the current
	// status is in from. Returns false when the conditional write missed.
	CompareAndSwapStatusAI(id uuid.UUID, from []models.AIStatus, next models.AIStatus) (bool, error)
	// MarkFailed records a worker failure report; only non-terminal statuses
	// can fail.
	MarkFailed(id uuid.UUID, message string) (bool, error)
	// ResetToPending is the manual re-queue path: back to pending with the
	// failure message cleared.
	ResetToPending(id uuid.UUID) error

	// AdvanceStage bumps the interview stage and schedules the interview.
	// Hired and rejected are terminal; returns false when the applicant is in
	// either.
	AdvanceStage(id uuid.UUID) (bool, error)
	// CompareAndSwapInterview writes the new interview status (and optional
	// stage and notes) only when the current status still equals prev.
	CompareAndSwapInterview(id uuid.UUID, prev, next models.InterviewStatus, stage *int, notes *string) (bool, error)
}

type applicantRepository struct {
	db *gorm.DB
}

func NewApplicantRepository(db *gorm.DB) ApplicantRepository {
	return &applicantRepository{db: db}
}

func (r *applicantRepository) WithTx(tx *gorm.DB) ApplicantRepository {
	return &applicantRepository{db: tx}
}

func (r *applicantRepository) Create(applicant *models.Applicant) error {
	// The composite unique index is the real guard; this check just produces
	// a friendlier error on the common path.
	var count int64
	err := r.db.Model(&models.Applicant{}).
		Where("job_id = ? AND email = ?", applicant.JobID, applicant.Email).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check existing application: %w", err)
	}
	if count > 0 {
		return models.ErrDuplicateApplication
	}

	if err := r.db.Create(applicant).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ErrDuplicateApplication
		}
		return fmt.Errorf("failed to create applicant: %w", err)
	}
	return nil
}

func (r *applicantRepository) FindByID(id uuid.UUID) (*models.Applicant, error) {
	var applicant models.Applicant
	if err := r.db.Where("id = ?", id).First(&applicant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("applicant %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find applicant: %w", err)
	}
	return &applicant, nil
}

func (r *applicantRepository) FindByIDFull(id uuid.UUID) (*models.Applicant, error) {
	var applicant models.Applicant
	err := r.db.
		Preload("Experiences").
		Preload("MatchedSkills").
		Where("id = ?", id).
		First(&applicant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("applicant %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find applicant: %w", err)
	}
	return &applicant, nil
}

func (r *applicantRepository) ListByJob(jobID uuid.UUID) ([]models.Applicant, error) {
	var applicants []models.Applicant
	err := r.db.
		Preload("Experiences").
		Preload("MatchedSkills").
		Where("job_id = ?", jobID).
		Order("overall_score_ai DESC").
		Find(&applicants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list applicants: %w", err)
	}
	return applicants, nil
}

func (r *applicantRepository) ReplaceExperiences(applicantID uuid.UUID, entries []models.Experience) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("applicant_id = ?", applicantID).Delete(&models.Experience{}).Error; err != nil {
			return fmt.Errorf("failed to clear experiences: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}
		for i := range entries {
			if entries[i].ID == uuid.Nil {
				entries[i].ID = uuid.New()
			}
			entries[i].ApplicantID = applicantID
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("failed to insert experiences: %w", err)
		}
		return nil
	})
}

func (r *applicantRepository) ReplaceMatchedSkills(applicantID uuid.UUID, skills []models.MatchedSkill) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("applicant_id = ?", applicantID).Delete(&models.MatchedSkill{}).Error; err != nil {
			return fmt.Errorf("failed to clear matched skills: %w", err)
		}
		if len(skills) == 0 {
			return nil
		}
		for i := range skills {
			if skills[i].ID == uuid.Nil {
				skills[i].ID = uuid.New()
			}
			skills[i].ApplicantID = applicantID
		}
		if err := tx.Create(&skills).Error; err != nil {
			return fmt.Errorf("failed to insert matched skills: %w", err)
		}
		return nil
	})
}

func (r *applicantRepository) UpdateParsedFields(id uuid.UUID, data *models.ParsedData) error {
	updates := map[string]interface{}{
		"parsed_education_degree":    data.EducationDegree,
		"parsed_education_field":     data.EducationField,
		"parsed_timezone":            data.Timezone,
		"parsed_skills":              data.Skills,
		"parsed_years_of_experience": data.YearsOfExperience,
		"status_ai":                  models.AIStatusProcessing,
		"updated_at":                 time.Now(),
	}

	result := r.db.Model(&models.Applicant{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update parsed fields: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("applicant %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *applicantRepository) UpdateScores(id uuid.UUID, report *models.ScoreReport) (bool, error) {
	updates := map[string]interface{}{
		"skills_score_ai":        report.SkillsScore,
		"experience_score_ai":    report.ExperienceScore,
		"education_score_ai":     report.EducationScore,
		"timezone_score_ai":      report.TimezoneScore,
		"overall_score_ai":       report.OverallScore,
		"skills_feedback_ai":     report.SkillsFeedback,
		"experience_feedback_ai": report.ExperienceFeedback,
		"education_feedback_ai":  report.EducationFeedback,
		"timezone_feedback_ai":   report.TimezoneFeedback,
		"status_ai":              models.AIStatusCompleted,
		"updated_at":             time.Now(),
	}
	if report.YearsOfExperience != nil {
		updates["parsed_years_of_experience"] = report.YearsOfExperience
	}

	// A score report can only land on a parsed applicant: a stale report
	// must not resurrect a failed one or complete a never-parsed one.
	scorable := []models.AIStatus{models.AIStatusProcessing, models.AIStatusCompleted}
	result := r.db.Model(&models.Applicant{}).
		Where("id = ? AND status_ai IN ?", id, scorable).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update scores: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *applicantRepository) CompareAndSwapStatusAI(id uuid.UUID, from []models.AIStatus, next models.AIStatus) (bool, error) {
	result := r.db.Model(&models.Applicant{}).
		Where("id = ? AND status_ai IN ?", id, from).
		Updates(map[string]interface{}{
			"status_ai":  next,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update AI status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *applicantRepository) MarkFailed(id uuid.UUID, message string) (bool, error) {
	nonTerminal := []models.AIStatus{
		models.AIStatusPending,
		models.AIStatusParsing,
		models.AIStatusProcessing,
	}
	result := r.db.Model(&models.Applicant{}).
		Where("id = ? AND status_ai IN ?", id, nonTerminal).
		Updates(map[string]interface{}{
			"status_ai":  models.AIStatusFailed,
			"ai_error":   message,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark applicant failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *applicantRepository) ResetToPending(id uuid.UUID) error {
	result := r.db.Model(&models.Applicant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status_ai":  models.AIStatusPending,
			"ai_error":   nil,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to reset applicant: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("applicant %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *applicantRepository) AdvanceStage(id uuid.UUID) (bool, error) {
	terminal := []models.InterviewStatus{models.InterviewHired, models.InterviewRejected}
	result := r.db.Model(&models.Applicant{}).
		Where("id = ? AND interview_status NOT IN ?", id, terminal).
		Updates(map[string]interface{}{
			"current_stage":    gorm.Expr("current_stage + 1"),
			"interview_status": models.InterviewScheduled,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to advance stage: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *applicantRepository) CompareAndSwapInterview(id uuid.UUID, prev, next models.InterviewStatus, stage *int, notes *string) (bool, error) {
	updates := map[string]interface{}{
		"interview_status": next,
		"updated_at":       time.Now(),
	}
	if stage != nil {
		updates["current_stage"] = *stage
	}
	if notes != nil {
		updates["interview_notes"] = *notes
	}

	result := r.db.Model(&models.Applicant{}).
		Where("id = ? AND interview_status = ?", id, prev).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update interview status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
