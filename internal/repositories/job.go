package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"talentbase/hiring-pipeline/internal/models"
)

type JobRepository interface {
	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *gorm.DB) JobRepository

	Create(job *models.Job) error
	Update(job *models.Job) error
	FindByID(id uuid.UUID) (*models.Job, error)
	// FindOpenByID fails with ErrJobClosed when the job exists but is not
	// accepting applications.
	FindOpenByID(id uuid.UUID) (*models.Job, error)
	// FindByIDWithApplicants preloads applicants ordered by overall score
	// descending, with their experiences and matched skills.
	FindByIDWithApplicants(id uuid.UUID) (*models.Job, error)
	ListByOwner(ownerID string) ([]models.Job, error)
	ListOpen() ([]models.Job, error)
	// AdjustHires applies `hires = hires + delta` as a single expression
	// update so concurrent hire decisions on one job cannot lose updates.
	AdjustHires(id uuid.UUID, delta int) error
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) WithTx(tx *gorm.DB) JobRepository {
	return &jobRepository{db: tx}
}

func (r *jobRepository) Create(job *models.Job) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *jobRepository) Update(job *models.Job) error {
	if err := r.db.Save(job).Error; err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

func (r *jobRepository) FindByID(id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return &job, nil
}

func (r *jobRepository) FindOpenByID(id uuid.UUID) (*models.Job, error) {
	job, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !job.IsOpen {
		return nil, fmt.Errorf("job %s: %w", id, models.ErrJobClosed)
	}
	return job, nil
}

func (r *jobRepository) FindByIDWithApplicants(id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.
		Preload("Applicants", func(db *gorm.DB) *gorm.DB {
			return db.Order("overall_score_ai DESC")
		}).
		Preload("Applicants.Experiences").
		Preload("Applicants.MatchedSkills").
		Where("id = ?", id).
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return &job, nil
}

func (r *jobRepository) ListByOwner(ownerID string) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.
		Where("created_by_id = ?", ownerID).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func (r *jobRepository) ListOpen() ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.
		Where("is_open = ?", true).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open jobs: %w", err)
	}
	return jobs, nil
}

func (r *jobRepository) AdjustHires(id uuid.UUID, delta int) error {
	result := r.db.Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"hires":      gorm.Expr("hires + ?", delta),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to adjust hires: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job %s: %w", id, models.ErrNotFound)
	}
	return nil
}
