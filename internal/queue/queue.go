package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"talentbase/hiring-pipeline/internal/models"
)

type Kind string

const (
	KindProcessResume  Kind = "process-resume"
	KindScoreApplicant Kind = "score-applicant"
)

// ProcessResumePayload asks the AI worker to parse one applicant's resume.
type ProcessResumePayload struct {
	ApplicantID uuid.UUID `json:"applicant_id"`
	ResumeKey   string    `json:"resume_key"`
}

// ScoreApplicantPayload carries full record snapshots: the worker is
// stateless with respect to the store.
type ScoreApplicantPayload struct {
	ApplicantID uuid.UUID        `json:"applicant_id"`
	Applicant   models.Applicant `json:"applicant"`
	Job         models.Job       `json:"job"`
}

// WorkItem is one durable queue entry. Delivery is at-least-once: a leased
// item whose lease expires becomes leasable again.
type WorkItem struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Kind      Kind       `gorm:"type:text;not null;index" json:"kind"`
	Payload   []byte     `gorm:"not null" json:"payload"`
	Attempts  int        `json:"attempts"`
	LeasedAt  *time.Time `json:"leased_at,omitempty"`
	DoneAt    *time.Time `json:"done_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (WorkItem) TableName() string {
	return "work_items"
}

// Enqueuer is the pipeline's side of the queue. Enqueue writes into the
// caller's transaction when tx is non-nil, so a record write and its queued
// work commit or roll back as one unit.
type Enqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, kind Kind, payload any) error
}

// Consumer is the delivery side used by the external AI worker.
type Consumer interface {
	Lease(ctx context.Context, limit int) ([]WorkItem, error)
	Complete(ctx context.Context, id uuid.UUID) error
}

type Queue interface {
	Enqueuer
	Consumer
}
