package models

import (
	"time"

	"github.com/google/uuid"
)

// AIStatus tracks an applicant through the evaluation pipeline:
// pending -> parsing -> processing -> completed, with failed reachable from
// any non-terminal state via an explicit worker report.
type AIStatus string

const (
	AIStatusPending    AIStatus = "pending"
	AIStatusParsing    AIStatus = "parsing"
	AIStatusProcessing AIStatus = "processing"
	AIStatusCompleted  AIStatus = "completed"
	AIStatusFailed     AIStatus = "failed"
)

func (s AIStatus) Valid() bool {
	switch s {
	case AIStatusPending, AIStatusParsing, AIStatusProcessing, AIStatusCompleted, AIStatusFailed:
		return true
	}
	return false
}

// ReadyForScoring reports whether a scoring request may be accepted. Parsed
// data exists once the applicant reached processing, so processing and
// completed are scorable; pending, parsing and failed are not.
func (s AIStatus) ReadyForScoring() bool {
	return s == AIStatusProcessing || s == AIStatusCompleted
}

type InterviewStatus string

const (
	InterviewPending   InterviewStatus = "pending"
	InterviewScheduled InterviewStatus = "scheduled"
	InterviewPassed    InterviewStatus = "passed"
	InterviewFailed    InterviewStatus = "failed"
	InterviewHired     InterviewStatus = "hired"
	InterviewRejected  InterviewStatus = "rejected"
)

func (s InterviewStatus) Valid() bool {
	switch s {
	case InterviewPending, InterviewScheduled, InterviewPassed,
		InterviewFailed, InterviewHired, InterviewRejected:
		return true
	}
	return false
}

type MatchType string

const (
	MatchExplicit MatchType = "explicit"
	MatchImplied  MatchType = "implied"
	MatchMissing  MatchType = "missing"
)

func (m MatchType) Valid() bool {
	return m == MatchExplicit || m == MatchImplied || m == MatchMissing
}

type Applicant struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applicants_job_email" json:"job_id"`
	Name  string    `gorm:"type:text;not null" json:"name"`
	Email string    `gorm:"type:text;not null;uniqueIndex:idx_applicants_job_email" json:"email"`

	// Resume is the opaque object-store key; the pipeline only stores and
	// forwards it.
	Resume string `gorm:"type:text;not null" json:"resume"`

	StatusAI        AIStatus        `gorm:"type:text;not null" json:"status_ai"`
	InterviewStatus InterviewStatus `gorm:"type:text;not null" json:"interview_status"`
	CurrentStage    int             `json:"current_stage"`
	InterviewNotes  *string         `gorm:"type:text" json:"interview_notes,omitempty"`

	SkillsScoreAI     float64 `json:"skills_score_ai"`
	ExperienceScoreAI float64 `json:"experience_score_ai"`
	EducationScoreAI  float64 `json:"education_score_ai"`
	TimezoneScoreAI   float64 `json:"timezone_score_ai"`
	OverallScoreAI    float64 `json:"overall_score_ai"`

	SkillsFeedbackAI     *string `gorm:"type:text" json:"skills_feedback_ai,omitempty"`
	ExperienceFeedbackAI *string `gorm:"type:text" json:"experience_feedback_ai,omitempty"`
	EducationFeedbackAI  *string `gorm:"type:text" json:"education_feedback_ai,omitempty"`
	TimezoneFeedbackAI   *string `gorm:"type:text" json:"timezone_feedback_ai,omitempty"`

	// Parsed resume fields, absent until the worker reports parsed data.
	ParsedEducationDegree   *string  `gorm:"type:text" json:"parsed_education_degree,omitempty"`
	ParsedEducationField    *string  `gorm:"type:text" json:"parsed_education_field,omitempty"`
	ParsedTimezone          *string  `gorm:"type:text" json:"parsed_timezone,omitempty"`
	ParsedSkills            *string  `gorm:"type:text" json:"parsed_skills,omitempty"`
	ParsedYearsOfExperience *float64 `json:"parsed_years_of_experience,omitempty"`

	ExpectedSalary *float64 `json:"expected_salary,omitempty"`

	// AIError holds the worker's last failure report; cleared on re-queue.
	AIError *string `gorm:"type:text" json:"ai_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Experiences   []Experience   `gorm:"foreignKey:ApplicantID;constraint:OnDelete:CASCADE" json:"experiences,omitempty"`
	MatchedSkills []MatchedSkill `gorm:"foreignKey:ApplicantID;constraint:OnDelete:CASCADE" json:"matched_skills,omitempty"`
}

func (Applicant) TableName() string {
	return "applicants"
}

// Experience is one employment entry parsed from a resume. The worker always
// resubmits the full list, which replaces whatever is stored.
type Experience struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicantID uuid.UUID `gorm:"type:uuid;not null;index" json:"applicant_id"`
	JobTitle    string    `gorm:"type:text;not null" json:"job_title"`
	StartMonth  int       `json:"start_month"`
	StartYear   int       `json:"start_year"`
	EndMonth    *int      `json:"end_month,omitempty"`
	EndYear     *int      `json:"end_year,omitempty"`
	IsRelevant  bool      `json:"is_relevant"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Experience) TableName() string {
	return "experiences"
}

// MatchedSkill records how one job-required skill matched against the
// applicant's resume. Replaced wholesale on each AI update, like Experience.
type MatchedSkill struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicantID   uuid.UUID `gorm:"type:uuid;not null;index" json:"applicant_id"`
	RequiredSkill string    `gorm:"type:text;not null" json:"required_skill"`
	MatchType     MatchType `gorm:"type:text;not null" json:"match_type"`
	MatchedSkill  *string   `gorm:"type:text" json:"matched_skill,omitempty"`
	Score         float64   `json:"score"`
	Reason        string    `gorm:"type:text" json:"reason"`
	CreatedAt     time.Time `json:"created_at"`
}

func (MatchedSkill) TableName() string {
	return "matched_skills"
}
