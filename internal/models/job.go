package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WeightSumTolerance is the allowed floating-point drift when checking that
// the four evaluation weights sum to 1.0.
const WeightSumTolerance = 0.01

type SalaryType string

const (
	SalaryFixed SalaryType = "FIXED"
	SalaryRange SalaryType = "RANGE"
)

type Job struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`

	// Required skills, comma-delimited for display. Use SkillList for the
	// de-duplicated set.
	Skills            string  `gorm:"type:text" json:"skills"`
	YearsOfExperience int     `json:"years_of_experience"`
	EducationDegree   string  `gorm:"type:text" json:"education_degree"`
	EducationField    *string `gorm:"type:text" json:"education_field,omitempty"`
	Timezone          string  `gorm:"type:text" json:"timezone"`

	SkillsWeight     float64 `json:"skills_weight"`
	ExperienceWeight float64 `json:"experience_weight"`
	EducationWeight  float64 `json:"education_weight"`
	TimezoneWeight   float64 `json:"timezone_weight"`

	InterviewsNeeded int  `json:"interviews_needed"`
	HiresNeeded      int  `json:"hires_needed"`
	IsOpen           bool `json:"is_open"`

	// Hires is maintained incrementally in the same transaction as every
	// interview-status write; it must always equal the number of this job's
	// applicants whose interview status is "hired".
	Hires int `json:"hires"`

	EmploymentType string  `gorm:"type:text" json:"employment_type"`
	WorkplaceType  string  `gorm:"type:text" json:"workplace_type"`
	Location       string  `gorm:"type:text" json:"location"`
	Benefits       *string `gorm:"type:text" json:"benefits,omitempty"`

	SalaryType     *SalaryType `gorm:"type:text" json:"salary_type,omitempty"`
	FixedSalary    *float64    `json:"fixed_salary,omitempty"`
	SalaryRangeMin *float64    `json:"salary_range_min,omitempty"`
	SalaryRangeMax *float64    `json:"salary_range_max,omitempty"`
	SalaryCurrency string      `gorm:"type:text" json:"salary_currency"`

	CreatedByID string    `gorm:"type:text;not null;index" json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Applicants []Applicant `gorm:"foreignKey:JobID" json:"applicants,omitempty"`
}

func (Job) TableName() string {
	return "jobs"
}

// SkillList splits the delimited skills string into a trimmed, de-duplicated
// list, preserving first-seen order.
func (j *Job) SkillList() []string {
	seen := make(map[string]struct{})
	var skills []string
	for _, raw := range strings.Split(j.Skills, ",") {
		skill := strings.TrimSpace(raw)
		if skill == "" {
			continue
		}
		key := strings.ToLower(skill)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		skills = append(skills, skill)
	}
	return skills
}

// Validate checks the posting before any write. The weight-sum rule is the
// controller's only numeric responsibility: each weight in [0,1] and the four
// summing to 1.0 within WeightSumTolerance.
func (j *Job) Validate() error {
	if strings.TrimSpace(j.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(j.Skills) == "" {
		return fmt.Errorf("%w: skills are required", ErrValidation)
	}
	if j.YearsOfExperience < 0 || j.YearsOfExperience > 50 {
		return fmt.Errorf("%w: years_of_experience must be between 0 and 50", ErrValidation)
	}
	if j.InterviewsNeeded < 1 || j.InterviewsNeeded > 10 {
		return fmt.Errorf("%w: interviews_needed must be between 1 and 10", ErrValidation)
	}
	if j.HiresNeeded < 1 || j.HiresNeeded > 50 {
		return fmt.Errorf("%w: hires_needed must be between 1 and 50", ErrValidation)
	}

	for name, w := range map[string]float64{
		"skills_weight":     j.SkillsWeight,
		"experience_weight": j.ExperienceWeight,
		"education_weight":  j.EducationWeight,
		"timezone_weight":   j.TimezoneWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1", ErrValidation, name)
		}
	}
	sum := j.SkillsWeight + j.ExperienceWeight + j.EducationWeight + j.TimezoneWeight
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("%w: evaluation weights must sum to 1.0, got %.3f", ErrValidation, sum)
	}

	return j.validateSalary()
}

func (j *Job) validateSalary() error {
	if j.SalaryType == nil {
		return nil
	}
	switch *j.SalaryType {
	case SalaryFixed:
		if j.FixedSalary == nil || *j.FixedSalary <= 0 {
			return fmt.Errorf("%w: fixed salary is required when salary type is FIXED", ErrValidation)
		}
	case SalaryRange:
		if j.SalaryRangeMin == nil || j.SalaryRangeMax == nil ||
			*j.SalaryRangeMin <= 0 || *j.SalaryRangeMax <= 0 {
			return fmt.Errorf("%w: salary range minimum and maximum are required when salary type is RANGE", ErrValidation)
		}
		if *j.SalaryRangeMax <= *j.SalaryRangeMin {
			return fmt.Errorf("%w: salary range maximum must be greater than minimum", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: invalid salary type %q", ErrValidation, *j.SalaryType)
	}
	return nil
}
