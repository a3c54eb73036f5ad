package models

// Request/response shapes for the HTTP surfaces.

type JobRequest struct {
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	Skills            string  `json:"skills"`
	YearsOfExperience int     `json:"years_of_experience"`
	EducationDegree   string  `json:"education_degree"`
	EducationField    *string `json:"education_field,omitempty"`
	Timezone          string  `json:"timezone"`

	SkillsWeight     float64 `json:"skills_weight"`
	ExperienceWeight float64 `json:"experience_weight"`
	EducationWeight  float64 `json:"education_weight"`
	TimezoneWeight   float64 `json:"timezone_weight"`

	InterviewsNeeded int   `json:"interviews_needed"`
	HiresNeeded      int   `json:"hires_needed"`
	IsOpen           *bool `json:"is_open,omitempty"`

	EmploymentType string  `json:"employment_type"`
	WorkplaceType  string  `json:"workplace_type"`
	Location       string  `json:"location"`
	Benefits       *string `json:"benefits,omitempty"`

	SalaryType     *SalaryType `json:"salary_type,omitempty"`
	FixedSalary    *float64    `json:"fixed_salary,omitempty"`
	SalaryRangeMin *float64    `json:"salary_range_min,omitempty"`
	SalaryRangeMax *float64    `json:"salary_range_max,omitempty"`
	SalaryCurrency string      `json:"salary_currency"`
}

type ApplyResponse struct {
	ID       string `json:"id"`
	StatusAI string `json:"status_ai"`
	Resume   string `json:"resume"`
}

// StatusReport is the worker's report-status callback body.
type StatusReport struct {
	Status AIStatus `json:"status"`
	Error  *string  `json:"error,omitempty"`
}

type ExperienceInput struct {
	JobTitle   string `json:"job_title"`
	StartMonth int    `json:"start_month"`
	StartYear  int    `json:"start_year"`
	EndMonth   *int   `json:"end_month,omitempty"`
	EndYear    *int   `json:"end_year,omitempty"`
	IsRelevant bool   `json:"is_relevant"`
}

// ParsedData is the worker's report-parsed-data callback body: the parsed
// applicant fields plus the full experience list, applied as one overwrite.
type ParsedData struct {
	EducationDegree   *string           `json:"education_degree,omitempty"`
	EducationField    *string           `json:"education_field,omitempty"`
	Timezone          *string           `json:"timezone,omitempty"`
	Skills            *string           `json:"skills,omitempty"`
	YearsOfExperience *float64          `json:"years_of_experience,omitempty"`
	Experiences       []ExperienceInput `json:"experiences"`
}

type MatchedSkillInput struct {
	RequiredSkill string    `json:"required_skill"`
	MatchType     MatchType `json:"match_type"`
	MatchedSkill  *string   `json:"matched_skill,omitempty"`
	Score         float64   `json:"score"`
	Reason        string    `json:"reason"`
}

// MatchedSkillsReport is the worker's report-matched-skills callback body;
// the set replaces whatever is stored.
type MatchedSkillsReport struct {
	Skills []MatchedSkillInput `json:"skills"`
}

// ScoreReport is the worker's report-scores callback body. All five scores
// are written together; feedback and years are optional overwrites.
type ScoreReport struct {
	SkillsScore     float64 `json:"skills_score"`
	ExperienceScore float64 `json:"experience_score"`
	EducationScore  float64 `json:"education_score"`
	TimezoneScore   float64 `json:"timezone_score"`
	OverallScore    float64 `json:"overall_score"`

	SkillsFeedback     *string `json:"skills_feedback,omitempty"`
	ExperienceFeedback *string `json:"experience_feedback,omitempty"`
	EducationFeedback  *string `json:"education_feedback,omitempty"`
	TimezoneFeedback   *string `json:"timezone_feedback,omitempty"`

	YearsOfExperience *float64 `json:"years_of_experience,omitempty"`
}

type InterviewStatusRequest struct {
	Status InterviewStatus `json:"status"`
	Stage  *int            `json:"stage,omitempty"`
	Notes  *string         `json:"notes,omitempty"`
}
