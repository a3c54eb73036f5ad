package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"talentbase/hiring-pipeline/internal/models"
	"talentbase/hiring-pipeline/internal/queue"
	"talentbase/hiring-pipeline/internal/repositories"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.ToSlash(filepath.Join(t.TempDir(), "pipeline.db")) +
		"?_txlock=immediate&_pragma=busy_timeout(10000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Job{},
		&models.Applicant{},
		&models.Experience{},
		&models.MatchedSkill{},
		&queue.WorkItem{},
	))
	return db
}

func newController(t *testing.T, db *gorm.DB) Controller {
	t.Helper()
	return NewController(
		db,
		repositories.NewJobRepository(db),
		repositories.NewApplicantRepository(db),
		queue.NewGormQueue(db, 0, zap.NewNop().Sugar()),
		zap.NewNop().Sugar(),
	)
}

func seedJob(t *testing.T, db *gorm.DB, owner string, open bool) *models.Job {
	t.Helper()
	job := &models.Job{
		ID:                uuid.New(),
		Title:             "Backend Engineer",
		Skills:            "Go, PostgreSQL, Docker",
		YearsOfExperience: 3,
		EducationDegree:   "Bachelor",
		Timezone:          "GMT+1",
		SkillsWeight:      0.4,
		ExperienceWeight:  0.3,
		EducationWeight:   0.2,
		TimezoneWeight:    0.1,
		InterviewsNeeded:  2,
		HiresNeeded:       2,
		IsOpen:            open,
		CreatedByID:       owner,
	}
	require.NoError(t, repositories.NewJobRepository(db).Create(job))
	return job
}

func workItems(t *testing.T, db *gorm.DB, kind queue.Kind) []queue.WorkItem {
	t.Helper()
	var items []queue.WorkItem
	require.NoError(t, db.Where("kind = ?", kind).Order("created_at ASC").Find(&items).Error)
	return items
}

func getApplicant(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Applicant {
	t.Helper()
	applicant, err := repositories.NewApplicantRepository(db).FindByIDFull(id)
	require.NoError(t, err)
	return applicant
}

// failingEnqueuer simulates a queue outage.
type failingEnqueuer struct{}

func (failingEnqueuer) Enqueue(context.Context, *gorm.DB, queue.Kind, any) error {
	return assert.AnError
}

func TestApplyCreatesPendingApplicantAndQueuesWork(t *testing.T) {
	db := newTestDB(t)
	job := seedJob(t, db, "employer-1", true)
	ctl := newController(t, db)

	applicant, err := ctl.Apply(context.Background(), job.ID, "Jane Doe", "Jane@Example.com", "resumes/2026/jane-doe-1.pdf")
	require.NoError(t, err)

	assert.Equal(t, models.AIStatusPending, applicant.StatusAI)
	assert.Equal(t, models.InterviewPending, applicant.InterviewStatus)
	assert.Equal(t, 0, applicant.CurrentStage)
	assert.Equal(t, "jane@example.com", applicant.Email)

	items := workItems(t, db, queue.KindProcessResume)
	require.Len(t, items, 1)

	var payload queue.ProcessResumePayload
	require.NoError(t, json.Unmarshal(items[0].Payload, &payload))
	assert.Equal(t, applicant.ID, payload.ApplicantID)
	assert.Equal(t, "resumes/2026/jane-doe-1.pdf", payload.ResumeKey)
}

func TestApplyRejectsClosedJobAndDuplicates(t *testing.T) {
	db := newTestDB(t)
	ctl := newController(t, db)

	closed := seedJob(t, db, "employer-1", false)
	_, err := ctl.Apply(context.Background(), closed.ID, "Jane", "jane@example.com", "resumes/2026/jane-1.pdf")
	assert.ErrorIs(t, err, models.ErrJobClosed)

	_, err = ctl.Apply(context.Background(), uuid.New(), "Jane", "jane@example.com", "resumes/2026/jane-1.pdf")
	assert.ErrorIs(t, err, models.ErrNotFound)

	open := seedJob(t, db, "employer-1", true)
	_, err = ctl.Apply(context.Background(), open.ID, "Jane", "jane@example.com", "resumes/2026/jane-1.pdf")
	require.NoError(t, err)
	_, err = ctl.Apply(context.Background(), open.ID, "Jane Again", "jane@example.com", "resumes/2026/jane-2.pdf")
	assert.ErrorIs(t, err, models.ErrDuplicateApplication)

	assert.Len(t, workItems(t, db, queue.KindProcessResume), 1,
		"rejected applications must not queue work")
}

func TestApplyValidatesInput(t *testing.T) {
	db := newTestDB(t)
	job := seedJob(t, db, "employer-1", true)
	ctl := newController(t, db)

	_, err := ctl.Apply(context.Background(), job.ID, "", "jane@example.com", "resumes/x.pdf")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = ctl.Apply(context.Background(), job.ID, "Jane", "not-an-email", "resumes/x.pdf")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = ctl.Apply(context.Background(), job.ID, "Jane", "jane@example.com", "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestApplyRollsBackRecordWhenEnqueueFails(t *testing.T) {
	db := newTestDB(t)
	job := seedJob(t, db, "employer-1", true)
	ctl := NewController(
		db,
		repositories.NewJobRepository(db),
		repositories.NewApplicantRepository(db),
		failingEnqueuer{},
		zap.NewNop().Sugar(),
	)

	_, err := ctl.Apply(context.Background(), job.ID, "Jane", "jane@example.com", "resumes/2026/jane-1.pdf")
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Applicant{}).Count(&count).Error)
	assert.Zero(t, count, "an applicant must never exist without its queued work")
}

func TestReportStatusTransitions(t *testing.T) {
	db := newTestDB(t)
	job := seedJob(t, db, "employer-1", true)
	ctl := newController(t, db)
	ctx := context.Background()

	applicant, err := ctl.Apply(ctx, job.ID, "Jane", "jane@example.com", "resumes/2026/jane-1.pdf")
	require.NoError(t, err)

	// pending -> parsing
	require.NoError(t, ctl.ReportStatus(ctx, applicant.ID, &models.StatusReport{Status: models.AIStatusParsing}))
	assert.Equal(t, models.AIStatusParsing, getApplicant(t, db, applicant.ID).StatusAI)

	// parsing again is a stale retry
	err = ctl.ReportStatus(ctx, applicant.ID, &models.StatusReport{Status: models.AIStatusParsing})
	assert.ErrorIs(t, err, models.ErrConflict)

	// parsing -> failed, with the message recorded
	msg := "resume unreadable"
	require.NoError(t, ctl.ReportStatus(ctx, applicant.ID, &models.StatusReport{Status: models.AIStatusFailed, Error: &msg}))
	stored := getApplicant(t, db, applicant.ID)
	assert.Equal(t, models.AIStatusFailed, stored.StatusAI)
	require.NotNil(t, stored.AIError)
	assert.Equal(t, msg, *stored.AIError)

	// only parsing and failed are reportable
	err = ctl.ReportStatus(ctx, applicant.ID, &models.StatusReport{Status: models.AIStatusCompleted})
	assert.ErrorIs(t, err, models.ErrValidation)

	err = ctl.ReportStatus(ctx, uuid.New(), &models.StatusReport{Status: models.AIStatusParsing})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func parsedFixture(n int) *models.ParsedData {
	degree := "Bachelor"
	field := "Computer Science"
	tz := "GMT+1"
	skills := "Go, Docker"
	years := 4.5
	data := &models.ParsedData{
		EducationDegree:   &degree,
		EducationField:    &field,
		Timezone:          &tz,
		Skills:            &skills,
		YearsOfExperience: &years,
	}
	for i := 0; i < n; i++ {
		data.Experiences = append(data.Experiences, models.ExperienceInput{
			JobTitle:   "Engineer",
			StartMonth: 1 + i,
			StartYear:  2018 + i,
			IsRelevant: i%2 == 0,
		})
	}
	return data
}

func TestReportParsedStoresFieldsAndReplacesExperiences(t *testing.T) {
	db := newTestDB(t)
	job := seedJob(t, db, "employer-1", true)
	ctl := newController(t, db)
	ctx := context.Background()

	applicant, err := ctl.Apply(ctx, job.ID, "Jane", "jane@example.com", "resumes/2026/jane-1.pdf")
	require.NoError(t, err)

	require.NoError(t, ctl.ReportParsed(ctx, applicant.ID, parsedFixture(3)))

	stored := getApplicant(t, db, applicant.ID)
	assert.Equal(t, models.AIStatusProcessing, stored.StatusAI)
	require.NotNil(t, stored.ParsedEducationDegree)
	assert.Equal(t, "Bachelor", *stored.ParsedEducationDegree)
	require.NotNil(t, stored.ParsedYearsOfExperience)
	assert.InDelta(t, 4.5, *stored.ParsedYearsOfExperience, 1e-9)
	assert.Len(t, stored.Experiences, 3)

	// Resubmission with M entries leaves exactly M rows.
	require.NoError(t, ctl.ReportParsed(ctx, applicant.ID, parsedFixture(5)))
	assert.Len(t, getApplicant(t, db, applicant.ID).Experiences, 5)

	require.NoError(t, ctl.ReportParsed(ctx, applicant.ID, parsedFixture(2)))
	assert.Len(t, getApplicant(t, db, applicant.ID).Experiences, 2)
}

func TestReportParsedRejectedAfterCompletion(t *testing.T) {
	db := newTestDB(t)
	job := seedJob(t, db, "employer-1", true)
	ctl := newController(t, db)
	ctx := context.Background()

	applicant, err := ctl.Apply(ctx, job.ID, "Jane", "jane@example.com", "resumes/2026/jane-1.pdf")
	require.NoError(t, err)
	require.NoError(t, ctl.ReportParsed(ctx, applicant.ID, parsedFixture(2)))
	require.NoError(t, ctl.ReportScores(ctx, applicant.ID, &models.ScoreReport{OverallScore: 70}))

	err = ctl.ReportParsed(ctx, applicant.ID, parsedFixture(1))
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Len(t, getApplicant(t, db, applicant.ID).Experiences, 2, "stale parse must not touch sub-records")
}

func TestQueueScoringGuard(t *testing.T) {
	db := newTestDB(t)
	job := seedJob(t, db, "employer-1", true)
	ctl := newController(t, db)
	ctx := context.Background()

	applicant, err := ctl.Apply(ctx, job.ID, "Jane", "jane@example.com", "resumes/2026/jane-1.pdf")
	require.NoError(t, err)

	// Never parsed: not scorable.
	err = ctl.QueueScoring(ctx, applicant.ID)
	assert.ErrorIs(t, err, models.ErrNotReadyForScoring)
	assert.Empty(t, workItems(t, db, queue.KindScoreApplicant))

	require.NoError(t, ctl.ReportParsed(ctx, applicant.ID, parsedFixture(2)))

	// Processing: scorable, stays processing.
	require.NoError(t, ctl.QueueScoring(ctx, applicant.ID))
	assert.Equal(t, models.AIStatusProcessing, getApplicant(t, db, applicant.ID).StatusAI)

	items := workItems(t, db, queue.KindScoreApplicant)
	require.Len(t, items, 1)

	var payload queue.ScoreApplicantPayload
	require.NoError(t, json.Unmarshal(items[0].Payload, &payload))
	assert.Equal(t, applicant.ID, payload.ApplicantID)
	assert.Equal(t, job.ID, payload.Job.ID)
	assert.Len(t, payload.Applicant.Experiences, 2, "the worker gets a full snapshot")

	// Completed: scorable again, back to processing.
	require.NoError(t, ctl.ReportScores(ctx, applicant.ID, &models.ScoreReport{OverallScore: 50}))
	require.NoError(t, ctl.QueueScoring(ctx, applicant.ID))
	assert.Equal(t, models.AIStatusProcessing, getApplicant(t, db, applicant.ID).StatusAI)

	err = ctl.QueueScoring(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReportScoresPersistsExactly(t *testing.T) {
	db := newTestDB(t)
	job := seedJob(t, db, "employer-1", true)
	ctl := newController(t, db)
	ctx := context.Background()

	applicant, err := ctl.Apply(ctx, job.ID, "Jane", "jane@example.com", "resumes/2026/jane-1.pdf")
	require.NoError(t, err)
	require.NoError(t, ctl.ReportParsed(ctx, applicant.ID, parsedFixture(1)))

	feedback := "strong Go background"
	require.NoError(t, ctl.ReportScores(ctx, applicant.ID, &models.ScoreReport{
		SkillsScore:     80,
		ExperienceScore: 90,
		EducationScore:  70,
		TimezoneScore:   95,
		OverallScore:    84,
		SkillsFeedback:  &feedback,
	}))

	stored := getApplicant(t, db, applicant.ID)
	assert.Equal(t, models.AIStatusCompleted, stored.StatusAI)
	assert.Equal(t, 80.0, stored.SkillsScoreAI)
	assert.Equal(t, 90.0, stored.ExperienceScoreAI)
	assert.Equal(t, 70.0, stored.EducationScoreAI)
	assert.Equal(t, 95.0, stored.TimezoneScoreAI)
	assert.Equal(t, 84.0, stored.OverallScoreAI)
	require.NotNil(t, stored.SkillsFeedbackAI)
	assert.Equal(t, feedback, *stored.SkillsFeedbackAI)

	err = ctl.ReportScores(ctx, applicant.ID, &models.ScoreReport{SkillsScore: -1})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestReportScoresRejectedBeforeParsingAndAfterFailure(t *testing.T) {
	db := newTestDB(t)
	job := seedJob(t, db, "employer-1", true)
	ctl := newController(t, db)
	ctx := context.Background()

	applicant, err := ctl.Apply(ctx, job.ID, "Jane", "jane@example.com", "resumes/2026/jane-1.pdf")
	require.NoError(t, err)

	// Never parsed: a score report cannot complete the applicant.
	err = ctl.ReportScores(ctx, applicant.ID, &models.ScoreReport{OverallScore: 84})
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Equal(t, models.AIStatusPending, getApplicant(t, db, applicant.ID).StatusAI)

	// Failed stays failed until re-queued; a stray score report must not
	// resurrect it.
	msg := "resume unreadable"
	require.NoError(t, ctl.ReportStatus(ctx, applicant.ID, &models.StatusReport{Status: models.AIStatusFailed, Error: &msg}))

	err = ctl.ReportScores(ctx, applicant.ID, &models.ScoreReport{OverallScore: 84})
	assert.ErrorIs(t, err, models.ErrConflict)

	stored := getApplicant(t, db, applicant.ID)
	assert.Equal(t, models.AIStatusFailed, stored.StatusAI)
	assert.Zero(t, stored.OverallScoreAI)

	err = ctl.ReportScores(ctx, uuid.New(), &models.ScoreReport{OverallScore: 84})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReportMatchedSkillsReplacesSet(t *testing.T) {
	db := newTestDB(t)
	job := seedJob(t, db, "employer-1", true)
	ctl := newController(t, db)
	ctx := context.Background()

	applicant, err := ctl.Apply(ctx, job.ID, "Jane", "jane@example.com", "resumes/2026/jane-1.pdf")
	require.NoError(t, err)

	err = ctl.ReportMatchedSkills(ctx, applicant.ID, []models.MatchedSkillInput{
		{RequiredSkill: "Go", MatchType: "sort-of"},
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	require.NoError(t, ctl.ReportMatchedSkills(ctx, applicant.ID, []models.MatchedSkillInput{
		{RequiredSkill: "Go", MatchType: models.MatchExplicit, Score: 1, Reason: "listed"},
		{RequiredSkill: "Docker", MatchType: models.MatchMissing, Reason: "not found"},
	}))
	require.NoError(t, ctl.ReportMatchedSkills(ctx, applicant.ID, []models.MatchedSkillInput{
		{RequiredSkill: "Go", MatchType: models.MatchExplicit, Score: 1, Reason: "listed"},
	}))

	assert.Len(t, getApplicant(t, db, applicant.ID).MatchedSkills, 1)
}

func TestRequeueRecoversFailedApplicant(t *testing.T) {
	db := newTestDB(t)
	job := seedJob(t, db, "employer-1", true)
	ctl := newController(t, db)
	ctx := context.Background()

	applicant, err := ctl.Apply(ctx, job.ID, "Jane", "jane@example.com", "resumes/2026/jane-1.pdf")
	require.NoError(t, err)

	msg := "worker crashed"
	require.NoError(t, ctl.ReportStatus(ctx, applicant.ID, &models.StatusReport{Status: models.AIStatusFailed, Error: &msg}))

	err = ctl.Requeue(ctx, applicant.ID, "someone-else")
	assert.ErrorIs(t, err, models.ErrNotAuthorized)

	require.NoError(t, ctl.Requeue(ctx, applicant.ID, "employer-1"))

	stored := getApplicant(t, db, applicant.ID)
	assert.Equal(t, models.AIStatusPending, stored.StatusAI)
	assert.Nil(t, stored.AIError)

	items := workItems(t, db, queue.KindProcessResume)
	require.Len(t, items, 2, "apply plus requeue")

	var payload queue.ProcessResumePayload
	require.NoError(t, json.Unmarshal(items[1].Payload, &payload))
	assert.Equal(t, "resumes/2026/jane-1.pdf", payload.ResumeKey, "requeue reuses the original resume key")
}

func TestRescoreJobQueuesEveryApplicant(t *testing.T) {
	db := newTestDB(t)
	job := seedJob(t, db, "employer-1", true)
	ctl := newController(t, db)
	ctx := context.Background()

	first, err := ctl.Apply(ctx, job.ID, "Jane", "jane@example.com", "resumes/2026/jane-1.pdf")
	require.NoError(t, err)
	require.NoError(t, ctl.ReportParsed(ctx, first.ID, parsedFixture(1)))

	// Second applicant is still pending; rescore queues it anyway.
	second, err := ctl.Apply(ctx, job.ID, "Bob", "bob@example.com", "resumes/2026/bob-1.pdf")
	require.NoError(t, err)

	_, err = ctl.RescoreJob(ctx, job.ID, "someone-else")
	assert.ErrorIs(t, err, models.ErrNotAuthorized)

	queued, err := ctl.RescoreJob(ctx, job.ID, "employer-1")
	require.NoError(t, err)
	assert.Equal(t, 2, queued)
	assert.Len(t, workItems(t, db, queue.KindScoreApplicant), 2)

	// Re-scoring does not reset AI statuses.
	assert.Equal(t, models.AIStatusProcessing, getApplicant(t, db, first.ID).StatusAI)
	assert.Equal(t, models.AIStatusPending, getApplicant(t, db, second.ID).StatusAI)
}

func TestEvaluationEndToEnd(t *testing.T) {
	db := newTestDB(t)
	job := seedJob(t, db, "employer-1", true)
	ctl := newController(t, db)
	ctx := context.Background()

	// Application lands pending with one queued resume job.
	applicant, err := ctl.Apply(ctx, job.ID, "Jane Doe", "jane@example.com", "resumes/2026/jane-doe-1.pdf")
	require.NoError(t, err)
	assert.Equal(t, models.AIStatusPending, applicant.StatusAI)
	require.Len(t, workItems(t, db, queue.KindProcessResume), 1)

	// Worker reports parsed data: processing, sub-records populated.
	require.NoError(t, ctl.ReportParsed(ctx, applicant.ID, parsedFixture(2)))
	require.NoError(t, ctl.ReportMatchedSkills(ctx, applicant.ID, []models.MatchedSkillInput{
		{RequiredSkill: "Go", MatchType: models.MatchExplicit, Score: 1, Reason: "listed"},
	}))
	stored := getApplicant(t, db, applicant.ID)
	assert.Equal(t, models.AIStatusProcessing, stored.StatusAI)
	assert.Len(t, stored.Experiences, 2)
	assert.Len(t, stored.MatchedSkills, 1)

	// Scoring request: status stays processing, scoring work queued.
	require.NoError(t, ctl.QueueScoring(ctx, applicant.ID))
	assert.Equal(t, models.AIStatusProcessing, getApplicant(t, db, applicant.ID).StatusAI)
	require.Len(t, workItems(t, db, queue.KindScoreApplicant), 1)

	// Worker reports scores: completed with every field persisted exactly.
	require.NoError(t, ctl.ReportScores(ctx, applicant.ID, &models.ScoreReport{
		SkillsScore:     80,
		ExperienceScore: 90,
		EducationScore:  70,
		TimezoneScore:   95,
		OverallScore:    84,
	}))
	stored = getApplicant(t, db, applicant.ID)
	assert.Equal(t, models.AIStatusCompleted, stored.StatusAI)
	assert.Equal(t, []float64{80, 90, 70, 95, 84}, []float64{
		stored.SkillsScoreAI,
		stored.ExperienceScoreAI,
		stored.EducationScoreAI,
		stored.TimezoneScoreAI,
		stored.OverallScoreAI,
	})
}
