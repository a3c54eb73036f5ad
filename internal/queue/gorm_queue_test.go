package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"talentbase/hiring-pipeline/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.ToSlash(filepath.Join(t.TempDir(), "queue.db")) +
		"?_txlock=immediate&_pragma=busy_timeout(10000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&WorkItem{}))
	return db
}

func TestEnqueueLeaseComplete(t *testing.T) {
	db := newTestDB(t)
	q := NewGormQueue(db, 5*time.Minute, zap.NewNop().Sugar())
	ctx := context.Background()

	applicantID := uuid.New()
	require.NoError(t, q.Enqueue(ctx, nil, KindProcessResume, ProcessResumePayload{
		ApplicantID: applicantID,
		ResumeKey:   "resumes/2026/jane-1.pdf",
	}))

	items, err := q.Lease(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, KindProcessResume, items[0].Kind)
	assert.Equal(t, 1, items[0].Attempts)
	assert.JSONEq(t,
		`{"applicant_id":"`+applicantID.String()+`","resume_key":"resumes/2026/jane-1.pdf"}`,
		string(items[0].Payload))

	// Leased items stay invisible within the visibility window.
	again, err := q.Lease(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, q.Complete(ctx, items[0].ID))

	after, err := q.Lease(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestLeaseRedeliversAfterVisibilityTimeout(t *testing.T) {
	db := newTestDB(t)
	q := NewGormQueue(db, 20*time.Millisecond, zap.NewNop().Sugar())
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, nil, KindScoreApplicant, ScoreApplicantPayload{
		ApplicantID: uuid.New(),
	}))

	first, err := q.Lease(ctx, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	time.Sleep(50 * time.Millisecond)

	second, err := q.Lease(ctx, 1)
	require.NoError(t, err)
	require.Len(t, second, 1, "expired lease should be handed out again")
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, 2, second[0].Attempts)
}

func TestEnqueueRollsBackWithTransaction(t *testing.T) {
	db := newTestDB(t)
	q := NewGormQueue(db, 5*time.Minute, zap.NewNop().Sugar())
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := q.Enqueue(ctx, tx, KindProcessResume, ProcessResumePayload{
			ApplicantID: uuid.New(),
			ResumeKey:   "resumes/2026/doomed-1.pdf",
		}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	items, err := q.Lease(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, items, "a rolled-back transaction must not leave queued work")
}

func TestCompleteUnknownItem(t *testing.T) {
	db := newTestDB(t)
	q := NewGormQueue(db, 5*time.Minute, zap.NewNop().Sugar())

	err := q.Complete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}
