package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutoria-app/tutoria-api/internal/models"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
	"github.com/tutoria-app/tutoria-api/pkg/jobs"
)

const testReviewTutorshipID = "9f8e7d6c-5b4a-4f3e-8d2c-1b0a9f8e7d6c"

type mockReviewRepo struct {
	reviews []models.Review
	seq     int
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	m.seq++
	review.ID = fmt.Sprintf("rev-%d", m.seq)
	m.reviews = append(m.reviews, *review)
	return nil
}

func (m *mockReviewRepo) ListByProfessor(ctx context.Context, professorID string) ([]models.Review, error) {
	var out []models.Review
	for _, r := range m.reviews {
		if r.ProfessorID == professorID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockReviewRepo) ExistsForTutorship(ctx context.Context, tutorshipID string) (bool, error) {
	for _, r := range m.reviews {
		if r.TutorshipID == tutorshipID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReviewRepo) AverageRating(ctx context.Context, professorID string) (float64, error) {
	var sum, n int
	for _, r := range m.reviews {
		if r.ProfessorID == professorID {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float64(sum) / float64(n), nil
}

type mockReviewTutorships struct {
	items map[string]*models.Tutorship
}

func (m *mockReviewTutorships) FindByID(ctx context.Context, id string) (*models.Tutorship, error) {
	if t, ok := m.items[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockRankings struct {
	rankings map[string]float64
}

func (m *mockRankings) UpdateRanking(ctx context.Context, userID string, ranking float64) error {
	m.rankings[userID] = ranking
	return nil
}

type mockRankingQueue struct {
	jobs []jobs.Job
	fail bool
}

func (m *mockRankingQueue) Enqueue(job jobs.Job) error {
	if m.fail {
		return errors.New("queue full")
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func newReviewFixture(queue reviewQueue) (*ReviewService, *mockReviewRepo, *mockRankings) {
	repo := &mockReviewRepo{}
	tutorships := &mockReviewTutorships{items: map[string]*models.Tutorship{
		testReviewTutorshipID: {
			ID:          testReviewTutorshipID,
			ProfessorID: "t1",
			StudentID:   "s1",
			Status:      models.TutorshipFinished,
		},
	}}
	rankings := &mockRankings{rankings: map[string]float64{}}
	return NewReviewService(repo, tutorships, rankings, queue, nil, nil), repo, rankings
}

func studentActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}
}

func TestCreateReviewEnqueuesRankingJob(t *testing.T) {
	queue := &mockRankingQueue{}
	svc, _, rankings := newReviewFixture(queue)

	review, err := svc.Create(context.Background(), studentActor(), CreateReviewRequest{
		TutorshipID: testReviewTutorshipID,
		Rating:      5,
		Comment:     "great session",
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", review.ProfessorID)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeRecomputeRanking, queue.jobs[0].Type)
	assert.Equal(t, "t1", queue.jobs[0].Payload)
	// the recompute has not run yet
	assert.Empty(t, rankings.rankings)

	err = svc.HandleRankingJob(context.Background(), queue.jobs[0])
	require.NoError(t, err)
	assert.InDelta(t, 5.0, rankings.rankings["t1"], 0.001)
}

func TestCreateReviewFallsBackInlineWhenEnqueueFails(t *testing.T) {
	svc, _, rankings := newReviewFixture(&mockRankingQueue{fail: true})

	_, err := svc.Create(context.Background(), studentActor(), CreateReviewRequest{
		TutorshipID: testReviewTutorshipID,
		Rating:      4,
	})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, rankings.rankings["t1"], 0.001)
}

func TestCreateReviewRequiresFinishedTutorship(t *testing.T) {
	queue := &mockRankingQueue{}
	svc, _, _ := newReviewFixture(queue)
	svc.tutorships.(*mockReviewTutorships).items[testReviewTutorshipID].Status = models.TutorshipActive

	_, err := svc.Create(context.Background(), studentActor(), CreateReviewRequest{
		TutorshipID: testReviewTutorshipID,
		Rating:      3,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreateReviewOnlyByParticipant(t *testing.T) {
	svc, _, _ := newReviewFixture(&mockRankingQueue{})

	_, err := svc.Create(context.Background(), &models.JWTClaims{UserID: "s2", Role: models.RoleStudent}, CreateReviewRequest{
		TutorshipID: testReviewTutorshipID,
		Rating:      3,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestCreateReviewOncePerTutorship(t *testing.T) {
	svc, _, _ := newReviewFixture(&mockRankingQueue{})

	req := CreateReviewRequest{TutorshipID: testReviewTutorshipID, Rating: 5}
	_, err := svc.Create(context.Background(), studentActor(), req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), studentActor(), req)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestRecomputeRankingAverages(t *testing.T) {
	svc, repo, rankings := newReviewFixture(nil)
	repo.reviews = []models.Review{
		{ProfessorID: "t1", Rating: 5},
		{ProfessorID: "t1", Rating: 3},
		{ProfessorID: "t2", Rating: 1},
	}

	require.NoError(t, svc.RecomputeRanking(context.Background(), "t1"))
	assert.InDelta(t, 4.0, rankings.rankings["t1"], 0.001)
}
