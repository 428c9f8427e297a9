package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutoria-app/tutoria-api/internal/models"
	appErrors "github.com/tutoria-app/tutoria-api/pkg/errors"
)

type mockProfessorRepo struct {
	items    map[string]*models.Professor
	subjects map[string][]string
	upserts  int
}

func (m *mockProfessorRepo) List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, int, error) {
	var out []models.Professor
	for _, p := range m.items {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockProfessorRepo) FindByID(ctx context.Context, userID string) (*models.Professor, error) {
	if p, ok := m.items[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfessorRepo) Upsert(ctx context.Context, professor *models.Professor) error {
	m.upserts++
	if m.items == nil {
		m.items = make(map[string]*models.Professor)
	}
	existing, ok := m.items[professor.UserID]
	if ok {
		existing.Abstract = professor.Abstract
		existing.Picture = professor.Picture
		return nil
	}
	cp := *professor
	m.items[professor.UserID] = &cp
	return nil
}

func (m *mockProfessorRepo) UpdateRanking(ctx context.Context, userID string, ranking float64) error {
	if p, ok := m.items[userID]; ok {
		p.Ranking = ranking
		return nil
	}
	return sql.ErrNoRows
}

func (m *mockProfessorRepo) ListSubjects(ctx context.Context, professorID string) ([]models.Subject, error) {
	var out []models.Subject
	for _, id := range m.subjects[professorID] {
		out = append(out, models.Subject{ID: id})
	}
	return out, nil
}

func (m *mockProfessorRepo) AttachSubject(ctx context.Context, professorID, subjectID string) error {
	for _, id := range m.subjects[professorID] {
		if id == subjectID {
			return nil
		}
	}
	if m.subjects == nil {
		m.subjects = make(map[string][]string)
	}
	m.subjects[professorID] = append(m.subjects[professorID], subjectID)
	return nil
}

func (m *mockProfessorRepo) DetachSubject(ctx context.Context, professorID, subjectID string) (bool, error) {
	ids := m.subjects[professorID]
	for i, id := range ids {
		if id == subjectID {
			m.subjects[professorID] = append(ids[:i], ids[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type mockUserFinder struct {
	users map[string]*models.User
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func newProfessorFixture() (*ProfessorService, *mockProfessorRepo) {
	repo := &mockProfessorRepo{items: map[string]*models.Professor{}, subjects: map[string][]string{}}
	users := &mockUserFinder{users: map[string]*models.User{
		"t1": {ID: "t1", FullName: "Prof One", Role: models.RoleTeacher},
		"s1": {ID: "s1", FullName: "Student One", Role: models.RoleStudent},
	}}
	subjects := &mockSubjectFinder{subjects: map[string]*models.Subject{
		"sub1": {ID: "sub1", Name: "Algebra"},
	}}
	return NewProfessorService(repo, users, subjects, nil, nil), repo
}

func TestEnsureProfileIsIdempotent(t *testing.T) {
	svc, repo := newProfessorFixture()

	first, err := svc.EnsureProfile(context.Background(), "t1", UpsertProfileRequest{Abstract: "Algebra tutor"})
	require.NoError(t, err)
	assert.Equal(t, "Algebra tutor", first.Abstract)

	second, err := svc.EnsureProfile(context.Background(), "t1", UpsertProfileRequest{Abstract: "Algebra and calculus tutor"})
	require.NoError(t, err)
	assert.Equal(t, "Algebra and calculus tutor", second.Abstract)
	assert.Len(t, repo.items, 1)
	assert.Equal(t, 2, repo.upserts)
}

func TestEnsureProfileRejectsNonTeacher(t *testing.T) {
	svc, _ := newProfessorFixture()

	_, err := svc.EnsureProfile(context.Background(), "s1", UpsertProfileRequest{})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestValidateTeacherUnknown(t *testing.T) {
	svc, _ := newProfessorFixture()

	err := svc.ValidateTeacher(context.Background(), "ghost")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAttachSubject(t *testing.T) {
	svc, repo := newProfessorFixture()
	repo.items["t1"] = &models.Professor{UserID: "t1"}

	require.NoError(t, svc.AttachSubject(context.Background(), "t1", "sub1"))
	require.NoError(t, svc.AttachSubject(context.Background(), "t1", "sub1"))
	assert.Len(t, repo.subjects["t1"], 1)
}

func TestAttachSubjectUnknownSubject(t *testing.T) {
	svc, repo := newProfessorFixture()
	repo.items["t1"] = &models.Professor{UserID: "t1"}

	err := svc.AttachSubject(context.Background(), "t1", "ghost")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestDetachSubjectMissing(t *testing.T) {
	svc, repo := newProfessorFixture()
	repo.items["t1"] = &models.Professor{UserID: "t1"}

	err := svc.DetachSubject(context.Background(), "t1", "sub1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
