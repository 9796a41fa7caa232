package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artventure/academy-server/internal/models"
	appErrors "github.com/artventure/academy-server/pkg/errors"
)

type mockClassRepo struct {
	items      map[string]*models.Class
	listResult []models.ClassDetail
	listTotal  int
	lastFilter models.ClassFilter
}

func (m *mockClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	m.lastFilter = filter
	return m.listResult, m.listTotal, nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if class, ok := m.items[id]; ok {
		cp := *class
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	if m.items == nil {
		m.items = make(map[string]*models.Class)
	}
	if class.ID == "" {
		class.ID = "class-generated"
	}
	class.Status = models.ClassStatusPending
	cp := *class
	m.items[class.ID] = &cp
	return nil
}

func (m *mockClassRepo) SetStatus(ctx context.Context, id string, status models.ClassStatus, feedback *string) error {
	class, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	class.Status = status
	class.Feedback = feedback
	return nil
}

func TestClassServiceCreate(t *testing.T) {
	repo := &mockClassRepo{}
	svc := NewClassService(repo, nil, nil)

	class, err := svc.Create(context.Background(), "inst-1", CreateClassRequest{
		Title:          "Oil Painting",
		Price:          decimal.NewFromInt(80),
		AvailableSeats: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ClassStatusPending, class.Status)
	assert.Equal(t, "inst-1", class.InstructorID)
	assert.Equal(t, 12, class.AvailableSeats)
}

func TestClassServiceCreateInvalid(t *testing.T) {
	svc := NewClassService(&mockClassRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), "inst-1", CreateClassRequest{
		Title:          "",
		AvailableSeats: 12,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), "inst-1", CreateClassRequest{
		Title:          "Oil Painting",
		Price:          decimal.NewFromInt(-1),
		AvailableSeats: 12,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), "inst-1", CreateClassRequest{
		Title: "Oil Painting",
	})
	require.Error(t, err, "seat count must be positive")
}

func TestClassServiceSetStatus(t *testing.T) {
	repo := &mockClassRepo{items: map[string]*models.Class{
		"class-1": {ID: "class-1", Title: "Oil Painting", Status: models.ClassStatusPending},
	}}
	svc := NewClassService(repo, nil, nil)

	class, err := svc.SetStatus(context.Background(), "class-1", models.ClassStatusDenied, "needs a syllabus")
	require.NoError(t, err)
	assert.Equal(t, models.ClassStatusDenied, class.Status)
	require.NotNil(t, class.Feedback)
	assert.Equal(t, "needs a syllabus", *class.Feedback)

	// Moderation can move a denied class back to approved.
	class, err = svc.SetStatus(context.Background(), "class-1", models.ClassStatusApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.ClassStatusApproved, class.Status)
}

func TestClassServiceSetStatusNotFound(t *testing.T) {
	svc := NewClassService(&mockClassRepo{}, nil, nil)

	_, err := svc.SetStatus(context.Background(), "class-missing", models.ClassStatusApproved, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassServiceListPassesFilter(t *testing.T) {
	repo := &mockClassRepo{listTotal: 3}
	svc := NewClassService(repo, nil, nil)

	_, pagination, err := svc.List(context.Background(), models.ClassFilter{
		Status: models.ClassStatusApproved,
		Page:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ClassStatusApproved, repo.lastFilter.Status)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 3, pagination.TotalCount)
}
