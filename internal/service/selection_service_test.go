package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artventure/academy-server/internal/models"
	appErrors "github.com/artventure/academy-server/pkg/errors"
)

type mockSelectionRepo struct {
	mu    sync.Mutex
	items map[string]*models.Selection
	lists []models.SelectionDetail
}

func (m *mockSelectionRepo) Create(ctx context.Context, selection *models.Selection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]*models.Selection)
	}
	if selection.ID == "" {
		selection.ID = "sel-generated"
	}
	cp := *selection
	m.items[selection.ID] = &cp
	return nil
}

func (m *mockSelectionRepo) FindByID(ctx context.Context, id string) (*models.Selection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sel, ok := m.items[id]; ok {
		cp := *sel
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSelectionRepo) Exists(ctx context.Context, studentID, classID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sel := range m.items {
		if sel.StudentID == studentID && sel.ClassID == classID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSelectionRepo) ListByStudent(ctx context.Context, studentID string) ([]models.SelectionDetail, error) {
	return m.lists, nil
}

func (m *mockSelectionRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

type mockClassReader struct {
	classes map[string]*models.Class
}

func (m *mockClassReader) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if class, ok := m.classes[id]; ok {
		cp := *class
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func approvedClass() *models.Class {
	return &models.Class{
		ID:             "class-1",
		Title:          "Watercolor Basics",
		Price:          decimal.NewFromInt(50),
		AvailableSeats: 10,
		Status:         models.ClassStatusApproved,
	}
}

func TestSelectionServiceSelect(t *testing.T) {
	repo := &mockSelectionRepo{}
	classes := &mockClassReader{classes: map[string]*models.Class{"class-1": approvedClass()}}
	svc := NewSelectionService(repo, classes, nil, nil)

	selection, err := svc.Select(context.Background(), "stu-1", SelectClassRequest{ClassID: "class-1"})
	require.NoError(t, err)
	assert.Equal(t, "stu-1", selection.StudentID)
	assert.Equal(t, "class-1", selection.ClassID)
	assert.Len(t, repo.items, 1)
}

func TestSelectionServiceSelectDuplicate(t *testing.T) {
	repo := &mockSelectionRepo{}
	classes := &mockClassReader{classes: map[string]*models.Class{"class-1": approvedClass()}}
	svc := NewSelectionService(repo, classes, nil, nil)

	_, err := svc.Select(context.Background(), "stu-1", SelectClassRequest{ClassID: "class-1"})
	require.NoError(t, err)

	_, err = svc.Select(context.Background(), "stu-1", SelectClassRequest{ClassID: "class-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSelectionServiceSelectUnapprovedClass(t *testing.T) {
	pending := approvedClass()
	pending.Status = models.ClassStatusPending
	classes := &mockClassReader{classes: map[string]*models.Class{"class-1": pending}}
	svc := NewSelectionService(&mockSelectionRepo{}, classes, nil, nil)

	_, err := svc.Select(context.Background(), "stu-1", SelectClassRequest{ClassID: "class-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestSelectionServiceSelectFullClass(t *testing.T) {
	full := approvedClass()
	full.AvailableSeats = 0
	classes := &mockClassReader{classes: map[string]*models.Class{"class-1": full}}
	svc := NewSelectionService(&mockSelectionRepo{}, classes, nil, nil)

	_, err := svc.Select(context.Background(), "stu-1", SelectClassRequest{ClassID: "class-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestSelectionServiceSelectUnknownClass(t *testing.T) {
	svc := NewSelectionService(&mockSelectionRepo{}, &mockClassReader{}, nil, nil)

	_, err := svc.Select(context.Background(), "stu-1", SelectClassRequest{ClassID: "class-missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSelectionServiceRemove(t *testing.T) {
	repo := &mockSelectionRepo{items: map[string]*models.Selection{
		"sel-1": {ID: "sel-1", StudentID: "stu-1", ClassID: "class-1"},
	}}
	svc := NewSelectionService(repo, &mockClassReader{}, nil, nil)

	require.NoError(t, svc.Remove(context.Background(), "stu-1", "sel-1"))
	assert.Empty(t, repo.items)
}

func TestSelectionServiceRemoveForeignSelection(t *testing.T) {
	repo := &mockSelectionRepo{items: map[string]*models.Selection{
		"sel-1": {ID: "sel-1", StudentID: "stu-1", ClassID: "class-1"},
	}}
	svc := NewSelectionService(repo, &mockClassReader{}, nil, nil)

	err := svc.Remove(context.Background(), "stu-2", "sel-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.items, 1)
}
