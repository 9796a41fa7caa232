package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artventure/academy-server/internal/models"
	appErrors "github.com/artventure/academy-server/pkg/errors"
	"github.com/artventure/academy-server/pkg/export"
)

type mockLedgerReader struct {
	details   map[string]*models.PaymentDetail
	listed    []models.PaymentDetail
	listCalls int
}

func (m *mockLedgerReader) ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	m.listCalls++
	return m.listed, nil
}

func (m *mockLedgerReader) FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	if detail, ok := m.details[id]; ok {
		cp := *detail
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockEnrollmentCache struct {
	store map[string][]byte
	sets  int
}

func (m *mockEnrollmentCache) Get(ctx context.Context, key string, dest interface{}) error {
	if raw, ok := m.store[key]; ok {
		return json.Unmarshal(raw, dest)
	}
	return appErrors.ErrCacheMiss
}

func (m *mockEnrollmentCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = raw
	m.sets++
	return nil
}

type mockReceiptRenderer struct {
	rendered []export.Receipt
}

func (m *mockReceiptRenderer) Render(r export.Receipt) ([]byte, error) {
	m.rendered = append(m.rendered, r)
	return []byte("%PDF-1.4 stub"), nil
}

func enrollmentDetail() *models.PaymentDetail {
	return &models.PaymentDetail{
		Payment: models.Payment{
			ID:           "pay-1",
			StudentID:    "stu-1",
			ClassID:      "class-1",
			Amount:       decimal.NewFromInt(50),
			Confirmation: "conf-1",
			Finalized:    true,
			CreatedAt:    time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		},
		ClassTitle:     "Watercolor Basics",
		InstructorName: "Instructor One",
	}
}

func TestEnrollmentServiceListCaches(t *testing.T) {
	ledger := &mockLedgerReader{listed: []models.PaymentDetail{*enrollmentDetail()}}
	cache := &mockEnrollmentCache{}
	svc := NewEnrollmentService(ledger, cache, &mockReceiptRenderer{}, nil, time.Minute, "USD")

	first, err := svc.List(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, ledger.listCalls)
	assert.Equal(t, 1, cache.sets)

	// Second read is served from the cache.
	second, err := svc.List(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, ledger.listCalls)
	assert.Equal(t, "conf-1", second[0].Confirmation)
}

func TestEnrollmentServiceListWithoutCache(t *testing.T) {
	ledger := &mockLedgerReader{listed: []models.PaymentDetail{*enrollmentDetail()}}
	svc := NewEnrollmentService(ledger, nil, &mockReceiptRenderer{}, nil, time.Minute, "USD")

	enrollments, err := svc.List(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)
}

func TestEnrollmentServiceReceipt(t *testing.T) {
	ledger := &mockLedgerReader{details: map[string]*models.PaymentDetail{"pay-1": enrollmentDetail()}}
	renderer := &mockReceiptRenderer{}
	svc := NewEnrollmentService(ledger, nil, renderer, nil, time.Minute, "USD")

	pdf, err := svc.Receipt(context.Background(), "stu-1", "pay-1", "student@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)

	require.Len(t, renderer.rendered, 1)
	receipt := renderer.rendered[0]
	assert.Equal(t, "conf-1", receipt.Confirmation)
	assert.Equal(t, "50.00", receipt.Amount)
	assert.Equal(t, "USD", receipt.Currency)
	assert.Equal(t, "2026-03-14T10:00:00Z", receipt.PaidAt)
}

func TestEnrollmentServiceReceiptForeignPayment(t *testing.T) {
	ledger := &mockLedgerReader{details: map[string]*models.PaymentDetail{"pay-1": enrollmentDetail()}}
	svc := NewEnrollmentService(ledger, nil, &mockReceiptRenderer{}, nil, time.Minute, "USD")

	_, err := svc.Receipt(context.Background(), "stu-2", "pay-1", "other@example.com")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceReceiptNotFound(t *testing.T) {
	svc := NewEnrollmentService(&mockLedgerReader{}, nil, &mockReceiptRenderer{}, nil, time.Minute, "USD")

	_, err := svc.Receipt(context.Background(), "stu-1", "pay-missing", "student@example.com")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
