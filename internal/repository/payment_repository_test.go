package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artventure/academy-server/internal/models"
)

func newPaymentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func paymentRows(id, confirmation string, finalized bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "class_id", "selection_id", "amount", "confirmation", "finalized", "created_at"}).
		AddRow(id, "stu-1", "class-1", "sel-1", "50", confirmation, finalized, time.Now())
}

func TestPaymentRepositoryAppend(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("INSERT INTO payments .+ ON CONFLICT \\(confirmation\\) DO NOTHING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, class_id, selection_id, amount, confirmation, finalized, created_at FROM payments WHERE confirmation = $1 LIMIT 1")).
		WithArgs("conf-1").
		WillReturnRows(paymentRows("pay-1", "conf-1", false))

	stored, err := repo.Append(context.Background(), &models.Payment{
		StudentID:    "stu-1",
		ClassID:      "class-1",
		SelectionID:  "sel-1",
		Amount:       decimal.NewFromInt(50),
		Confirmation: "conf-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay-1", stored.ID)
	assert.False(t, stored.Finalized)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryAppendDuplicateReturnsCanonicalRow(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	// The conflicting insert is a no-op; the originally stored row comes back.
	mock.ExpectExec("INSERT INTO payments .+ ON CONFLICT \\(confirmation\\) DO NOTHING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, class_id, selection_id, amount, confirmation, finalized, created_at FROM payments WHERE confirmation = $1 LIMIT 1")).
		WithArgs("conf-1").
		WillReturnRows(paymentRows("pay-original", "conf-1", true))

	stored, err := repo.Append(context.Background(), &models.Payment{
		StudentID:    "stu-1",
		ClassID:      "class-1",
		SelectionID:  "sel-1",
		Amount:       decimal.NewFromInt(50),
		Confirmation: "conf-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay-original", stored.ID)
	assert.True(t, stored.Finalized)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListUnfinalized(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, class_id, selection_id, amount, confirmation, finalized, created_at FROM payments WHERE finalized = false ORDER BY created_at ASC")).
		WillReturnRows(paymentRows("pay-1", "conf-1", false))

	stranded, err := repo.ListUnfinalized(context.Background())
	require.NoError(t, err)
	require.Len(t, stranded, 1)
	assert.Equal(t, "conf-1", stranded[0].Confirmation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryMarkFinalized(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments SET finalized = true WHERE confirmation = $1 AND finalized = false")).
		WithArgs("conf-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	flipped, err := repo.MarkFinalized(context.Background(), "conf-1")
	require.NoError(t, err)
	assert.True(t, flipped)

	// Replaying the flip matches no rows and reports false without error.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments SET finalized = true WHERE confirmation = $1 AND finalized = false")).
		WithArgs("conf-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	flipped, err = repo.MarkFinalized(context.Background(), "conf-1")
	require.NoError(t, err)
	assert.False(t, flipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "class_id", "selection_id", "amount", "confirmation", "finalized", "created_at", "class_title", "class_image_url", "instructor_name"}).
		AddRow("pay-1", "stu-1", "class-1", "sel-1", "50", "conf-1", true, time.Now(), "Watercolor Basics", "", "Instructor One")
	mock.ExpectQuery("SELECT p.id, p.student_id, .+ FROM payments p\\s+LEFT JOIN classes c ON c.id = p.class_id\\s+LEFT JOIN users u ON u.id = c.instructor_id\\s+WHERE p.student_id = \\$1\\s+ORDER BY p.created_at DESC").
		WithArgs("stu-1").
		WillReturnRows(rows)

	enrollments, err := repo.ListByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, "Watercolor Basics", enrollments[0].ClassTitle)
	assert.NoError(t, mock.ExpectationsWereMet())
}
