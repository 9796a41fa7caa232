package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/artventure/academy-server/internal/models"
)

// PaymentRepository is the append-only enrollment ledger. Rows are deduped on
// the gateway confirmation token; Append followed by Append with the same
// token returns the originally stored row.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = "id, student_id, class_id, selection_id, amount, confirmation, finalized, created_at"

// Append inserts the payment unless a row with the same confirmation token
// already exists, and returns the canonical stored row either way.
func (r *PaymentRepository) Append(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payments (id, student_id, class_id, selection_id, amount, confirmation, finalized, created_at)
        VALUES (:id, :student_id, :class_id, :selection_id, :amount, :confirmation, :finalized, :created_at)
        ON CONFLICT (confirmation) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return nil, fmt.Errorf("append payment: %w", err)
	}
	stored, err := r.FindByConfirmation(ctx, payment.Confirmation)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// FindByConfirmation returns the ledger row for a confirmation token.
func (r *PaymentRepository) FindByConfirmation(ctx context.Context, confirmation string) (*models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE confirmation = $1 LIMIT 1", paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, confirmation); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment by confirmation: %w", err)
	}
	return &payment, nil
}

// FindDetailByID returns a payment with class and instructor info.
func (r *PaymentRepository) FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	const query = `SELECT p.id, p.student_id, p.class_id, p.selection_id, p.amount, p.confirmation, p.finalized, p.created_at,
        COALESCE(c.title, '') AS class_title, COALESCE(c.image_url, '') AS class_image_url,
        COALESCE(u.full_name, '') AS instructor_name
        FROM payments p
        LEFT JOIN classes c ON c.id = p.class_id
        LEFT JOIN users u ON u.id = c.instructor_id
        WHERE p.id = $1`
	var detail models.PaymentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment detail: %w", err)
	}
	return &detail, nil
}

// ListByStudent returns the student's enrollment records joined with class
// metadata, newest first.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	const query = `SELECT p.id, p.student_id, p.class_id, p.selection_id, p.amount, p.confirmation, p.finalized, p.created_at,
        COALESCE(c.title, '') AS class_title, COALESCE(c.image_url, '') AS class_image_url,
        COALESCE(u.full_name, '') AS instructor_name
        FROM payments p
        LEFT JOIN classes c ON c.id = p.class_id
        LEFT JOIN users u ON u.id = c.instructor_id
        WHERE p.student_id = $1
        ORDER BY p.created_at DESC`
	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// ListUnfinalized returns ledger rows whose post-charge bookkeeping has not
// completed. These are the candidates for reconciliation.
func (r *PaymentRepository) ListUnfinalized(ctx context.Context) ([]models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE finalized = false ORDER BY created_at ASC", paymentColumns)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query); err != nil {
		return nil, fmt.Errorf("list unfinalized payments: %w", err)
	}
	return payments, nil
}

// MarkFinalized flips the finalized flag for a confirmation token. The flag
// only moves from false to true, so replaying the flip is a no-op.
func (r *PaymentRepository) MarkFinalized(ctx context.Context, confirmation string) (bool, error) {
	const query = `UPDATE payments SET finalized = true WHERE confirmation = $1 AND finalized = false`
	result, err := r.db.ExecContext(ctx, query, confirmation)
	if err != nil {
		return false, fmt.Errorf("mark payment finalized: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark payment finalized: %w", err)
	}
	return affected == 1, nil
}
