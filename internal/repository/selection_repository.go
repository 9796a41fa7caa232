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

// SelectionRepository handles persistence of pending class selections.
type SelectionRepository struct {
	db *sqlx.DB
}

// NewSelectionRepository constructs the repository.
func NewSelectionRepository(db *sqlx.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

// Create persists a new selection.
func (r *SelectionRepository) Create(ctx context.Context, selection *models.Selection) error {
	if selection.ID == "" {
		selection.ID = uuid.NewString()
	}
	if selection.CreatedAt.IsZero() {
		selection.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO selections (id, student_id, class_id, created_at)
        VALUES (:id, :student_id, :class_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, selection); err != nil {
		return fmt.Errorf("create selection: %w", err)
	}
	return nil
}

// FindByID returns a selection by identifier.
func (r *SelectionRepository) FindByID(ctx context.Context, id string) (*models.Selection, error) {
	const query = `SELECT id, student_id, class_id, created_at FROM selections WHERE id = $1 LIMIT 1`
	var selection models.Selection
	if err := r.db.GetContext(ctx, &selection, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find selection by id: %w", err)
	}
	return &selection, nil
}

// Exists reports whether the student already holds a selection for the class.
func (r *SelectionRepository) Exists(ctx context.Context, studentID, classID string) (bool, error) {
	const query = `SELECT 1 FROM selections WHERE student_id = $1 AND class_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, classID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check selection: %w", err)
	}
	return true, nil
}

// ListByStudent returns the student's selections joined with class info,
// newest first.
func (r *SelectionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.SelectionDetail, error) {
	const query = `SELECT s.id, s.student_id, s.class_id, s.created_at,
        c.title AS class_title, c.image_url AS class_image_url, c.price AS class_price, c.available_seats,
        COALESCE(u.full_name, '') AS instructor_name
        FROM selections s
        LEFT JOIN classes c ON c.id = s.class_id
        LEFT JOIN users u ON u.id = c.instructor_id
        WHERE s.student_id = $1
        ORDER BY s.created_at DESC`
	var selections []models.SelectionDetail
	if err := r.db.SelectContext(ctx, &selections, query, studentID); err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	return selections, nil
}

// DeleteByID removes a selection. Deleting an already-removed selection is
// not an error so the settlement finalization step can be replayed safely.
func (r *SelectionRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM selections WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete selection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete selection: %w", err)
	}
	return affected == 1, nil
}
