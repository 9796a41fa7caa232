package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/artventure/academy-server/internal/models"
)

// ClassRepository manages persistence for classes, including the seat
// capacity counters. It is the only component that mutates available_seats
// and enrolled_students.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = "id, title, image_url, instructor_id, price, available_seats, enrolled_students, status, feedback, created_at, updated_at"

// List returns classes matching filter criteria joined with instructor info.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	base := "FROM classes c LEFT JOIN users u ON u.id = c.instructor_id WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("c.instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.title) LIKE $%d)", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"title":      "c.title",
		"price":      "c.price",
		"created_at": "c.created_at",
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "c.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.title, c.image_url, c.instructor_id, c.price, c.available_seats, c.enrolled_students, c.status, c.feedback, c.created_at, c.updated_at,
        COALESCE(u.full_name, '') AS instructor_name, COALESCE(u.email, '') AS instructor_email
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, orderBy, order, size, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID returns a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := fmt.Sprintf("SELECT %s FROM classes WHERE id = $1 LIMIT 1", classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	return &class, nil
}

// Create inserts a new class proposal. Status always starts out pending.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	class.Status = models.ClassStatusPending

	const query = `INSERT INTO classes (id, title, image_url, instructor_id, price, available_seats, enrolled_students, status, feedback, created_at, updated_at)
        VALUES (:id, :title, :image_url, :instructor_id, :price, :available_seats, :enrolled_students, :status, :feedback, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// SetStatus overwrites the moderation status unconditionally. Returns
// sql.ErrNoRows when no class with the given id exists.
func (r *ClassRepository) SetStatus(ctx context.Context, id string, status models.ClassStatus, feedback *string) error {
	const query = `UPDATE classes SET status = $2, feedback = $3, updated_at = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, feedback, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set class status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set class status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TryReserve atomically takes one seat if any are left. The conditional
// update is the single point of serialization for concurrent settlements of
// the same class and guarantees available_seats never goes negative.
func (r *ClassRepository) TryReserve(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE classes
        SET available_seats = available_seats - 1, enrolled_students = enrolled_students + 1, updated_at = $2
        WHERE id = $1 AND available_seats > 0`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("reserve seat: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve seat: %w", err)
	}
	return affected == 1, nil
}

// Release gives a reserved seat back. Used only when a settlement aborts
// before the charge succeeded; after that point the seat belongs to the
// enrollment ledger.
func (r *ClassRepository) Release(ctx context.Context, id string) error {
	const query = `UPDATE classes
        SET available_seats = available_seats + 1, enrolled_students = enrolled_students - 1, updated_at = $2
        WHERE id = $1 AND enrolled_students > 0`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	return nil
}
