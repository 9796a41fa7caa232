package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Selection represents a student's unpaid intent to enroll in a class. It is
// consumed exactly once, either by the student removing it or by settlement.
type Selection struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SelectionDetail enriches Selection with class info for listings.
type SelectionDetail struct {
	Selection
	ClassTitle     string          `db:"class_title" json:"class_title"`
	ClassImageURL  string          `db:"class_image_url" json:"class_image_url,omitempty"`
	ClassPrice     decimal.Decimal `db:"class_price" json:"class_price"`
	AvailableSeats int             `db:"available_seats" json:"available_seats"`
	InstructorName string          `db:"instructor_name" json:"instructor_name"`
}
