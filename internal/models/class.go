package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClassStatus represents the moderation state of a class.
type ClassStatus string

// Possible class statuses. Every class starts out pending and is moved to
// approved or denied by an admin. A denied class may be resubmitted, which
// simply sets it back to pending.
const (
	ClassStatusPending  ClassStatus = "PENDING"
	ClassStatusApproved ClassStatus = "APPROVED"
	ClassStatusDenied   ClassStatus = "DENIED"
)

// Class represents a bookable class proposed by an instructor.
//
// AvailableSeats and EnrolledStudents are owned by the settlement flow: the
// only writers are the atomic reserve/release queries in the class
// repository, which keep available_seats from ever going negative.
type Class struct {
	ID               string          `db:"id" json:"id"`
	Title            string          `db:"title" json:"title"`
	ImageURL         string          `db:"image_url" json:"image_url,omitempty"`
	InstructorID     string          `db:"instructor_id" json:"instructor_id"`
	Price            decimal.Decimal `db:"price" json:"price"`
	AvailableSeats   int             `db:"available_seats" json:"available_seats"`
	EnrolledStudents int             `db:"enrolled_students" json:"enrolled_students"`
	Status           ClassStatus     `db:"status" json:"status"`
	Feedback         *string         `db:"feedback" json:"feedback,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with instructor information for responses.
type ClassDetail struct {
	Class
	InstructorName  string `db:"instructor_name" json:"instructor_name"`
	InstructorEmail string `db:"instructor_email" json:"instructor_email"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Status       ClassStatus
	InstructorID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
