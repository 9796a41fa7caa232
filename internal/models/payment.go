package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is an append-only enrollment record: the canonical proof that a
// student paid for and holds a seat in a class. Rows are keyed by the gateway
// confirmation token so a replayed append never double-inserts, and are never
// updated except for the finalized flag.
type Payment struct {
	ID           string          `db:"id" json:"id"`
	StudentID    string          `db:"student_id" json:"student_id"`
	ClassID      string          `db:"class_id" json:"class_id"`
	SelectionID  string          `db:"selection_id" json:"selection_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Confirmation string          `db:"confirmation" json:"confirmation"`
	Finalized    bool            `db:"finalized" json:"finalized"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// PaymentDetail enriches Payment with class info for enrollment listings.
type PaymentDetail struct {
	Payment
	ClassTitle     string `db:"class_title" json:"class_title"`
	ClassImageURL  string `db:"class_image_url" json:"class_image_url,omitempty"`
	InstructorName string `db:"instructor_name" json:"instructor_name"`
}

// SettlementResult is returned from a successful settlement: the enrollment
// record plus a snapshot of the class capacity after the seat was taken.
type SettlementResult struct {
	Enrollment PaymentDetail `json:"enrollment"`
	Class      Class         `json:"class"`
	// PendingFinalization is set when the charge succeeded but one of the
	// post-charge writes did not complete; the reconciler will converge the
	// remaining state and the enrollment is already authoritative.
	PendingFinalization bool `json:"pending_finalization,omitempty"`
}
