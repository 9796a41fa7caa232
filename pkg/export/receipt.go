package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Receipt holds the fields rendered onto a payment receipt.
type Receipt struct {
	PaymentID    string
	Confirmation string
	StudentEmail string
	ClassTitle   string
	Instructor   string
	Amount       string
	Currency     string
	PaidAt       string
}

// ReceiptExporter renders enrollment receipts as PDF documents.
type ReceiptExporter struct{}

// NewReceiptExporter constructs a receipt exporter.
func NewReceiptExporter() *ReceiptExporter {
	return &ReceiptExporter{}
}

// Render creates a single-page PDF receipt for a completed payment.
func (e *ReceiptExporter) Render(r Receipt) ([]byte, error) {
	if r.Confirmation == "" {
		return nil, fmt.Errorf("receipt requires a confirmation token")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "ARTVENTURE ACADEMY", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, "Enrollment Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Payment ID", r.PaymentID},
		{"Confirmation", r.Confirmation},
		{"Student", r.StudentEmail},
		{"Class", r.ClassTitle},
		{"Instructor", r.Instructor},
		{"Amount", fmt.Sprintf("%s %s", r.Amount, r.Currency)},
		{"Paid at", r.PaidAt},
	}

	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 8, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(135, 8, row[1], "1", 1, "", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "This document confirms a completed enrollment payment.", "", 1, "", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
