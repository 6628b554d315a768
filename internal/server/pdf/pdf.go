// Package pdf renders a user profile snapshot into a PDF document. The rest
// of the system treats this as an opaque user-record → byte-stream function.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/profiledoc/profiledoc/internal/server/models"
)

// Renderer produces profile documents.
type Renderer interface {
	RenderProfile(user models.PDFJobUser) ([]byte, error)
}

// FPDFRenderer renders profiles with fpdf.
type FPDFRenderer struct{}

func NewFPDFRenderer() *FPDFRenderer {
	return &FPDFRenderer{}
}

func (r *FPDFRenderer) RenderProfile(user models.PDFJobUser) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()

	doc.SetFont("Arial", "B", 16)
	doc.CellFormat(0, 10, fmt.Sprintf("User Profile: %s %s", user.Name, user.Surname), "", 1, "", false, 0, "")

	doc.SetFont("Arial", "", 12)
	doc.Ln(10)

	doc.CellFormat(0, 10, fmt.Sprintf("ID: %s", user.ID), "", 1, "", false, 0, "")
	doc.CellFormat(0, 10, fmt.Sprintf("Email: %s", user.Email), "", 1, "", false, 0, "")
	doc.CellFormat(0, 10, fmt.Sprintf("Date of Birth: %s", user.DateOfBirth), "", 1, "", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}
