package agreement

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
)

// Fields are the values rendered onto the rental agreement. The generator is
// an external collaborator from the transaction core's point of view: its
// failure is recoverable and must happen before any resource mutation.
type Fields struct {
	CustomerName   string
	RentalTier     string
	ResourceLabel  string
	BlockStart     time.Time
	BlockEnd       time.Time
	TotalCents     int64
	SignedBy       string
	ManualOverride bool
	SignedAt       time.Time
}

// Generator turns agreement fields into a durable PDF artifact.
type Generator interface {
	GenerateAgreementPDF(fields Fields) ([]byte, error)
}

type PDFGenerator struct{}

func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{}
}

func (g *PDFGenerator) GenerateAgreementPDF(fields Fields) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Rental Agreement", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "RENTAL AGREEMENT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Member        : %s", fields.CustomerName),
		fmt.Sprintf("Rental        : %s", fields.RentalTier),
		fmt.Sprintf("Assignment    : %s", fields.ResourceLabel),
		fmt.Sprintf("Check-in      : %s", fields.BlockStart.Format("Jan 2, 2006 3:04 PM")),
		fmt.Sprintf("Checkout by   : %s", fields.BlockEnd.Format("Jan 2, 2006 3:04 PM")),
		fmt.Sprintf("Amount paid   : $%.2f", float64(fields.TotalCents)/100),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6,
		"The undersigned agrees to the club's rules of conduct and acknowledges that "+
			"the rental period ends at the checkout time above. Belongings left after "+
			"checkout are moved to the front desk.", "", "", false)

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 11)
	signature := fmt.Sprintf("Signed by %s at %s", fields.SignedBy, fields.SignedAt.Format(time.RFC1123))
	if fields.ManualOverride {
		signature += " (manual signature override)"
	}
	pdf.Cell(0, 7, signature)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
