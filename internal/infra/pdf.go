package infra

// pdf.go renders counter-sale receipts with go-pdf/fpdf on a narrow
// thermal-paper page: pharmacy header, sale reference and date, the product
// line, total, and the optional client name.

import (
	"fmt"
	"io"

	"officine/internal/model"

	"github.com/go-pdf/fpdf"
)

// RenderSaleReceipt writes a PDF receipt for sale to w.
func RenderSaleReceipt(w io.Writer, pharmacyName string, sale *model.Sale) error {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: 105},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tr(pharmacyName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Ticket de caisse", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(contentW, 4, "Ref. "+sale.ID.String()[:8], "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, sale.CreatedAt.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	if sale.ClientName != nil && *sale.ClientName != "" {
		pdf.CellFormat(contentW, 4, tr("Client: "+*sale.ClientName), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	col1 := contentW * 0.52
	col2 := contentW * 0.16
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Produit", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Qte", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Montant", "B", 1, "R", false, 0, "")

	name := sale.ProductName
	if len([]rune(name)) > 22 {
		name = string([]rune(name)[:21]) + "."
	}
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(col1, 5, tr(name), "", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, fmt.Sprintf("x%d", sale.Quantity), "", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, sale.Total.StringFixed(2)+" EUR", "", 1, "R", false, 0, "")
	pdf.CellFormat(col1+col2, 4, "Prix unitaire TTC", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 4, sale.UnitPrice.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL TTC:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, sale.Total.StringFixed(2)+" EUR", "", 1, "R", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("Merci de votre visite"), "", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: render receipt: %w", err)
	}
	return nil
}
