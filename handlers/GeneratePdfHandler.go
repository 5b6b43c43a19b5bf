package handlers

import (
	"fmt"
	"net/http"
	"time"

	"backend/services"
	"backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GenerateDocumentPDF godoc
// @Summary      Generate document PDF
// @Description  Renders the document with its items and, for RFQs, the selected vendor quotes
// @Tags         Export
// @Param        id   path  int  true  "Document ID"
// @Success      200  "PDF file"
// @Failure      400  {object}  object
// @Failure      404  {object}  object
// @Router       /api/documents/{id}/pdf [get]
func GenerateDocumentPDF(svc *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramInt(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document id"})
			return
		}

		titleCaser := cases.Title(language.Und)

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		doc, err := svc.GetDocument(ctx, id)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		docTypeNames := map[string]string{
			"RFQ": "Request for Quotation",
			"TR":  "Technical Recommendation",
			"WO":  "Work Order",
		}
		heading := docTypeNames[doc.DocType]
		if heading == "" {
			heading = doc.DocType
		}

		// --- Generate PDF ---
		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()
		pdf.SetMargins(10, 10, 10)
		pdf.SetFont("Arial", "", 10)

		// --- Header ---
		pdf.SetFont("Arial", "B", 18)
		pdf.Cell(190, 10, heading)
		pdf.Ln(12)

		// --- Document Info ---
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(95, 6, fmt.Sprintf("Number: %s", doc.DocNumber))
		pdf.Cell(95, 6, fmt.Sprintf("Status: %s", titleCaser.String(doc.Status)))
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(95, 6, fmt.Sprintf("Created: %s", doc.CreatedAt.Format("02-Jan-2006")))
		if doc.ContactPerson != "" {
			pdf.Cell(95, 6, fmt.Sprintf("Contact: %s (%s)", doc.ContactPerson, doc.ContactEmail))
		}
		pdf.Ln(10)

		// --- Title & description ---
		pdf.SetFont("Arial", "B", 12)
		pdf.MultiCell(190, 6, doc.Title, "", "L", false)
		if doc.Description != "" {
			pdf.SetFont("Arial", "", 10)
			pdf.MultiCell(190, 6, doc.Description, "", "L", false)
		}
		pdf.Ln(5)

		// --- Items table ---
		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(70, 8, "Item", "1", 0, "L", true, 0, "")
		pdf.CellFormat(25, 8, "Qty", "1", 0, "C", true, 0, "")
		pdf.CellFormat(20, 8, "Unit", "1", 0, "C", true, 0, "")
		pdf.CellFormat(30, 8, "Price", "1", 0, "C", true, 0, "")
		pdf.CellFormat(45, 8, "Amount", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		var grandTotal float64
		for _, item := range doc.Items {
			amount := item.EffectivePrice * item.Quantity
			grandTotal += amount

			name := item.ProductName
			if name == "" {
				name = fmt.Sprintf("Product #%d", item.ProductID)
			}
			pdf.CellFormat(70, 8, name, "1", 0, "L", false, 0, "")
			pdf.CellFormat(25, 8, fmt.Sprintf("%.2f", item.Quantity), "1", 0, "C", false, 0, "")
			pdf.CellFormat(20, 8, item.Unit, "1", 0, "C", false, 0, "")
			pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", item.EffectivePrice), "1", 0, "C", false, 0, "")
			pdf.CellFormat(45, 8, fmt.Sprintf("%.2f", amount), "1", 1, "R", false, 0, "")
		}

		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(145, 8, "Total")
		pdf.CellFormat(45, 8, fmt.Sprintf("%.2f", grandTotal), "1", 1, "R", false, 0, "")
		pdf.Ln(5)

		// --- Vendor section (RFQ only) ---
		if doc.DocType == "RFQ" && len(doc.Vendors) > 0 {
			pdf.SetFont("Arial", "B", 12)
			pdf.Cell(190, 8, "Invited Vendors:")
			pdf.Ln(8)
			pdf.SetFont("Arial", "", 10)
			for _, vendor := range doc.Vendors {
				name := vendor.VendorName
				if name == "" {
					name = fmt.Sprintf("Vendor #%d", vendor.VendorID)
				}
				line := fmt.Sprintf("%s | Status: %s", name, titleCaser.String(vendor.Status))
				if vendor.PaymentTerms != "" {
					line += " | Terms: " + vendor.PaymentTerms
				}
				selected := 0
				for _, q := range vendor.Quotes {
					if q.Selected {
						selected++
					}
				}
				if selected > 0 {
					line += fmt.Sprintf(" | Selected quotes: %d", selected)
				}
				pdf.Cell(190, 6, line)
				pdf.Ln(6)
			}
		}

		// --- Footer ---
		pdf.SetY(-20)
		pdf.SetFont("Arial", "I", 8)
		pdf.Cell(190, 6, "This is a computer-generated document. No signature required.")
		pdf.Ln(5)
		pdf.Cell(190, 6, "Generated on: "+time.Now().Format("2006-01-02 15:04:05"))

		// --- Output PDF ---
		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", doc.DocNumber))
		if err := pdf.Output(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF"})
			return
		}
	}
}
