package handlers

import (
	"backend/services"
	"backend/utils"
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportDocumentItemsCSV exports a document's line items as CSV
// @Summary Export document items as CSV
// @Tags Export
// @Produce text/csv
// @Param id path int true "Document ID"
// @Success 200 {file} file "CSV file"
// @Failure 404 {object} models.ErrorResponse
// @Router /api/documents/{id}/export_csv [get]
func ExportDocumentItemsCSV(svc *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramInt(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document id"})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		doc, err := svc.GetDocument(ctx, id)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=%s_items.csv", doc.DocNumber))

		writer := csv.NewWriter(c.Writer)
		defer writer.Flush()

		header := []string{"Product", "Quantity", "Unit", "DeclaredPrice", "EffectivePrice", "EffectiveLeadTimeDays", "Notes"}
		if err := writer.Write(header); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV header"})
			return
		}

		for _, item := range doc.Items {
			declared := ""
			if item.UnitPrice != nil {
				declared = fmt.Sprintf("%.2f", *item.UnitPrice)
			}
			row := []string{
				item.ProductName,
				fmt.Sprintf("%.2f", item.Quantity),
				item.Unit,
				declared,
				fmt.Sprintf("%.2f", item.EffectivePrice),
				fmt.Sprintf("%d", item.EffectiveLeadTime),
				item.Notes,
			}
			if err := writer.Write(row); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV row"})
				return
			}
		}
	}
}

// ExportQuoteComparisonExcel exports a vendor quote comparison matrix
// @Summary Export quote comparison as Excel
// @Description One row per item, one column pair (price, lead time) per vendor, selected quotes highlighted
// @Tags Export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Document ID"
// @Success 200 {file} file "Excel file"
// @Failure 404 {object} models.ErrorResponse
// @Router /api/documents/{id}/export_quotes [get]
func ExportQuoteComparisonExcel(svc *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramInt(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document id"})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		doc, err := svc.GetDocument(ctx, id)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		f := excelize.NewFile()
		defer func() {
			if err := f.Close(); err != nil {
				fmt.Printf("Error closing Excel file: %v\n", err)
			}
		}()

		sheet := "Quote Comparison"
		index, err := f.NewSheet(sheet)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating sheet"})
			return
		}
		f.SetActiveSheet(index)
		f.DeleteSheet("Sheet1")

		// Summary block
		f.SetCellValue(sheet, "A1", "Quote Comparison")
		f.SetCellValue(sheet, "A2", "Document")
		f.SetCellValue(sheet, "B2", doc.DocNumber)
		f.SetCellValue(sheet, "A3", "Title")
		f.SetCellValue(sheet, "B3", doc.Title)
		f.SetCellValue(sheet, "A4", "Vendors")
		f.SetCellValue(sheet, "B4", len(doc.Vendors))
		f.SetCellValue(sheet, "A5", "Items")
		f.SetCellValue(sheet, "B5", len(doc.Items))

		// Quote lookup by item/vendor pair.
		type pair struct{ itemID, vendorID int }
		quotes := make(map[pair]struct {
			price    float64
			leadTime int
			selected bool
		})
		for _, vendor := range doc.Vendors {
			for _, q := range vendor.Quotes {
				quotes[pair{q.ItemID, vendor.VendorID}] = struct {
					price    float64
					leadTime int
					selected bool
				}{q.UnitPrice, q.LeadTimeDays, q.Selected}
			}
		}

		headerRow := 7
		f.SetCellValue(sheet, fmt.Sprintf("A%d", headerRow), "Product")
		f.SetCellValue(sheet, fmt.Sprintf("B%d", headerRow), "Quantity")
		f.SetCellValue(sheet, fmt.Sprintf("C%d", headerRow), "Unit")

		// Two columns per vendor, price then lead time.
		for vi, vendor := range doc.Vendors {
			name := vendor.VendorName
			if name == "" {
				name = fmt.Sprintf("Vendor %d", vendor.VendorID)
			}
			priceCell, _ := excelize.CoordinatesToCellName(4+vi*2, headerRow)
			leadCell, _ := excelize.CoordinatesToCellName(5+vi*2, headerRow)
			f.SetCellValue(sheet, priceCell, name+" Price")
			f.SetCellValue(sheet, leadCell, name+" Lead (days)")
		}
		effCol := 4 + len(doc.Vendors)*2
		effPriceCell, _ := excelize.CoordinatesToCellName(effCol, headerRow)
		effLeadCell, _ := excelize.CoordinatesToCellName(effCol+1, headerRow)
		f.SetCellValue(sheet, effPriceCell, "Effective Price")
		f.SetCellValue(sheet, effLeadCell, "Effective Lead (days)")

		selectedStyle, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#C6EFCE"}, Pattern: 1},
		})

		for ii, item := range doc.Items {
			row := headerRow + 1 + ii
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), item.ProductName)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), item.Quantity)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), item.Unit)

			for vi, vendor := range doc.Vendors {
				q, ok := quotes[pair{item.ID, vendor.VendorID}]
				if !ok {
					continue
				}
				priceCell, _ := excelize.CoordinatesToCellName(4+vi*2, row)
				leadCell, _ := excelize.CoordinatesToCellName(5+vi*2, row)
				f.SetCellValue(sheet, priceCell, q.price)
				f.SetCellValue(sheet, leadCell, q.leadTime)
				if q.selected {
					f.SetCellStyle(sheet, priceCell, leadCell, selectedStyle)
				}
			}

			cell, _ := excelize.CoordinatesToCellName(effCol, row)
			f.SetCellValue(sheet, cell, item.EffectivePrice)
			cell, _ = excelize.CoordinatesToCellName(effCol+1, row)
			f.SetCellValue(sheet, cell, item.EffectiveLeadTime)
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=%s_quotes.xlsx", doc.DocNumber))
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing Excel file"})
			return
		}
	}
}
