package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"net/http"

	"backend/services"
	"backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

// addLabel adds text to an image at the specified position
func addLabel(img *image.RGBA, x, y int, label string) {
	col := color.RGBA{0, 0, 0, 255}
	face := inconsolata.Regular8x16

	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  point,
	}
	d.DrawString(label)
}

// addLabelBold adds bold text for field labels
func addLabelBold(img *image.RGBA, x, y int, label string) {
	col := color.RGBA{30, 30, 30, 255}
	face := inconsolata.Bold8x16

	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  point,
	}
	d.DrawString(label)
}

// GenerateDocumentQRCode godoc
// @Summary      Generate document QR code as JPEG
// @Description  QR payload carries the document id and number for scanning on site
// @Tags         Export
// @Param        id   path      int  true  "Document ID"
// @Success      200  {file}    file  "JPEG image"
// @Failure      400  {object}  object
// @Failure      404  {object}  object
// @Router       /api/documents/{id}/qr [get]
func GenerateDocumentQRCode(svc *services.DocumentService) gin.HandlerFunc {
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

		qrData := struct {
			ID        int    `json:"id"`
			DocNumber string `json:"doc_number"`
			DocType   string `json:"doc_type"`
		}{
			ID:        doc.ID,
			DocNumber: doc.DocNumber,
			DocType:   doc.DocType,
		}

		jsonData, err := json.Marshal(qrData)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to marshal document data"})
			return
		}

		qr, err := qrcode.New(string(jsonData), qrcode.Medium)
		if err != nil {
			c.String(http.StatusInternalServerError, "QR code generation failed")
			return
		}

		qrImg := qr.Image(512)

		qrSize := qrImg.Bounds().Dy()
		padding := 30
		lineHeight := 28
		textAreaHeight := 3*lineHeight + padding
		totalHeight := qrSize + padding + textAreaHeight

		combinedImg := image.NewRGBA(image.Rect(0, 0, qrSize, totalHeight))
		draw.Draw(combinedImg, combinedImg.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

		qrRect := image.Rect(0, 0, qrSize, qrSize)
		draw.Draw(combinedImg, qrRect, qrImg, image.Point{}, draw.Src)

		separatorY := qrSize + padding/2
		for x := 0; x < qrSize; x++ {
			combinedImg.Set(x, separatorY, color.RGBA{200, 200, 200, 255})
		}

		startY := qrSize + padding + lineHeight
		xPos := 20

		addLabelBold(combinedImg, xPos, startY, "Number:")
		addLabel(combinedImg, xPos+120, startY, doc.DocNumber)

		addLabelBold(combinedImg, xPos, startY+lineHeight, "Title:")
		titleDisplay := doc.Title
		if len(titleDisplay) > 40 {
			titleDisplay = titleDisplay[:37] + "..."
		}
		addLabel(combinedImg, xPos+120, startY+lineHeight, titleDisplay)

		addLabelBold(combinedImg, xPos, startY+2*lineHeight, "Status:")
		addLabel(combinedImg, xPos+120, startY+2*lineHeight, doc.Status)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, combinedImg, nil); err != nil {
			c.String(http.StatusInternalServerError, "JPEG encoding failed")
			return
		}

		c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
	}
}
