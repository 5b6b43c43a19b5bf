package handlers

import (
	"backend/models"
	"backend/services"
	"backend/utils"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// writeServiceError maps service-layer errors onto HTTP statuses.
func writeServiceError(c *gin.Context, err error) {
	var nf *services.NotFoundError
	var ve *services.ValidationError
	var ce *services.ConsistencyError
	var cf *services.ConflictError
	switch {
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &ve), errors.As(err, &ce):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &cf):
		c.JSON(http.StatusConflict, gin.H{"error": "Concurrent update, please retry", "details": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "details": err.Error()})
	}
}

func logDocumentActivity(c *gin.Context, gormDB *gorm.DB, db *sql.DB, docID int, event, description string) {
	userName := "system"
	if session, err := GetSessionDetails(c, db); err == nil {
		userName = session.Email
	}
	entry := models.ActivityLogGorm{
		CreatedAt:    time.Now(),
		UserName:     userName,
		HostName:     c.Request.Host,
		EventContext: "documents",
		IPAddress:    c.ClientIP(),
		Description:  description,
		EventName:    event,
		DocumentID:   docID,
	}
	if err := services.SaveActivityLog(gormDB, entry); err != nil {
		// Activity logging must never fail the request.
		_ = err
	}
}

// CreateDocumentHandler creates a new document with an allocated number
// @Summary Create document
// @Description Create a document (RFQ, TR or WO) and allocate its number for the current year
// @Tags Documents
// @Accept json
// @Produce json
// @Param request body models.CreateDocumentRequest true "Document data"
// @Success 201 {object} models.Document
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/documents [post]
func CreateDocumentHandler(svc *services.DocumentService, wf *services.WorkflowService, gormDB *gorm.DB, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		createdBy := 0
		if session, err := GetSessionDetails(c, db); err == nil {
			createdBy = session.UserID
		}

		ctx, cancel := utils.GetQueryContext(c.Request.Context(), utils.ReconcileTimeout)
		defer cancel()

		doc, err := svc.CreateDocument(ctx, req, createdBy)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		// The document is already committed; a failed stage record must
		// not fail the request.
		if err := wf.RecordStage(doc.ID, doc.Status, req.AssigneeID, "created"); err != nil {
			log.Printf("Failed to record initial workflow stage for document %d: %v", doc.ID, err)
		}
		logDocumentActivity(c, gormDB, db, doc.ID, "document_created", "Created "+doc.DocNumber)

		c.JSON(http.StatusCreated, doc)
	}
}

// GetDocumentHandler returns one document with items, vendors and quotes
// @Summary Get document
// @Tags Documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} models.Document
// @Failure 404 {object} models.ErrorResponse
// @Router /api/documents/{id} [get]
func GetDocumentHandler(svc *services.DocumentService) gin.HandlerFunc {
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
		c.JSON(http.StatusOK, doc)
	}
}

// ListDocumentsHandler lists document summaries, optionally by type
// @Summary List documents
// @Tags Documents
// @Produce json
// @Param doc_type query string false "Filter by document type (RFQ, TR, WO)"
// @Success 200 {array} models.DocumentSummary
// @Failure 500 {object} models.ErrorResponse
// @Router /api/documents [get]
func ListDocumentsHandler(svc *services.DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		docType := strings.ToUpper(strings.TrimSpace(c.Query("doc_type")))

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		docs, err := svc.ListDocuments(ctx, docType)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

// UpdateDocumentHandler reconciles a document with the submitted state
// @Summary Update document
// @Description Partial update. Omitted collections are left untouched; empty collections are cleared.
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param request body models.UpdateDocumentRequest true "Fields and collections to update"
// @Success 200 {object} models.Document
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/documents/{id} [put]
func UpdateDocumentHandler(svc *services.DocumentService, gormDB *gorm.DB, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramInt(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document id"})
			return
		}

		var req models.UpdateDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		ctx, cancel := utils.GetQueryContext(c.Request.Context(), utils.ReconcileTimeout)
		defer cancel()

		doc, err := svc.UpdateDocument(ctx, id, req)
		var conflict *services.ConflictError
		if errors.As(err, &conflict) {
			// One retry on serialization or lock conflicts. The
			// reconcile is idempotent, so replaying is safe.
			doc, err = svc.UpdateDocument(ctx, id, req)
		}
		if err != nil {
			writeServiceError(c, err)
			return
		}

		logDocumentActivity(c, gormDB, db, doc.ID, "document_updated", "Updated "+doc.DocNumber)
		c.JSON(http.StatusOK, doc)
	}
}

// UpsertQuoteHandler adds or updates a single vendor quote
// @Summary Upsert quote
// @Description Insert or update one quote identified by its item/vendor pair, then refresh effective prices
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param request body models.VendorQuote true "Quote data"
// @Success 200 {object} models.Document
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/documents/{id}/quotes [post]
func UpsertQuoteHandler(svc *services.DocumentService, gormDB *gorm.DB, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramInt(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document id"})
			return
		}
		var quote models.VendorQuote
		if err := c.ShouldBindJSON(&quote); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		ctx, cancel := utils.GetQueryContext(c.Request.Context(), utils.ReconcileTimeout)
		defer cancel()

		doc, err := svc.UpsertQuote(ctx, id, quote)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		logDocumentActivity(c, gormDB, db, doc.ID, "quote_upserted", "Quote saved on "+doc.DocNumber)
		c.JSON(http.StatusOK, doc)
	}
}

// UpsertVendorLinkHandler adds or updates a vendor on a document
// @Summary Upsert vendor link
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param request body models.DocumentVendor true "Vendor link data"
// @Success 200 {object} models.Document
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/documents/{id}/vendors [post]
func UpsertVendorLinkHandler(svc *services.DocumentService, gormDB *gorm.DB, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramInt(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document id"})
			return
		}
		var link models.DocumentVendor
		if err := c.ShouldBindJSON(&link); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}
		if link.VendorID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "vendor_id is required"})
			return
		}

		ctx, cancel := utils.GetQueryContext(c.Request.Context(), utils.ReconcileTimeout)
		defer cancel()

		doc, err := svc.UpsertVendorLink(ctx, id, link)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		logDocumentActivity(c, gormDB, db, doc.ID, "vendor_linked", "Vendor saved on "+doc.DocNumber)
		c.JSON(http.StatusOK, doc)
	}
}

// MoveStageRequest is the body of the stage transition endpoint.
type MoveStageRequest struct {
	Stage      string `json:"stage" binding:"required" example:"approval"`
	AssigneeID int    `json:"assignee_id" example:"3"`
	Comments   string `json:"comments" example:"Ready for review"`
}

// MoveDocumentStageHandler moves a document to a new workflow stage
// @Summary Move document stage
// @Description Set the document status and append a workflow history row; notifies the assignee
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param request body handlers.MoveStageRequest true "Target stage"
// @Success 200 {object} models.Document
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/documents/{id}/stage [post]
func MoveDocumentStageHandler(svc *services.DocumentService, wf *services.WorkflowService, fcm *services.FCMService, gormDB *gorm.DB, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramInt(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document id"})
			return
		}
		var req MoveStageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		ctx, cancel := utils.GetQueryContext(c.Request.Context(), utils.ReconcileTimeout)
		defer cancel()

		doc, err := svc.MoveStage(ctx, id, req.Stage)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		// The stage change is already committed; history is best effort.
		if err := wf.RecordStage(doc.ID, req.Stage, req.AssigneeID, req.Comments); err != nil {
			log.Printf("Failed to record stage history for document %d: %v", doc.ID, err)
		}

		if fcm != nil && req.AssigneeID > 0 {
			// Push failures are logged by the service, not surfaced.
			_ = fcm.NotifyStageChange(ctx, req.AssigneeID, doc.DocNumber, req.Stage)
		}
		logDocumentActivity(c, gormDB, db, doc.ID, "stage_moved", doc.DocNumber+" moved to "+req.Stage)

		c.JSON(http.StatusOK, doc)
	}
}

// DocumentStageHistoryHandler returns the workflow history of a document
// @Summary Document stage history
// @Tags Documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {array} models.WorkflowStageGorm
// @Failure 500 {object} models.ErrorResponse
// @Router /api/documents/{id}/stage-history [get]
func DocumentStageHistoryHandler(wf *services.WorkflowService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramInt(c, "id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document id"})
			return
		}
		history, err := wf.StageHistory(id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stage history", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, history)
	}
}

// SendRFQInvitationsHandler emails the RFQ to its invited vendors
// @Summary Send RFQ invitations
// @Description Send the RFQ invitation email to every linked vendor with an email address
// @Tags Documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/documents/{id}/send-invitations [post]
func SendRFQInvitationsHandler(svc *services.DocumentService, email *services.EmailService, gormDB *gorm.DB, db *sql.DB) gin.HandlerFunc {
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
		if doc.DocType != "RFQ" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invitations can only be sent for RFQ documents"})
			return
		}

		sent := 0
		var failed []string
		for _, vendor := range doc.Vendors {
			if vendor.VendorEmail == "" {
				continue
			}
			if err := email.SendRFQInvitation(doc, vendor); err != nil {
				failed = append(failed, vendor.VendorEmail)
				continue
			}
			sent++
		}

		logDocumentActivity(c, gormDB, db, doc.ID, "invitations_sent", "RFQ invitations sent for "+doc.DocNumber)
		c.JSON(http.StatusOK, gin.H{
			"message": "Invitations processed",
			"sent":    sent,
			"failed":  failed,
		})
	}
}
