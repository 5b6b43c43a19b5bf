package services

import (
	"log"
	"time"

	"backend/models"

	"gorm.io/gorm"
)

// WorkflowService records workflow-stage history rows for documents.
// Recording is a side effect of creation and stage moves; failures are
// logged, never propagated into the document transaction.
type WorkflowService struct {
	db *gorm.DB
}

func NewWorkflowService(db *gorm.DB) *WorkflowService {
	return &WorkflowService{db: db}
}

// RecordStage closes the currently open stage row of the document (if
// any) and opens a new one.
func (ws *WorkflowService) RecordStage(documentID int, stage string, assigneeID int, comments string) error {
	now := time.Now()

	err := ws.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.WorkflowStageGorm{}).
			Where("document_id = ? AND left_at IS NULL", documentID).
			Update("left_at", now).Error; err != nil {
			return err
		}
		return tx.Create(&models.WorkflowStageGorm{
			DocumentID: documentID,
			Stage:      stage,
			AssigneeID: assigneeID,
			Comments:   comments,
			EnteredAt:  now,
		}).Error
	})
	if err != nil {
		log.Printf("Failed to record workflow stage %q for document %d: %v", stage, documentID, err)
	}
	return err
}

// StageHistory returns the stage rows of one document, oldest first.
func (ws *WorkflowService) StageHistory(documentID int) ([]models.WorkflowStageGorm, error) {
	var stages []models.WorkflowStageGorm
	err := ws.db.Where("document_id = ?", documentID).Order("entered_at ASC").Find(&stages).Error
	return stages, err
}

// SaveActivityLog writes one audit row. Best effort; the caller decides
// whether a failure matters.
func SaveActivityLog(db *gorm.DB, entry models.ActivityLogGorm) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return db.Create(&entry).Error
}
