package models

import (
	"time"

	"gorm.io/gorm"
)

// GORM-compatible models with proper tags

// WorkflowStageGorm represents the workflow_stage table with GORM tags.
// One row is recorded when a document is created and another on every
// explicit stage move; the latest row per document is its current
// stage.
type WorkflowStageGorm struct {
	ID         uint       `gorm:"primaryKey;column:id" json:"id"`
	DocumentID int        `gorm:"column:document_id;not null;index" json:"document_id"`
	Stage      string     `gorm:"column:stage;not null" json:"stage"`
	AssigneeID int        `gorm:"column:assignee_id" json:"assignee_id"`
	Comments   string     `gorm:"column:comments" json:"comments"`
	EnteredAt  time.Time  `gorm:"column:entered_at;not null" json:"entered_at"`
	LeftAt     *time.Time `gorm:"column:left_at" json:"left_at,omitempty"`
}

// TableName specifies the table name for WorkflowStageGorm
func (WorkflowStageGorm) TableName() string {
	return "workflow_stage"
}

// ActivityLogGorm represents the activity_log table with GORM tags
type ActivityLogGorm struct {
	ID           uint           `gorm:"primaryKey;column:id" json:"id"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null" json:"created_at"`
	UserName     string         `gorm:"column:user_name;not null" json:"user_name"`
	HostName     string         `gorm:"column:host_name" json:"host_name"`
	EventContext string         `gorm:"column:event_context;not null" json:"event_context"`
	IPAddress    string         `gorm:"column:ip_address" json:"ip_address"`
	Description  string         `gorm:"column:description;not null" json:"description"`
	EventName    string         `gorm:"column:event_name;not null" json:"event_name"`
	DocumentID   int            `gorm:"column:document_id;index" json:"document_id"`
	ProjectID    int            `gorm:"column:project_id" json:"project_id"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for ActivityLogGorm
func (ActivityLogGorm) TableName() string {
	return "activity_log"
}
