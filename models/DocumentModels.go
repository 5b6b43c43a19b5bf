package models

import (
	"time"

	_ "github.com/lib/pq"
)

// Document represents a row in the documents table together with its
// nested child collections. DocNumber is generated once at creation
// (e.g. "RFQ-2025-0042") and never changes afterwards.
type Document struct {
	ID            int              `json:"id" example:"1"`
	DocType       string           `json:"doc_type" example:"RFQ"`
	DocNumber     string           `json:"doc_number" example:"RFQ-2025-0042"`
	Title         string           `json:"title" example:"Steel reinforcement supply"`
	Description   string           `json:"description" example:"Rebar and mesh for phase 2"`
	Status        string           `json:"status" example:"draft"`
	ProjectID     int              `json:"project_id" example:"1"`
	ContactPerson string           `json:"contact_person" example:"Ravi Kumar"`
	ContactEmail  string           `json:"contact_email" example:"ravi@example.com"`
	CreatedBy     int              `json:"created_by" example:"3"`
	CreatedByName string           `json:"created_by_name,omitempty" example:"Ravi Kumar"`
	CreatedAt     time.Time        `json:"created_at" example:"2025-01-15T10:30:00Z"`
	UpdatedAt     time.Time        `json:"updated_at" example:"2025-01-15T10:30:00Z"`
	Items         []DocumentItem   `json:"items"`
	Vendors       []DocumentVendor `json:"vendors"`
}

// DocumentItem is one line item of a document. ID zero means the item
// has not been persisted yet. UnitPrice is the price declared by the
// requester and may be absent; EffectivePrice / EffectiveLeadTime are
// derived from the selected vendor quote and are overwritten on every
// reconciliation, clients cannot set them directly.
type DocumentItem struct {
	ID                int      `json:"id" example:"1"`
	DocumentID        int      `json:"document_id" example:"1"`
	ProductID         int      `json:"product_id" example:"204"`
	Quantity          float64  `json:"quantity" example:"120.5"`
	Unit              string   `json:"unit" example:"kg"`
	UnitPrice         *float64 `json:"unit_price,omitempty" example:"100.00"`
	EffectivePrice    float64  `json:"effective_price" example:"80.00"`
	EffectiveLeadTime int      `json:"effective_lead_time" example:"14"`
	Notes             string   `json:"notes,omitempty" example:"Grade 60"`
	ProductName       string   `json:"product_name,omitempty" example:"TMT Bar 12mm"`
}

// DocumentVendor links a document to one vendor together with the
// link-specific terms and the vendor's quotes for this document.
type DocumentVendor struct {
	ID           int           `json:"id" example:"1"`
	DocumentID   int           `json:"document_id" example:"1"`
	VendorID     int           `json:"vendor_id" example:"9"`
	ValidUntil   *time.Time    `json:"valid_until,omitempty" example:"2025-03-01T00:00:00Z"`
	PaymentTerms string        `json:"payment_terms,omitempty" example:"net 30"`
	Notes        string        `json:"notes,omitempty" example:"Preferred supplier"`
	Status       string        `json:"status" example:"invited"`
	VendorName   string        `json:"vendor_name,omitempty" example:"ABC Suppliers"`
	VendorEmail  string        `json:"vendor_email,omitempty" example:"sales@abc.example"`
	Quotes       []VendorQuote `json:"quotes"`
}

// VendorQuote is one vendor's offer for one item of the document.
// (DocumentID, ItemID, VendorID) is unique within a document. ItemIndex
// may be sent instead of ItemID when the quote targets an item that is
// created in the same update call; it is the position of that item in
// the incoming items array.
type VendorQuote struct {
	ID           int     `json:"id" example:"1"`
	DocumentID   int     `json:"document_id" example:"1"`
	ItemID       int     `json:"item_id" example:"1"`
	ItemIndex    *int    `json:"item_index,omitempty" example:"0"`
	VendorID     int     `json:"vendor_id" example:"9"`
	Quantity     float64 `json:"quantity" example:"120.5"`
	UnitPrice    float64 `json:"unit_price" example:"80.00"`
	LeadTimeDays int     `json:"lead_time_days" example:"14"`
	Selected     bool    `json:"selected" example:"true"`
	Status       string  `json:"status" example:"received"`
	Notes        string  `json:"notes,omitempty" example:"FOB warehouse"`
}

// CreateDocumentRequest is the body of the document creation endpoint.
// The document number is allocated server side from DocType and the
// current year.
type CreateDocumentRequest struct {
	DocType       string         `json:"doc_type" binding:"required" example:"RFQ"`
	Title         string         `json:"title" binding:"required" example:"Steel reinforcement supply"`
	Description   string         `json:"description" example:"Rebar and mesh for phase 2"`
	Status        string         `json:"status" example:"draft"`
	ProjectID     int            `json:"project_id" example:"1"`
	ContactPerson string         `json:"contact_person" example:"Ravi Kumar"`
	ContactEmail  string         `json:"contact_email" example:"ravi@example.com"`
	AssigneeID    int            `json:"assignee_id" example:"3"`
	Items         []DocumentItem `json:"items"`
}

// UpdateDocumentRequest is the body of the document update endpoint.
// Items and Vendors are pointers on purpose: a nil slice means "do not
// touch that collection" while an empty slice means "delete everything
// in it". Collapsing the two would turn partial updates into mass
// deletes.
type UpdateDocumentRequest struct {
	Title         *string           `json:"title,omitempty"`
	Description   *string           `json:"description,omitempty"`
	Status        *string           `json:"status,omitempty"`
	ContactPerson *string           `json:"contact_person,omitempty"`
	ContactEmail  *string           `json:"contact_email,omitempty"`
	Items         *[]DocumentItem   `json:"items,omitempty"`
	Vendors       *[]DocumentVendor `json:"vendors,omitempty"`
}

// QuoteKey is the natural key of a quote inside one document. Storage
// ids are irrelevant for matching quotes across update calls; the same
// item/vendor pair is the same quote even when the row was dropped and
// re-sent.
type QuoteKey struct {
	ItemID   int
	VendorID int
}

// DocumentSummary is the list-view row (no child collections).
type DocumentSummary struct {
	ID        int       `json:"id" example:"1"`
	DocType   string    `json:"doc_type" example:"RFQ"`
	DocNumber string    `json:"doc_number" example:"RFQ-2025-0042"`
	Title     string    `json:"title" example:"Steel reinforcement supply"`
	Status    string    `json:"status" example:"draft"`
	ProjectID int       `json:"project_id" example:"1"`
	CreatedAt time.Time `json:"created_at" example:"2025-01-15T10:30:00Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2025-01-15T10:30:00Z"`
}
