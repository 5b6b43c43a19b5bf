package services

import (
	"context"
	"strconv"
	"time"

	"backend/models"
	"backend/repository"
	"backend/storage"
)

// Document type prefixes with their own number sequences. Sequences are
// partitioned per (prefix, year) and nothing finer.
var documentTypes = map[string]bool{
	"RFQ": true, // request for quotation
	"TR":  true, // technical recommendation
	"WO":  true, // work order
}

// InitialStage is recorded in the workflow history when a document is
// created.
const InitialStage = "draft"

// DocumentService owns document creation and the full reconciliation
// of a document update: items, vendor links and quotes are synchronized
// against the incoming payload inside one transaction, then the
// selected-quote price and lead time are propagated back onto the
// items. The service holds no state between calls; every request is an
// independent unit of work and same-document writers are serialized by
// the row lock taken in step 1.
type DocumentService struct {
	store storage.Store
	now   func() time.Time
}

func NewDocumentService(store storage.Store) *DocumentService {
	return &DocumentService{store: store, now: time.Now}
}

// CreateDocument allocates the next document number for the type and
// current year, inserts the parent row and the initial items and
// returns the persisted document. Allocation runs under the per
// (prefix, year) code lock so concurrent creations cannot read the same
// max and collide.
func (s *DocumentService) CreateDocument(ctx context.Context, req models.CreateDocumentRequest, createdBy int) (*models.Document, error) {
	if !documentTypes[req.DocType] {
		return nil, &ValidationError{Field: "doc_type", Reason: "unknown document type " + req.DocType}
	}
	if req.Title == "" {
		return nil, &ValidationError{Field: "title", Reason: "required"}
	}
	for i, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, &ValidationError{Field: "items", Reason: "quantity must be positive (item " + itoa(i) + ")"}
		}
	}

	status := req.Status
	if status == "" {
		status = InitialStage
	}

	var result *models.Document
	err := s.store.Tx(ctx, func(tx storage.Tx) error {
		year := s.now().Year()
		if err := tx.LockCodeSpace(req.DocType, year); err != nil {
			return err
		}
		maxCode, err := tx.MaxDocNumber(req.DocType, year)
		if err != nil {
			return err
		}
		number, err := repository.NextDocumentCode(req.DocType, year, maxCode)
		if err != nil {
			return err
		}

		doc := models.Document{
			DocType:       req.DocType,
			DocNumber:     number,
			Title:         req.Title,
			Description:   req.Description,
			Status:        status,
			ProjectID:     req.ProjectID,
			ContactPerson: req.ContactPerson,
			ContactEmail:  req.ContactEmail,
			CreatedBy:     createdBy,
		}
		if _, err := tx.InsertDocument(&doc); err != nil {
			return err
		}

		for _, it := range req.Items {
			it.ID = 0
			it.DocumentID = doc.ID
			// No quotes exist yet, the declared price is the effective
			// one.
			if it.UnitPrice != nil {
				it.EffectivePrice = *it.UnitPrice
			}
			it.EffectiveLeadTime = 0
			if _, err := tx.InsertItem(&it); err != nil {
				return err
			}
			doc.Items = append(doc.Items, it)
		}

		doc.Vendors = []models.DocumentVendor{}
		result = &doc
		return nil
	})
	if err != nil {
		return nil, classifyStorageError(err, 0)
	}
	return result, nil
}

// UpdateDocument reconciles a document against a full incoming payload.
// The whole sequence runs in one transaction: load and lock, validate,
// reconcile items, reconcile vendor links, reconcile the flattened
// quote set, propagate effective item fields, reload. Any failure rolls
// back every step.
//
// A nil Items or Vendors slice leaves that collection untouched; an
// empty one deletes all its rows.
func (s *DocumentService) UpdateDocument(ctx context.Context, documentID int, req models.UpdateDocumentRequest) (*models.Document, error) {
	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	var result *models.Document
	err := s.store.Tx(ctx, func(tx storage.Tx) error {
		// Step 1: load current state, row lock serializes concurrent
		// writers on the same document.
		doc, err := tx.GetDocumentForUpdate(documentID)
		if err != nil {
			return err
		}

		// Step 3: items.
		itemIDByIndex, err := s.reconcileItems(tx, documentID, req.Items)
		if err != nil {
			return err
		}

		// Step 4: vendor links.
		if err := s.reconcileVendorLinks(tx, documentID, req.Vendors); err != nil {
			return err
		}

		// Step 5: quotes, flattened across all incoming vendor links.
		if err := s.reconcileQuotes(tx, documentID, req, itemIDByIndex); err != nil {
			return err
		}

		// Step 6: recompute effective item fields from the now-current
		// quote set.
		if err := s.propagate(tx, documentID); err != nil {
			return err
		}

		// Parent fields last; also bumps updated_at.
		applyParentFields(doc, req)
		if err := tx.UpdateDocument(doc); err != nil {
			return err
		}

		// Step 7: reload the reconciled document.
		result, err = loadFullDocument(tx, documentID)
		return err
	})
	if err != nil {
		return nil, classifyStorageError(err, documentID)
	}
	return result, nil
}

// GetDocument returns the document with nested items, vendor links and
// quotes grouped under their vendor link.
func (s *DocumentService) GetDocument(ctx context.Context, documentID int) (*models.Document, error) {
	var result *models.Document
	err := s.store.Tx(ctx, func(tx storage.Tx) error {
		var err error
		result, err = loadFullDocument(tx, documentID)
		return err
	})
	if err != nil {
		return nil, classifyStorageError(err, documentID)
	}
	return result, nil
}

// ListDocuments returns summaries, optionally filtered by type.
func (s *DocumentService) ListDocuments(ctx context.Context, docType string) ([]models.DocumentSummary, error) {
	if docType != "" && !documentTypes[docType] {
		return nil, &ValidationError{Field: "doc_type", Reason: "unknown document type " + docType}
	}
	var out []models.DocumentSummary
	err := s.store.Tx(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.ListDocuments(docType)
		return err
	})
	if err != nil {
		return nil, classifyStorageError(err, 0)
	}
	return out, nil
}

// UpsertQuote applies one quote in isolation: update when the
// (item, vendor) pair already has a quote, insert otherwise, then
// re-propagate. The rest of the quote set is left alone.
func (s *DocumentService) UpsertQuote(ctx context.Context, documentID int, q models.VendorQuote) (*models.Document, error) {
	if q.ItemID == 0 {
		return nil, &ValidationError{Field: "item_id", Reason: "required"}
	}
	if q.VendorID == 0 {
		return nil, &ValidationError{Field: "vendor_id", Reason: "required"}
	}

	var result *models.Document
	err := s.store.Tx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetDocumentForUpdate(documentID); err != nil {
			return err
		}

		items, err := tx.ListItems(documentID)
		if err != nil {
			return err
		}
		links, err := tx.ListVendorLinks(documentID)
		if err != nil {
			return err
		}
		if !hasItem(items, q.ItemID) {
			return &ConsistencyError{Reason: "quote references item " + itoa(q.ItemID) + " which is not part of document " + itoa(documentID)}
		}
		if !hasVendor(links, q.VendorID) {
			return &ConsistencyError{Reason: "quote references vendor " + itoa(q.VendorID) + " which is not linked to document " + itoa(documentID)}
		}

		existing, err := tx.ListQuotes(documentID)
		if err != nil {
			return err
		}
		q.DocumentID = documentID
		key := models.QuoteKey{ItemID: q.ItemID, VendorID: q.VendorID}
		if repository.KeySet(existing, quoteKeyOf)[key] {
			if err := tx.UpdateQuote(q); err != nil {
				return err
			}
		} else {
			if _, err := tx.InsertQuote(&q); err != nil {
				return err
			}
		}

		if err := s.propagate(tx, documentID); err != nil {
			return err
		}
		result, err = loadFullDocument(tx, documentID)
		return err
	})
	if err != nil {
		return nil, classifyStorageError(err, documentID)
	}
	return result, nil
}

// UpsertVendorLink applies one vendor link in isolation, matched by
// vendor id. Quotes nested in the payload are ignored here; the full
// update endpoint owns those.
func (s *DocumentService) UpsertVendorLink(ctx context.Context, documentID int, v models.DocumentVendor) (*models.Document, error) {
	if v.VendorID == 0 {
		return nil, &ValidationError{Field: "vendor_id", Reason: "required"}
	}

	var result *models.Document
	err := s.store.Tx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetDocumentForUpdate(documentID); err != nil {
			return err
		}

		links, err := tx.ListVendorLinks(documentID)
		if err != nil {
			return err
		}
		v.DocumentID = documentID
		v.Quotes = nil
		updated := false
		for _, existing := range links {
			if existing.VendorID == v.VendorID {
				v.ID = existing.ID
				if err := tx.UpdateVendorLink(v); err != nil {
					return err
				}
				updated = true
				break
			}
		}
		if !updated {
			v.ID = 0
			if _, err := tx.InsertVendorLink(&v); err != nil {
				return err
			}
		}

		result, err = loadFullDocument(tx, documentID)
		return err
	})
	if err != nil {
		return nil, classifyStorageError(err, documentID)
	}
	return result, nil
}

// MoveStage sets the document status. Recording the workflow history
// row is the caller's side effect (WorkflowService).
func (s *DocumentService) MoveStage(ctx context.Context, documentID int, stage string) (*models.Document, error) {
	if stage == "" {
		return nil, &ValidationError{Field: "stage", Reason: "required"}
	}
	var result *models.Document
	err := s.store.Tx(ctx, func(tx storage.Tx) error {
		doc, err := tx.GetDocumentForUpdate(documentID)
		if err != nil {
			return err
		}
		doc.Status = stage
		if err := tx.UpdateDocument(doc); err != nil {
			return err
		}
		result, err = loadFullDocument(tx, documentID)
		return err
	})
	if err != nil {
		return nil, classifyStorageError(err, documentID)
	}
	return result, nil
}

// reconcileItems diffs the incoming item collection against the
// persisted one and applies deletes, then updates, then inserts.
// Returns the mapping from incoming array position to persisted item
// id, which quote reconciliation needs for item_index references.
func (s *DocumentService) reconcileItems(tx storage.Tx, documentID int, incoming *[]models.DocumentItem) (map[int]int, error) {
	if incoming == nil {
		return nil, nil
	}

	existing, err := tx.ListItems(documentID)
	if err != nil {
		return nil, err
	}
	existingKeys := repository.KeySet(existing, itemKeyOf)
	diff := repository.Diff(existingKeys, *incoming, itemKeyOf)

	if err := tx.DeleteItems(documentID, diff.ToDelete); err != nil {
		return nil, err
	}
	for _, it := range diff.ToUpdate {
		it.DocumentID = documentID
		if err := tx.UpdateItem(it); err != nil {
			return nil, err
		}
	}

	// Inserts in incoming order so storage-assigned ids line up with
	// client-side positions.
	insertedIDs := make([]int, 0, len(diff.ToInsert))
	for _, it := range diff.ToInsert {
		it.ID = 0
		it.DocumentID = documentID
		if it.UnitPrice != nil {
			it.EffectivePrice = *it.UnitPrice
		}
		id, err := tx.InsertItem(&it)
		if err != nil {
			return nil, err
		}
		insertedIDs = append(insertedIDs, id)
	}

	// Map incoming position -> persisted id: updates keep their id,
	// inserts consume the freshly assigned ids in order.
	idByIndex := make(map[int]int, len(*incoming))
	next := 0
	for i, it := range *incoming {
		if key, ok := itemKeyOf(it); ok && existingKeys[key] {
			idByIndex[i] = it.ID
		} else {
			idByIndex[i] = insertedIDs[next]
			next++
		}
	}
	return idByIndex, nil
}

func (s *DocumentService) reconcileVendorLinks(tx storage.Tx, documentID int, incoming *[]models.DocumentVendor) error {
	if incoming == nil {
		return nil
	}

	existing, err := tx.ListVendorLinks(documentID)
	if err != nil {
		return err
	}
	diff := repository.Diff(repository.KeySet(existing, vendorLinkKeyOf), *incoming, vendorLinkKeyOf)

	if err := tx.DeleteVendorLinks(documentID, diff.ToDelete); err != nil {
		return err
	}
	for _, v := range diff.ToUpdate {
		v.DocumentID = documentID
		if err := tx.UpdateVendorLink(v); err != nil {
			return err
		}
	}
	for _, v := range diff.ToInsert {
		v.ID = 0
		v.DocumentID = documentID
		if _, err := tx.InsertVendorLink(&v); err != nil {
			return err
		}
	}
	return nil
}

// reconcileQuotes flattens the quotes nested inside each incoming
// vendor link into one document-scoped list, resolves item_index
// references through the id map produced by item reconciliation and
// diffs by the (item, vendor) natural key. Quotes only move when the
// vendors collection was sent at all.
func (s *DocumentService) reconcileQuotes(tx storage.Tx, documentID int, req models.UpdateDocumentRequest, itemIDByIndex map[int]int) error {
	if req.Vendors == nil {
		return nil
	}

	items, err := tx.ListItems(documentID)
	if err != nil {
		return err
	}
	links, err := tx.ListVendorLinks(documentID)
	if err != nil {
		return err
	}
	itemIDs := make(map[int]bool, len(items))
	for _, it := range items {
		itemIDs[it.ID] = true
	}
	vendorIDs := make(map[int]bool, len(links))
	for _, l := range links {
		vendorIDs[l.VendorID] = true
	}

	var incoming []models.VendorQuote
	for _, link := range *req.Vendors {
		for _, q := range link.Quotes {
			q.DocumentID = documentID
			q.VendorID = link.VendorID
			if q.ItemIndex != nil {
				id, ok := itemIDByIndex[*q.ItemIndex]
				if !ok {
					return &ConsistencyError{Reason: "quote item_index " + itoa(*q.ItemIndex) + " does not match any incoming item"}
				}
				q.ItemID = id
				q.ItemIndex = nil
			}
			if !itemIDs[q.ItemID] {
				return &ConsistencyError{Reason: "quote references item " + itoa(q.ItemID) + " which is not part of document " + itoa(documentID)}
			}
			if !vendorIDs[q.VendorID] {
				return &ConsistencyError{Reason: "quote references vendor " + itoa(q.VendorID) + " which is not linked to document " + itoa(documentID)}
			}
			incoming = append(incoming, q)
		}
	}

	existing, err := tx.ListQuotes(documentID)
	if err != nil {
		return err
	}
	diff := repository.Diff(repository.KeySet(existing, quoteKeyOf), incoming, quoteKeyOf)

	if err := tx.DeleteQuotes(documentID, diff.ToDelete); err != nil {
		return err
	}
	for _, q := range diff.ToUpdate {
		if err := tx.UpdateQuote(q); err != nil {
			return err
		}
	}
	for _, q := range diff.ToInsert {
		q.ID = 0
		if _, err := tx.InsertQuote(&q); err != nil {
			return err
		}
	}
	return nil
}

// propagate rewrites effective price/lead time on every item whose
// selected quote changed.
func (s *DocumentService) propagate(tx storage.Tx, documentID int) error {
	items, err := tx.ListItems(documentID)
	if err != nil {
		return err
	}
	quotes, err := tx.ListQuotes(documentID)
	if err != nil {
		return err
	}

	propagated := repository.PropagateSelectedQuotes(items, quotes)
	for i, it := range propagated {
		if it.EffectivePrice != items[i].EffectivePrice || it.EffectiveLeadTime != items[i].EffectiveLeadTime {
			if err := tx.UpdateItemEffective(it.ID, it.EffectivePrice, it.EffectiveLeadTime); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateUpdate(req models.UpdateDocumentRequest) error {
	if req.Items != nil {
		for i, it := range *req.Items {
			if it.Quantity <= 0 {
				return &ValidationError{Field: "items", Reason: "quantity must be positive (item " + itoa(i) + ")"}
			}
		}
	}
	if req.Vendors != nil {
		seen := make(map[int]bool, len(*req.Vendors))
		for i, v := range *req.Vendors {
			if v.VendorID == 0 {
				return &ValidationError{Field: "vendors", Reason: "vendor_id is required (vendor " + itoa(i) + ")"}
			}
			// Quotes group under their vendor link; a second link for
			// the same vendor would duplicate them in the response.
			if seen[v.VendorID] {
				return &ValidationError{Field: "vendors", Reason: "duplicate vendor_id " + itoa(v.VendorID) + " (vendor " + itoa(i) + ")"}
			}
			seen[v.VendorID] = true
		}
	}
	return nil
}

func applyParentFields(doc *models.Document, req models.UpdateDocumentRequest) {
	if req.Title != nil {
		doc.Title = *req.Title
	}
	if req.Description != nil {
		doc.Description = *req.Description
	}
	if req.Status != nil {
		doc.Status = *req.Status
	}
	if req.ContactPerson != nil {
		doc.ContactPerson = *req.ContactPerson
	}
	if req.ContactEmail != nil {
		doc.ContactEmail = *req.ContactEmail
	}
}

// loadFullDocument assembles the nested response: items with their
// propagated fields, vendor links with their quotes grouped back under
// them.
func loadFullDocument(tx storage.Tx, documentID int) (*models.Document, error) {
	doc, err := tx.GetDocument(documentID)
	if err != nil {
		return nil, err
	}
	doc.Items, err = tx.ListItems(documentID)
	if err != nil {
		return nil, err
	}
	doc.Vendors, err = tx.ListVendorLinks(documentID)
	if err != nil {
		return nil, err
	}
	quotes, err := tx.ListQuotes(documentID)
	if err != nil {
		return nil, err
	}
	for i := range doc.Vendors {
		doc.Vendors[i].Quotes = []models.VendorQuote{}
		for _, q := range quotes {
			if q.VendorID == doc.Vendors[i].VendorID {
				doc.Vendors[i].Quotes = append(doc.Vendors[i].Quotes, q)
			}
		}
	}
	if doc.Items == nil {
		doc.Items = []models.DocumentItem{}
	}
	if doc.Vendors == nil {
		doc.Vendors = []models.DocumentVendor{}
	}
	return doc, nil
}

func itemKeyOf(it models.DocumentItem) (int, bool) {
	return it.ID, it.ID != 0
}

func vendorLinkKeyOf(v models.DocumentVendor) (int, bool) {
	return v.ID, v.ID != 0
}

func quoteKeyOf(q models.VendorQuote) (models.QuoteKey, bool) {
	return models.QuoteKey{ItemID: q.ItemID, VendorID: q.VendorID}, true
}

func hasItem(items []models.DocumentItem, id int) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func hasVendor(links []models.DocumentVendor, vendorID int) bool {
	for _, l := range links {
		if l.VendorID == vendorID {
			return true
		}
	}
	return false
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
