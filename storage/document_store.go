package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"backend/models"

	"github.com/lib/pq"
)

// Store is the transactional persistence surface the reconciliation
// service runs against. Tx opens one transaction, hands the scoped
// handle to fn and commits when fn returns nil; any error (or panic)
// rolls everything back. Nothing written inside fn is visible to other
// callers until the commit, which is what keeps a multi-step
// reconciliation all-or-nothing.
type Store interface {
	Tx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the per-transaction handle. Same-document writers are
// serialized by GetDocumentForUpdate (row lock); same-(prefix, year)
// code allocations are serialized by LockCodeSpace.
type Tx interface {
	// LockCodeSpace blocks until this transaction exclusively owns
	// number allocation for the (prefix, year) pair. Released at
	// commit/rollback, so the max-read and the insert below it cannot
	// interleave with another allocator.
	LockCodeSpace(prefix string, year int) error
	// MaxDocNumber returns the highest stored document number matching
	// "<prefix>-<year>-%", or "" when none exists.
	MaxDocNumber(prefix string, year int) (string, error)

	InsertDocument(doc *models.Document) (int, error)
	// GetDocumentForUpdate loads the parent row and takes a row lock on
	// it. Returns sql.ErrNoRows when the id does not exist.
	GetDocumentForUpdate(id int) (*models.Document, error)
	UpdateDocument(doc *models.Document) error
	GetDocument(id int) (*models.Document, error)
	ListDocuments(docType string) ([]models.DocumentSummary, error)

	ListItems(documentID int) ([]models.DocumentItem, error)
	InsertItem(item *models.DocumentItem) (int, error)
	UpdateItem(item models.DocumentItem) error
	DeleteItems(documentID int, ids []int) error
	UpdateItemEffective(itemID int, price float64, leadTimeDays int) error

	ListVendorLinks(documentID int) ([]models.DocumentVendor, error)
	InsertVendorLink(v *models.DocumentVendor) (int, error)
	UpdateVendorLink(v models.DocumentVendor) error
	DeleteVendorLinks(documentID int, ids []int) error

	ListQuotes(documentID int) ([]models.VendorQuote, error)
	InsertQuote(q *models.VendorQuote) (int, error)
	UpdateQuote(q models.VendorQuote) error
	DeleteQuotes(documentID int, keys []models.QuoteKey) error
}

// DocumentStore implements Store on top of the lib/pq connection pool.
type DocumentStore struct {
	db *sql.DB
}

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Tx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			sqlTx.Rollback()
		}
	}()

	if err := fn(&documentTx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

type documentTx struct {
	tx *sql.Tx
}

func (t *documentTx) LockCodeSpace(prefix string, year int) error {
	// Advisory xact lock keyed on the code space; Postgres releases it
	// when the surrounding transaction ends.
	_, err := t.tx.Exec(`SELECT pg_advisory_xact_lock(hashtext($1))`, fmt.Sprintf("doc_number:%s-%d", prefix, year))
	return err
}

func (t *documentTx) MaxDocNumber(prefix string, year int) (string, error) {
	var number string
	// Longer codes sort first so a widened sequence (10000 and up)
	// outranks 9999 despite the lexicographic tie-break.
	err := t.tx.QueryRow(`
		SELECT doc_number FROM documents
		WHERE doc_number LIKE $1
		ORDER BY length(doc_number) DESC, doc_number DESC
		LIMIT 1`, fmt.Sprintf("%s-%d-%%", prefix, year)).Scan(&number)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return number, nil
}

func (t *documentTx) InsertDocument(doc *models.Document) (int, error) {
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	err := t.tx.QueryRow(`
		INSERT INTO documents
		(doc_type, doc_number, title, description, status, project_id, contact_person, contact_email, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		doc.DocType, doc.DocNumber, doc.Title, doc.Description, doc.Status, doc.ProjectID,
		doc.ContactPerson, doc.ContactEmail, doc.CreatedBy, doc.CreatedAt, doc.UpdatedAt).Scan(&doc.ID)
	if err != nil {
		return 0, err
	}
	return doc.ID, nil
}

func (t *documentTx) GetDocumentForUpdate(id int) (*models.Document, error) {
	return t.scanDocument(id, true)
}

func (t *documentTx) GetDocument(id int) (*models.Document, error) {
	return t.scanDocument(id, false)
}

func (t *documentTx) scanDocument(id int, forUpdate bool) (*models.Document, error) {
	query := `
		SELECT d.id, d.doc_type, d.doc_number, d.title, d.description, d.status,
		       d.project_id, d.contact_person, d.contact_email, d.created_by, d.created_at, d.updated_at
		FROM documents d
		WHERE d.id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var doc models.Document
	err := t.tx.QueryRow(query, id).Scan(
		&doc.ID, &doc.DocType, &doc.DocNumber, &doc.Title, &doc.Description, &doc.Status,
		&doc.ProjectID, &doc.ContactPerson, &doc.ContactEmail, &doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (t *documentTx) UpdateDocument(doc *models.Document) error {
	doc.UpdatedAt = time.Now()
	_, err := t.tx.Exec(`
		UPDATE documents
		SET title=$1, description=$2, status=$3, contact_person=$4, contact_email=$5, updated_at=$6
		WHERE id=$7`,
		doc.Title, doc.Description, doc.Status, doc.ContactPerson, doc.ContactEmail, doc.UpdatedAt, doc.ID)
	return err
}

func (t *documentTx) ListDocuments(docType string) ([]models.DocumentSummary, error) {
	rows, err := t.tx.Query(`
		SELECT id, doc_type, doc_number, title, status, project_id, created_at, updated_at
		FROM documents
		WHERE ($1 = '' OR doc_type = $1)
		ORDER BY created_at DESC`, docType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentSummary
	for rows.Next() {
		var d models.DocumentSummary
		if err := rows.Scan(&d.ID, &d.DocType, &d.DocNumber, &d.Title, &d.Status, &d.ProjectID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (t *documentTx) ListItems(documentID int) ([]models.DocumentItem, error) {
	rows, err := t.tx.Query(`
		SELECT di.id, di.document_id, di.product_id, di.quantity, di.unit, di.unit_price,
		       di.effective_price, di.effective_lead_time, di.notes, COALESCE(p.name, '')
		FROM document_items di
		LEFT JOIN products p ON p.id = di.product_id
		WHERE di.document_id = $1
		ORDER BY di.id`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentItem
	for rows.Next() {
		var it models.DocumentItem
		var unitPrice sql.NullFloat64
		var notes sql.NullString
		if err := rows.Scan(&it.ID, &it.DocumentID, &it.ProductID, &it.Quantity, &it.Unit,
			&unitPrice, &it.EffectivePrice, &it.EffectiveLeadTime, &notes, &it.ProductName); err != nil {
			return nil, err
		}
		if unitPrice.Valid {
			v := unitPrice.Float64
			it.UnitPrice = &v
		}
		it.Notes = notes.String
		out = append(out, it)
	}
	return out, rows.Err()
}

func (t *documentTx) InsertItem(item *models.DocumentItem) (int, error) {
	err := t.tx.QueryRow(`
		INSERT INTO document_items
		(document_id, product_id, quantity, unit, unit_price, effective_price, effective_lead_time, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		item.DocumentID, item.ProductID, item.Quantity, item.Unit, item.UnitPrice,
		item.EffectivePrice, item.EffectiveLeadTime, item.Notes).Scan(&item.ID)
	if err != nil {
		return 0, err
	}
	return item.ID, nil
}

func (t *documentTx) UpdateItem(item models.DocumentItem) error {
	_, err := t.tx.Exec(`
		UPDATE document_items
		SET product_id=$1, quantity=$2, unit=$3, unit_price=$4, notes=$5
		WHERE id=$6 AND document_id=$7`,
		item.ProductID, item.Quantity, item.Unit, item.UnitPrice, item.Notes, item.ID, item.DocumentID)
	return err
}

func (t *documentTx) DeleteItems(documentID int, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	// Quotes hang off items; drop them first so the item delete cannot
	// strand references.
	if _, err := t.tx.Exec(`DELETE FROM vendor_quotes WHERE document_id=$1 AND item_id = ANY($2)`,
		documentID, pq.Array(ids)); err != nil {
		return err
	}
	_, err := t.tx.Exec(`DELETE FROM document_items WHERE document_id=$1 AND id = ANY($2)`,
		documentID, pq.Array(ids))
	return err
}

func (t *documentTx) UpdateItemEffective(itemID int, price float64, leadTimeDays int) error {
	_, err := t.tx.Exec(`UPDATE document_items SET effective_price=$1, effective_lead_time=$2 WHERE id=$3`,
		price, leadTimeDays, itemID)
	return err
}

func (t *documentTx) ListVendorLinks(documentID int) ([]models.DocumentVendor, error) {
	rows, err := t.tx.Query(`
		SELECT dv.id, dv.document_id, dv.vendor_id, dv.valid_until, dv.payment_terms, dv.notes, dv.status,
		       COALESCE(v.name, ''), COALESCE(v.email, '')
		FROM document_vendors dv
		LEFT JOIN inv_vendors v ON v.vendor_id = dv.vendor_id
		WHERE dv.document_id = $1
		ORDER BY dv.id`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentVendor
	for rows.Next() {
		var dv models.DocumentVendor
		var validUntil sql.NullTime
		var paymentTerms, notes sql.NullString
		if err := rows.Scan(&dv.ID, &dv.DocumentID, &dv.VendorID, &validUntil,
			&paymentTerms, &notes, &dv.Status, &dv.VendorName, &dv.VendorEmail); err != nil {
			return nil, err
		}
		if validUntil.Valid {
			v := validUntil.Time
			dv.ValidUntil = &v
		}
		dv.PaymentTerms = paymentTerms.String
		dv.Notes = notes.String
		out = append(out, dv)
	}
	return out, rows.Err()
}

func (t *documentTx) InsertVendorLink(v *models.DocumentVendor) (int, error) {
	err := t.tx.QueryRow(`
		INSERT INTO document_vendors
		(document_id, vendor_id, valid_until, payment_terms, notes, status)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		v.DocumentID, v.VendorID, v.ValidUntil, v.PaymentTerms, v.Notes, v.Status).Scan(&v.ID)
	if err != nil {
		return 0, err
	}
	return v.ID, nil
}

func (t *documentTx) UpdateVendorLink(v models.DocumentVendor) error {
	_, err := t.tx.Exec(`
		UPDATE document_vendors
		SET vendor_id=$1, valid_until=$2, payment_terms=$3, notes=$4, status=$5
		WHERE id=$6 AND document_id=$7`,
		v.VendorID, v.ValidUntil, v.PaymentTerms, v.Notes, v.Status, v.ID, v.DocumentID)
	return err
}

func (t *documentTx) DeleteVendorLinks(documentID int, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	// Quotes belong to the (document, vendor) pair; remove them with
	// the link.
	if _, err := t.tx.Exec(`
		DELETE FROM vendor_quotes
		WHERE document_id=$1 AND vendor_id IN (SELECT vendor_id FROM document_vendors WHERE document_id=$1 AND id = ANY($2))`,
		documentID, pq.Array(ids)); err != nil {
		return err
	}
	_, err := t.tx.Exec(`DELETE FROM document_vendors WHERE document_id=$1 AND id = ANY($2)`,
		documentID, pq.Array(ids))
	return err
}

func (t *documentTx) ListQuotes(documentID int) ([]models.VendorQuote, error) {
	rows, err := t.tx.Query(`
		SELECT id, document_id, item_id, vendor_id, quantity, unit_price, lead_time_days, selected, status, notes
		FROM vendor_quotes
		WHERE document_id = $1
		ORDER BY id`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.VendorQuote
	for rows.Next() {
		var q models.VendorQuote
		var notes sql.NullString
		if err := rows.Scan(&q.ID, &q.DocumentID, &q.ItemID, &q.VendorID, &q.Quantity,
			&q.UnitPrice, &q.LeadTimeDays, &q.Selected, &q.Status, &notes); err != nil {
			return nil, err
		}
		q.Notes = notes.String
		out = append(out, q)
	}
	return out, rows.Err()
}

func (t *documentTx) InsertQuote(q *models.VendorQuote) (int, error) {
	err := t.tx.QueryRow(`
		INSERT INTO vendor_quotes
		(document_id, item_id, vendor_id, quantity, unit_price, lead_time_days, selected, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		q.DocumentID, q.ItemID, q.VendorID, q.Quantity, q.UnitPrice, q.LeadTimeDays,
		q.Selected, q.Status, q.Notes).Scan(&q.ID)
	if err != nil {
		return 0, err
	}
	return q.ID, nil
}

func (t *documentTx) UpdateQuote(q models.VendorQuote) error {
	// Quotes are matched by natural key across update calls, so the
	// update is keyed the same way.
	_, err := t.tx.Exec(`
		UPDATE vendor_quotes
		SET quantity=$1, unit_price=$2, lead_time_days=$3, selected=$4, status=$5, notes=$6
		WHERE document_id=$7 AND item_id=$8 AND vendor_id=$9`,
		q.Quantity, q.UnitPrice, q.LeadTimeDays, q.Selected, q.Status, q.Notes,
		q.DocumentID, q.ItemID, q.VendorID)
	return err
}

func (t *documentTx) DeleteQuotes(documentID int, keys []models.QuoteKey) error {
	for _, key := range keys {
		if _, err := t.tx.Exec(`DELETE FROM vendor_quotes WHERE document_id=$1 AND item_id=$2 AND vendor_id=$3`,
			documentID, key.ItemID, key.VendorID); err != nil {
			return err
		}
	}
	return nil
}
