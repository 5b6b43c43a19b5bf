package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"backend/models"
	"backend/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory storage.Store with transactional rollback
// via snapshot/restore. Code-space locking is a plain mutex held for
// the whole transaction, which serializes allocation the same way the
// advisory lock does.
type memStore struct {
	mu       sync.Mutex
	nextID   int
	docs     map[int]*models.Document
	items    map[int][]models.DocumentItem
	links    map[int][]models.DocumentVendor
	quotes   map[int][]models.VendorQuote
	txCount  int
	failNext error
}

func newMemStore() *memStore {
	return &memStore{
		nextID: 1,
		docs:   make(map[int]*models.Document),
		items:  make(map[int][]models.DocumentItem),
		links:  make(map[int][]models.DocumentVendor),
		quotes: make(map[int][]models.VendorQuote),
	}
}

func (m *memStore) snapshot() (map[int]*models.Document, map[int][]models.DocumentItem, map[int][]models.DocumentVendor, map[int][]models.VendorQuote, int) {
	docs := make(map[int]*models.Document, len(m.docs))
	for k, v := range m.docs {
		cp := *v
		docs[k] = &cp
	}
	items := make(map[int][]models.DocumentItem, len(m.items))
	for k, v := range m.items {
		items[k] = append([]models.DocumentItem(nil), v...)
	}
	links := make(map[int][]models.DocumentVendor, len(m.links))
	for k, v := range m.links {
		links[k] = append([]models.DocumentVendor(nil), v...)
	}
	quotes := make(map[int][]models.VendorQuote, len(m.quotes))
	for k, v := range m.quotes {
		quotes[k] = append([]models.VendorQuote(nil), v...)
	}
	return docs, items, links, quotes, m.nextID
}

func (m *memStore) Tx(ctx context.Context, fn func(tx storage.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++

	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}

	docs, items, links, quotes, nextID := m.snapshot()
	err := fn(&memTx{s: m})
	if err != nil {
		m.docs, m.items, m.links, m.quotes, m.nextID = docs, items, links, quotes, nextID
	}
	return err
}

type memTx struct {
	s *memStore
}

func (t *memTx) LockCodeSpace(prefix string, year int) error { return nil }

func (t *memTx) MaxDocNumber(prefix string, year int) (string, error) {
	// Length before value, so widened codes outrank shorter ones the
	// same way the store's ORDER BY does.
	max := ""
	want := prefix + "-" + itoa(year) + "-"
	for _, d := range t.s.docs {
		if len(d.DocNumber) > len(want) && d.DocNumber[:len(want)] == want {
			if len(d.DocNumber) > len(max) || (len(d.DocNumber) == len(max) && d.DocNumber > max) {
				max = d.DocNumber
			}
		}
	}
	return max, nil
}

func (t *memTx) InsertDocument(doc *models.Document) (int, error) {
	doc.ID = t.s.nextID
	t.s.nextID++
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	cp := *doc
	t.s.docs[doc.ID] = &cp
	return doc.ID, nil
}

func (t *memTx) GetDocumentForUpdate(id int) (*models.Document, error) {
	return t.getDoc(id)
}

func (t *memTx) GetDocument(id int) (*models.Document, error) {
	return t.getDoc(id)
}

func (t *memTx) getDoc(id int) (*models.Document, error) {
	d, ok := t.s.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *d
	cp.Items = nil
	cp.Vendors = nil
	return &cp, nil
}

func (t *memTx) UpdateDocument(doc *models.Document) error {
	if _, ok := t.s.docs[doc.ID]; !ok {
		return sql.ErrNoRows
	}
	doc.UpdatedAt = time.Now()
	cp := *doc
	t.s.docs[doc.ID] = &cp
	return nil
}

func (t *memTx) ListDocuments(docType string) ([]models.DocumentSummary, error) {
	var out []models.DocumentSummary
	for _, d := range t.s.docs {
		if docType != "" && d.DocType != docType {
			continue
		}
		out = append(out, models.DocumentSummary{
			ID:        d.ID,
			DocType:   d.DocType,
			DocNumber: d.DocNumber,
			Title:     d.Title,
			Status:    d.Status,
		})
	}
	return out, nil
}

func (t *memTx) ListItems(documentID int) ([]models.DocumentItem, error) {
	return append([]models.DocumentItem(nil), t.s.items[documentID]...), nil
}

func (t *memTx) InsertItem(item *models.DocumentItem) (int, error) {
	item.ID = t.s.nextID
	t.s.nextID++
	t.s.items[item.DocumentID] = append(t.s.items[item.DocumentID], *item)
	return item.ID, nil
}

func (t *memTx) UpdateItem(item models.DocumentItem) error {
	rows := t.s.items[item.DocumentID]
	for i, it := range rows {
		if it.ID == item.ID {
			// effective fields are owned by UpdateItemEffective
			item.EffectivePrice = it.EffectivePrice
			item.EffectiveLeadTime = it.EffectiveLeadTime
			rows[i] = item
			return nil
		}
	}
	return sql.ErrNoRows
}

func (t *memTx) DeleteItems(documentID int, ids []int) error {
	drop := make(map[int]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var kept []models.DocumentItem
	for _, it := range t.s.items[documentID] {
		if !drop[it.ID] {
			kept = append(kept, it)
		}
	}
	t.s.items[documentID] = kept

	// dependent quotes go with their item
	var keptQuotes []models.VendorQuote
	for _, q := range t.s.quotes[documentID] {
		if !drop[q.ItemID] {
			keptQuotes = append(keptQuotes, q)
		}
	}
	t.s.quotes[documentID] = keptQuotes
	return nil
}

func (t *memTx) UpdateItemEffective(itemID int, price float64, leadTimeDays int) error {
	for docID, rows := range t.s.items {
		for i, it := range rows {
			if it.ID == itemID {
				rows[i].EffectivePrice = price
				rows[i].EffectiveLeadTime = leadTimeDays
				t.s.items[docID] = rows
				return nil
			}
		}
	}
	return sql.ErrNoRows
}

func (t *memTx) ListVendorLinks(documentID int) ([]models.DocumentVendor, error) {
	return append([]models.DocumentVendor(nil), t.s.links[documentID]...), nil
}

func (t *memTx) InsertVendorLink(v *models.DocumentVendor) (int, error) {
	v.ID = t.s.nextID
	t.s.nextID++
	t.s.links[v.DocumentID] = append(t.s.links[v.DocumentID], *v)
	return v.ID, nil
}

func (t *memTx) UpdateVendorLink(v models.DocumentVendor) error {
	rows := t.s.links[v.DocumentID]
	for i, l := range rows {
		if l.ID == v.ID {
			rows[i] = v
			return nil
		}
	}
	return sql.ErrNoRows
}

func (t *memTx) DeleteVendorLinks(documentID int, ids []int) error {
	drop := make(map[int]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	droppedVendors := make(map[int]bool)
	var kept []models.DocumentVendor
	for _, l := range t.s.links[documentID] {
		if drop[l.ID] {
			droppedVendors[l.VendorID] = true
			continue
		}
		kept = append(kept, l)
	}
	t.s.links[documentID] = kept

	var keptQuotes []models.VendorQuote
	for _, q := range t.s.quotes[documentID] {
		if !droppedVendors[q.VendorID] {
			keptQuotes = append(keptQuotes, q)
		}
	}
	t.s.quotes[documentID] = keptQuotes
	return nil
}

func (t *memTx) ListQuotes(documentID int) ([]models.VendorQuote, error) {
	return append([]models.VendorQuote(nil), t.s.quotes[documentID]...), nil
}

func (t *memTx) InsertQuote(q *models.VendorQuote) (int, error) {
	q.ID = t.s.nextID
	t.s.nextID++
	t.s.quotes[q.DocumentID] = append(t.s.quotes[q.DocumentID], *q)
	return q.ID, nil
}

func (t *memTx) UpdateQuote(q models.VendorQuote) error {
	rows := t.s.quotes[q.DocumentID]
	for i, existing := range rows {
		if existing.ItemID == q.ItemID && existing.VendorID == q.VendorID {
			q.ID = existing.ID
			rows[i] = q
			return nil
		}
	}
	return sql.ErrNoRows
}

func (t *memTx) DeleteQuotes(documentID int, keys []models.QuoteKey) error {
	drop := make(map[models.QuoteKey]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	var kept []models.VendorQuote
	for _, q := range t.s.quotes[documentID] {
		if !drop[models.QuoteKey{ItemID: q.ItemID, VendorID: q.VendorID}] {
			kept = append(kept, q)
		}
	}
	t.s.quotes[documentID] = kept
	return nil
}

// --- helpers ---

func newTestService(store *memStore) *DocumentService {
	svc := NewDocumentService(store)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func ptr[T any](v T) *T { return &v }

func createRFQ(t *testing.T, svc *DocumentService) *models.Document {
	t.Helper()
	doc, err := svc.CreateDocument(context.Background(), models.CreateDocumentRequest{
		DocType: "RFQ",
		Title:   "Steel supply",
		Items: []models.DocumentItem{
			{ProductID: 1, Quantity: 100, Unit: "kg", UnitPrice: ptr(50.0)},
			{ProductID: 2, Quantity: 20, Unit: "pcs"},
		},
	}, 1)
	require.NoError(t, err)
	return doc
}

// --- creation & numbering ---

func TestCreateDocumentAllocatesFirstNumber(t *testing.T) {
	svc := newTestService(newMemStore())

	doc := createRFQ(t, svc)

	assert.Equal(t, "RFQ-2025-0001", doc.DocNumber)
	assert.Equal(t, "draft", doc.Status)
	require.Len(t, doc.Items, 2)
	assert.Equal(t, 50.0, doc.Items[0].EffectivePrice)
	assert.Equal(t, 0.0, doc.Items[1].EffectivePrice)
}

func TestCreateDocumentSequencesPerTypeAndYear(t *testing.T) {
	svc := newTestService(newMemStore())

	first := createRFQ(t, svc)
	second := createRFQ(t, svc)
	wo, err := svc.CreateDocument(context.Background(), models.CreateDocumentRequest{
		DocType: "WO", Title: "Erection works",
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, "RFQ-2025-0001", first.DocNumber)
	assert.Equal(t, "RFQ-2025-0002", second.DocNumber)
	// WO runs its own sequence
	assert.Equal(t, "WO-2025-0001", wo.DocNumber)
}

func TestCreateDocumentNewYearRestartsSequence(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	createRFQ(t, svc)

	svc.now = func() time.Time { return time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC) }
	doc, err := svc.CreateDocument(context.Background(), models.CreateDocumentRequest{
		DocType: "RFQ", Title: "New year RFQ",
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, "RFQ-2026-0001", doc.DocNumber)
}

func TestCreateDocumentContinuesPastWidenedSequence(t *testing.T) {
	store := newMemStore()
	// 10000 must outrank 9999 even though it sorts lower as a string.
	for _, num := range []string{"RFQ-2025-9999", "RFQ-2025-10000"} {
		id := store.nextID
		store.nextID++
		store.docs[id] = &models.Document{ID: id, DocType: "RFQ", DocNumber: num, Title: "Seeded", Status: "draft"}
	}
	svc := newTestService(store)

	doc, err := svc.CreateDocument(context.Background(), models.CreateDocumentRequest{
		DocType: "RFQ", Title: "Past the padding width",
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, "RFQ-2025-10001", doc.DocNumber)
}

func TestCreateDocumentConcurrentAllocationsStayUnique(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	const n = 20
	var wg sync.WaitGroup
	numbers := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := svc.CreateDocument(context.Background(), models.CreateDocumentRequest{
				DocType: "RFQ", Title: "Concurrent",
			}, 1)
			if err == nil {
				numbers <- doc.DocNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool)
	count := 0
	for num := range numbers {
		assert.False(t, seen[num], "duplicate document number %s", num)
		seen[num] = true
		count++
	}
	assert.Equal(t, n, count)
}

func TestCreateDocumentRejectsUnknownType(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.CreateDocument(context.Background(), models.CreateDocumentRequest{
		DocType: "PO", Title: "Purchase order",
	}, 1)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "doc_type", ve.Field)
}

func TestCreateDocumentRejectsNonPositiveQuantity(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.CreateDocument(context.Background(), models.CreateDocumentRequest{
		DocType: "RFQ", Title: "Bad items",
		Items:   []models.DocumentItem{{ProductID: 1, Quantity: 0}},
	}, 1)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

// --- update reconciliation ---

func TestUpdateDocumentNotFound(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.UpdateDocument(context.Background(), 99, models.UpdateDocumentRequest{
		Title: ptr("nope"),
	})

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 99, nf.DocumentID)
}

func TestUpdateDocumentRejectsDuplicateVendorIDs(t *testing.T) {
	svc := newTestService(newMemStore())
	doc := createRFQ(t, svc)

	_, err := svc.UpdateDocument(context.Background(), doc.ID, models.UpdateDocumentRequest{
		Vendors: &[]models.DocumentVendor{
			{VendorID: 7, VendorName: "ABC Suppliers"},
			{VendorID: 7, VendorName: "ABC Suppliers, second link"},
		},
	})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "vendors", ve.Field)
	assert.Contains(t, ve.Reason, "duplicate vendor_id 7")
}

func TestUpdateDocumentNilCollectionsLeaveRowsAlone(t *testing.T) {
	svc := newTestService(newMemStore())
	doc := createRFQ(t, svc)

	updated, err := svc.UpdateDocument(context.Background(), doc.ID, models.UpdateDocumentRequest{
		Title: ptr("Renamed"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", updated.Title)
	assert.Len(t, updated.Items, 2)
	assert.Equal(t, doc.Items[0].ID, updated.Items[0].ID)
}

func TestUpdateDocumentEmptyItemsDeletesAll(t *testing.T) {
	svc := newTestService(newMemStore())
	doc := createRFQ(t, svc)

	updated, err := svc.UpdateDocument(context.Background(), doc.ID, models.UpdateDocumentRequest{
		Items: &[]models.DocumentItem{},
	})
	require.NoError(t, err)

	assert.Empty(t, updated.Items)
}

func TestUpdateDocumentMixedItemReconciliation(t *testing.T) {
	svc := newTestService(newMemStore())
	doc := createRFQ(t, svc)
	keptID := doc.Items[0].ID

	updated, err := svc.UpdateDocument(context.Background(), doc.ID, models.UpdateDocumentRequest{
		Items: &[]models.DocumentItem{
			{ID: keptID, ProductID: 1, Quantity: 150, Unit: "kg", UnitPrice: ptr(55.0)},
			{ProductID: 3, Quantity: 5, Unit: "pcs"},
		},
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 2)
	assert.Equal(t, keptID, updated.Items[0].ID)
	assert.Equal(t, 150.0, updated.Items[0].Quantity)
	// second original item was dropped, a new one inserted
	assert.NotEqual(t, doc.Items[1].ID, updated.Items[1].ID)
	assert.Equal(t, 3, updated.Items[1].ProductID)
}

func TestUpdateDocumentIsIdempotent(t *testing.T) {
	svc := newTestService(newMemStore())
	doc := createRFQ(t, svc)

	req := models.UpdateDocumentRequest{
		Title: ptr("Same"),
		Items: &[]models.DocumentItem{
			{ID: doc.Items[0].ID, ProductID: 1, Quantity: 100, Unit: "kg", UnitPrice: ptr(50.0)},
		},
		Vendors: &[]models.DocumentVendor{
			{VendorID: 9, Status: "invited"},
		},
	}

	first, err := svc.UpdateDocument(context.Background(), doc.ID, req)
	require.NoError(t, err)

	// replay with the persisted link id so the key matches
	(*req.Vendors)[0].ID = first.Vendors[0].ID
	second, err := svc.UpdateDocument(context.Background(), doc.ID, req)
	require.NoError(t, err)

	assert.Equal(t, first.Items[0].ID, second.Items[0].ID)
	assert.Equal(t, first.Vendors[0].ID, second.Vendors[0].ID)
	assert.Len(t, second.Items, 1)
	assert.Len(t, second.Vendors, 1)
}

func TestUpdateDocumentQuoteByItemIndex(t *testing.T) {
	svc := newTestService(newMemStore())
	doc := createRFQ(t, svc)

	link, err := svc.UpsertVendorLink(context.Background(), doc.ID, models.DocumentVendor{
		VendorID: 9, Status: "invited",
	})
	require.NoError(t, err)

	// new item and a quote for it in the same call, wired by position
	updated, err := svc.UpdateDocument(context.Background(), doc.ID, models.UpdateDocumentRequest{
		Items: &[]models.DocumentItem{
			{ID: doc.Items[0].ID, ProductID: 1, Quantity: 100, Unit: "kg"},
			{ProductID: 7, Quantity: 10, Unit: "m"},
		},
		Vendors: &[]models.DocumentVendor{
			{ID: link.Vendors[0].ID, VendorID: 9, Status: "invited", Quotes: []models.VendorQuote{
				{ItemIndex: ptr(1), Quantity: 10, UnitPrice: 42, LeadTimeDays: 7, Selected: true},
			}},
		},
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 2)
	newItem := updated.Items[1]
	require.Len(t, updated.Vendors, 1)
	require.Len(t, updated.Vendors[0].Quotes, 1)
	assert.Equal(t, newItem.ID, updated.Vendors[0].Quotes[0].ItemID)
	assert.Equal(t, 42.0, newItem.EffectivePrice)
	assert.Equal(t, 7, newItem.EffectiveLeadTime)
}

func TestUpdateDocumentQuoteNaturalKeySurvivesResend(t *testing.T) {
	svc := newTestService(newMemStore())
	doc := createRFQ(t, svc)
	itemID := doc.Items[0].ID

	first, err := svc.UpdateDocument(context.Background(), doc.ID, models.UpdateDocumentRequest{
		Vendors: &[]models.DocumentVendor{
			{VendorID: 9, Status: "invited", Quotes: []models.VendorQuote{
				{ItemID: itemID, Quantity: 100, UnitPrice: 45, LeadTimeDays: 21},
			}},
		},
	})
	require.NoError(t, err)
	originalQuoteID := first.Vendors[0].Quotes[0].ID

	// resend the same pair without the storage id; it must update, not
	// delete-and-insert
	second, err := svc.UpdateDocument(context.Background(), doc.ID, models.UpdateDocumentRequest{
		Vendors: &[]models.DocumentVendor{
			{ID: first.Vendors[0].ID, VendorID: 9, Status: "invited", Quotes: []models.VendorQuote{
				{ItemID: itemID, Quantity: 100, UnitPrice: 44, LeadTimeDays: 14},
			}},
		},
	})
	require.NoError(t, err)

	require.Len(t, second.Vendors[0].Quotes, 1)
	assert.Equal(t, originalQuoteID, second.Vendors[0].Quotes[0].ID)
	assert.Equal(t, 44.0, second.Vendors[0].Quotes[0].UnitPrice)
}

func TestUpdateDocumentRejectsQuoteForForeignItem(t *testing.T) {
	svc := newTestService(newMemStore())
	doc := createRFQ(t, svc)

	_, err := svc.UpdateDocument(context.Background(), doc.ID, models.UpdateDocumentRequest{
		Vendors: &[]models.DocumentVendor{
			{VendorID: 9, Quotes: []models.VendorQuote{
				{ItemID: 9999, Quantity: 1, UnitPrice: 10},
			}},
		},
	})

	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
}

func TestUpdateDocumentRejectsBadItemIndex(t *testing.T) {
	svc := newTestService(newMemStore())
	doc := createRFQ(t, svc)

	_, err := svc.UpdateDocument(context.Background(), doc.ID, models.UpdateDocumentRequest{
		Items: &[]models.DocumentItem{
			{ID: doc.Items[0].ID, ProductID: 1, Quantity: 100, Unit: "kg"},
		},
		Vendors: &[]models.DocumentVendor{
			{VendorID: 9, Quotes: []models.VendorQuote{
				{ItemIndex: ptr(5), Quantity: 1, UnitPrice: 10},
			}},
		},
	})

	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
}

func TestUpdateDocumentRollsBackOnConsistencyError(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	doc := createRFQ(t, svc)

	_, err := svc.UpdateDocument(context.Background(), doc.ID, models.UpdateDocumentRequest{
		Items: &[]models.DocumentItem{}, // would delete everything
		Vendors: &[]models.DocumentVendor{
			{VendorID: 9, Quotes: []models.VendorQuote{
				{ItemID: 1234, Quantity: 1, UnitPrice: 10},
			}},
		},
	})
	require.Error(t, err)

	// item deletion must have been rolled back with the failed quote step
	reloaded, err := svc.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Items, 2)
	assert.Empty(t, reloaded.Vendors)
}

func TestUpdateDocumentDeletingLinkDropsItsQuotes(t *testing.T) {
	svc := newTestService(newMemStore())
	doc := createRFQ(t, svc)
	itemID := doc.Items[0].ID

	withQuotes, err := svc.UpdateDocument(context.Background(), doc.ID, models.UpdateDocumentRequest{
		Vendors: &[]models.DocumentVendor{
			{VendorID: 9, Quotes: []models.VendorQuote{
				{ItemID: itemID, Quantity: 100, UnitPrice: 45, Selected: true},
			}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 45.0, withQuotes.Items[0].EffectivePrice)

	cleared, err := svc.UpdateDocument(context.Background(), doc.ID, models.UpdateDocumentRequest{
		Vendors: &[]models.DocumentVendor{},
	})
	require.NoError(t, err)

	assert.Empty(t, cleared.Vendors)
	// the selected quote is gone, the declared price returns
	assert.Equal(t, 50.0, cleared.Items[0].EffectivePrice)
	assert.Equal(t, 0, cleared.Items[0].EffectiveLeadTime)
}

// --- single-row upserts ---

func TestUpsertQuoteInsertThenUpdate(t *testing.T) {
	svc := newTestService(newMemStore())
	doc := createRFQ(t, svc)
	itemID := doc.Items[0].ID

	_, err := svc.UpsertVendorLink(context.Background(), doc.ID, models.DocumentVendor{VendorID: 9})
	require.NoError(t, err)

	first, err := svc.UpsertQuote(context.Background(), doc.ID, models.VendorQuote{
		ItemID: itemID, VendorID: 9, Quantity: 100, UnitPrice: 48, LeadTimeDays: 10, Selected: true,
	})
	require.NoError(t, err)
	require.Len(t, first.Vendors[0].Quotes, 1)
	assert.Equal(t, 48.0, first.Items[0].EffectivePrice)

	second, err := svc.UpsertQuote(context.Background(), doc.ID, models.VendorQuote{
		ItemID: itemID, VendorID: 9, Quantity: 100, UnitPrice: 46, LeadTimeDays: 8, Selected: true,
	})
	require.NoError(t, err)
	require.Len(t, second.Vendors[0].Quotes, 1)
	assert.Equal(t, first.Vendors[0].Quotes[0].ID, second.Vendors[0].Quotes[0].ID)
	assert.Equal(t, 46.0, second.Items[0].EffectivePrice)
	assert.Equal(t, 8, second.Items[0].EffectiveLeadTime)
}

func TestUpsertQuoteRejectsUnlinkedVendor(t *testing.T) {
	svc := newTestService(newMemStore())
	doc := createRFQ(t, svc)

	_, err := svc.UpsertQuote(context.Background(), doc.ID, models.VendorQuote{
		ItemID: doc.Items[0].ID, VendorID: 9, Quantity: 1, UnitPrice: 10,
	})

	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
}

func TestUpsertVendorLinkMatchesByVendorID(t *testing.T) {
	svc := newTestService(newMemStore())
	doc := createRFQ(t, svc)

	first, err := svc.UpsertVendorLink(context.Background(), doc.ID, models.DocumentVendor{
		VendorID: 9, Status: "invited",
	})
	require.NoError(t, err)

	second, err := svc.UpsertVendorLink(context.Background(), doc.ID, models.DocumentVendor{
		VendorID: 9, Status: "responded", PaymentTerms: "net 30",
	})
	require.NoError(t, err)

	require.Len(t, second.Vendors, 1)
	assert.Equal(t, first.Vendors[0].ID, second.Vendors[0].ID)
	assert.Equal(t, "responded", second.Vendors[0].Status)
}

// --- stage & errors ---

func TestMoveStageUpdatesStatus(t *testing.T) {
	svc := newTestService(newMemStore())
	doc := createRFQ(t, svc)

	moved, err := svc.MoveStage(context.Background(), doc.ID, "approval")
	require.NoError(t, err)

	assert.Equal(t, "approval", moved.Status)
}

func TestConflictErrorSurfacesAsConflict(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	doc := createRFQ(t, svc)

	store.failNext = &ConflictError{Err: sql.ErrTxDone}

	_, err := svc.UpdateDocument(context.Background(), doc.ID, models.UpdateDocumentRequest{
		Title: ptr("conflicted"),
	})

	var cf *ConflictError
	require.ErrorAs(t, err, &cf)
}

func TestListDocumentsFiltersByType(t *testing.T) {
	svc := newTestService(newMemStore())
	createRFQ(t, svc)
	_, err := svc.CreateDocument(context.Background(), models.CreateDocumentRequest{
		DocType: "WO", Title: "Works",
	}, 1)
	require.NoError(t, err)

	rfqs, err := svc.ListDocuments(context.Background(), "RFQ")
	require.NoError(t, err)
	require.Len(t, rfqs, 1)
	assert.Equal(t, "RFQ", rfqs[0].DocType)

	all, err := svc.ListDocuments(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
