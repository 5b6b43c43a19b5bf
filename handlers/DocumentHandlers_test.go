package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/models"
	"backend/services"
	"backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubStore satisfies storage.Store with canned rows, enough to drive
// the document handlers without a database.
type stubStore struct{}

func (stubStore) Tx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return fn(stubTx{})
}

type stubTx struct{}

func stubDoc(id int) *models.Document {
	return &models.Document{ID: id, DocType: "RFQ", DocNumber: "RFQ-2025-0001", Title: "Steel supply", Status: "draft"}
}

func (stubTx) LockCodeSpace(prefix string, year int) error          { return nil }
func (stubTx) MaxDocNumber(prefix string, year int) (string, error) { return "", nil }
func (stubTx) InsertDocument(doc *models.Document) (int, error) {
	doc.ID = 1
	return 1, nil
}
func (stubTx) GetDocumentForUpdate(id int) (*models.Document, error) { return stubDoc(id), nil }
func (stubTx) UpdateDocument(doc *models.Document) error             { return nil }
func (stubTx) GetDocument(id int) (*models.Document, error)          { return stubDoc(id), nil }
func (stubTx) ListDocuments(docType string) ([]models.DocumentSummary, error) {
	return nil, nil
}
func (stubTx) ListItems(documentID int) ([]models.DocumentItem, error) { return nil, nil }
func (stubTx) InsertItem(item *models.DocumentItem) (int, error) {
	item.ID = 1
	return 1, nil
}
func (stubTx) UpdateItem(item models.DocumentItem) error                             { return nil }
func (stubTx) DeleteItems(documentID int, ids []int) error                           { return nil }
func (stubTx) UpdateItemEffective(itemID int, price float64, leadTimeDays int) error { return nil }
func (stubTx) ListVendorLinks(documentID int) ([]models.DocumentVendor, error) {
	return nil, nil
}
func (stubTx) InsertVendorLink(v *models.DocumentVendor) (int, error) {
	v.ID = 1
	return 1, nil
}
func (stubTx) UpdateVendorLink(v models.DocumentVendor) error    { return nil }
func (stubTx) DeleteVendorLinks(documentID int, ids []int) error { return nil }
func (stubTx) ListQuotes(documentID int) ([]models.VendorQuote, error) {
	return nil, nil
}
func (stubTx) InsertQuote(q *models.VendorQuote) (int, error) {
	q.ID = 1
	return 1, nil
}
func (stubTx) UpdateQuote(q models.VendorQuote) error                    { return nil }
func (stubTx) DeleteQuotes(documentID int, keys []models.QuoteKey) error { return nil }

// unreachableDB returns a connection pool that dials nothing until
// used and then fails with a connection error.
func unreachableDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", "host=127.0.0.1 port=1 user=none dbname=none sslmode=disable")
	require.NoError(t, err)
	return db
}

// unreachableGormDB wraps unreachableDB in a gorm handle whose every
// query fails. The ping is disabled so opening itself succeeds.
func unreachableGormDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: unreachableDB(t)}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Discard,
	})
	require.NoError(t, err)
	return gormDB
}

func TestCreateDocumentHandlerSucceedsWhenStageRecordFails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := services.NewDocumentService(stubStore{})
	gormDB := unreachableGormDB(t)
	wf := services.NewWorkflowService(gormDB)

	r := gin.New()
	r.POST("/api/documents", CreateDocumentHandler(svc, wf, gormDB, unreachableDB(t)))

	body, err := json.Marshal(models.CreateDocumentRequest{DocType: "RFQ", Title: "Steel supply"})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	// The document transaction committed before the stage record ran,
	// so the failed record must not turn the response into an error.
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var doc models.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "RFQ", doc.DocType)
	assert.NotEmpty(t, doc.DocNumber)
}

func TestMoveStageHandlerSucceedsWhenHistoryRecordFails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := services.NewDocumentService(stubStore{})
	gormDB := unreachableGormDB(t)
	wf := services.NewWorkflowService(gormDB)

	r := gin.New()
	r.POST("/api/documents/:id/stage", MoveDocumentStageHandler(svc, wf, nil, gormDB, unreachableDB(t)))

	body, err := json.Marshal(MoveStageRequest{Stage: "approval"})
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/documents/1/stage", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var doc models.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, 1, doc.ID)
}
