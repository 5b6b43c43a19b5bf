package repository

import (
	"sort"
	"testing"

	"backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemKey(it models.DocumentItem) (int, bool) {
	return it.ID, it.ID != 0
}

func TestDiffPartitionsByKey(t *testing.T) {
	existing := map[int]bool{1: true, 2: true, 3: true}
	incoming := []models.DocumentItem{
		{ID: 1, Quantity: 10},
		{ID: 3, Quantity: 30},
		{ID: 0, Quantity: 99},
	}

	d := Diff(existing, incoming, itemKey)

	require.Len(t, d.ToUpdate, 2)
	assert.Equal(t, 1, d.ToUpdate[0].ID)
	assert.Equal(t, 3, d.ToUpdate[1].ID)

	require.Len(t, d.ToInsert, 1)
	assert.Equal(t, float64(99), d.ToInsert[0].Quantity)

	require.Len(t, d.ToDelete, 1)
	assert.Equal(t, 2, d.ToDelete[0])
}

func TestDiffEmptyIncomingDeletesAll(t *testing.T) {
	existing := map[int]bool{7: true, 8: true}

	d := Diff(existing, nil, itemKey)

	assert.Empty(t, d.ToUpdate)
	assert.Empty(t, d.ToInsert)
	sort.Ints(d.ToDelete)
	assert.Equal(t, []int{7, 8}, d.ToDelete)
}

func TestDiffEmptyExistingInsertsAll(t *testing.T) {
	incoming := []models.DocumentItem{{ID: 0}, {ID: 5}}

	d := Diff(map[int]bool{}, incoming, itemKey)

	// id 5 is not persisted, so it is an insert too
	assert.Len(t, d.ToInsert, 2)
	assert.Empty(t, d.ToUpdate)
	assert.Empty(t, d.ToDelete)
}

func TestDiffUnknownKeyIsInsert(t *testing.T) {
	existing := map[int]bool{1: true}
	incoming := []models.DocumentItem{{ID: 42}}

	d := Diff(existing, incoming, itemKey)

	require.Len(t, d.ToInsert, 1)
	assert.Equal(t, 42, d.ToInsert[0].ID)
	assert.Equal(t, []int{1}, d.ToDelete)
}

func TestDiffDuplicateKeysLandInSameBucket(t *testing.T) {
	existing := map[int]bool{1: true}
	incoming := []models.DocumentItem{
		{ID: 1, Quantity: 5},
		{ID: 1, Quantity: 6},
	}

	d := Diff(existing, incoming, itemKey)

	// duplicates are not collapsed; last applied write wins downstream
	require.Len(t, d.ToUpdate, 2)
	assert.Equal(t, float64(6), d.ToUpdate[1].Quantity)
	assert.Empty(t, d.ToDelete)
}

func TestDiffWithCompositeKey(t *testing.T) {
	quoteKey := func(q models.VendorQuote) (models.QuoteKey, bool) {
		if q.ItemID == 0 || q.VendorID == 0 {
			return models.QuoteKey{}, false
		}
		return models.QuoteKey{ItemID: q.ItemID, VendorID: q.VendorID}, true
	}

	existing := map[models.QuoteKey]bool{
		{ItemID: 1, VendorID: 9}: true,
		{ItemID: 2, VendorID: 9}: true,
	}
	incoming := []models.VendorQuote{
		{ItemID: 1, VendorID: 9, UnitPrice: 80},
		{ItemID: 1, VendorID: 10, UnitPrice: 85},
	}

	d := Diff(existing, incoming, quoteKey)

	require.Len(t, d.ToUpdate, 1)
	assert.Equal(t, 9, d.ToUpdate[0].VendorID)
	require.Len(t, d.ToInsert, 1)
	assert.Equal(t, 10, d.ToInsert[0].VendorID)
	require.Len(t, d.ToDelete, 1)
	assert.Equal(t, models.QuoteKey{ItemID: 2, VendorID: 9}, d.ToDelete[0])
}

func TestKeySetSkipsUnkeyedRows(t *testing.T) {
	rows := []models.DocumentItem{{ID: 1}, {ID: 0}, {ID: 2}}

	set := KeySet(rows, itemKey)

	assert.Equal(t, map[int]bool{1: true, 2: true}, set)
}
