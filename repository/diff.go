package repository

// CollectionDiff is the result of matching an incoming full collection
// against the keys currently persisted for the same parent row.
type CollectionDiff[T any, K comparable] struct {
	ToDelete []K
	ToUpdate []T
	ToInsert []T
}

// Diff partitions an incoming collection against the set of existing
// keys. keyOf returns the natural key of an incoming element and false
// when the element carries no key yet (a new row).
//
//   - no key            -> insert
//   - key in existing   -> update
//   - existing key with no incoming match -> delete
//
// Callers must apply deletes before updates and inserts: a natural key
// may be removed and re-added within the same call, and inserting
// before deleting trips the unique constraint on that key.
//
// Duplicate keys in the incoming list are NOT collapsed here; each
// duplicate lands in the same bucket and the last applied write wins.
// The differ knows nothing about what T means; items, vendor links and
// quotes all go through this same function with their own keyOf.
func Diff[T any, K comparable](existing map[K]bool, incoming []T, keyOf func(T) (K, bool)) CollectionDiff[T, K] {
	var d CollectionDiff[T, K]

	seen := make(map[K]bool, len(incoming))
	for _, in := range incoming {
		key, ok := keyOf(in)
		if !ok {
			d.ToInsert = append(d.ToInsert, in)
			continue
		}
		seen[key] = true
		if existing[key] {
			d.ToUpdate = append(d.ToUpdate, in)
		} else {
			d.ToInsert = append(d.ToInsert, in)
		}
	}

	for key := range existing {
		if !seen[key] {
			d.ToDelete = append(d.ToDelete, key)
		}
	}

	return d
}

// KeySet builds the existing-key lookup for Diff from persisted rows.
func KeySet[T any, K comparable](rows []T, keyOf func(T) (K, bool)) map[K]bool {
	set := make(map[K]bool, len(rows))
	for _, r := range rows {
		if key, ok := keyOf(r); ok {
			set[key] = true
		}
	}
	return set
}
