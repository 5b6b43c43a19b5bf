package repository

import "backend/models"

// PropagateSelectedQuotes recomputes the effective price and lead time
// of every item from the current quote set. For each item the first
// quote in input order with a matching item id and the selected flag
// wins; when clients erroneously mark several quotes selected for the
// same item this keeps the outcome deterministic. Items without a
// selected quote keep their own declared unit price (and a zero lead
// time).
//
// Pure function: returns a new slice, neither input is mutated. Must be
// re-run after every reconciliation because any quote write can change
// which quote is selected for an item.
func PropagateSelectedQuotes(items []models.DocumentItem, quotes []models.VendorQuote) []models.DocumentItem {
	selected := make(map[int]models.VendorQuote, len(items))
	for _, q := range quotes {
		if !q.Selected {
			continue
		}
		if _, ok := selected[q.ItemID]; !ok {
			selected[q.ItemID] = q
		}
	}

	out := make([]models.DocumentItem, len(items))
	for i, it := range items {
		if q, ok := selected[it.ID]; ok {
			it.EffectivePrice = q.UnitPrice
			it.EffectiveLeadTime = q.LeadTimeDays
		} else {
			if it.UnitPrice != nil {
				it.EffectivePrice = *it.UnitPrice
			} else {
				it.EffectivePrice = 0
			}
			it.EffectiveLeadTime = 0
		}
		out[i] = it
	}
	return out
}
