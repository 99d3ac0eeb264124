package docflow

import (
	"github.com/doculedger/doculedger/internal/inventory"
)

// catalogLookup indexes a catalog snapshot by its three alternative keys.
type catalogLookup struct {
	byID      map[int64]inventory.CatalogItem
	byCatalog map[string]inventory.CatalogItem
	byBarcode map[string]inventory.CatalogItem
}

func buildCatalogLookup(snapshot []inventory.CatalogItem) catalogLookup {
	l := catalogLookup{
		byID:      make(map[int64]inventory.CatalogItem, len(snapshot)),
		byCatalog: make(map[string]inventory.CatalogItem, len(snapshot)),
		byBarcode: make(map[string]inventory.CatalogItem, len(snapshot)),
	}
	for _, item := range snapshot {
		l.byID[item.ID] = item
		if item.CatalogNumber != "" && item.CatalogNumber != CatalogNumberNA {
			l.byCatalog[item.CatalogNumber] = item
		}
		if item.Barcode != "" {
			l.byBarcode[item.Barcode] = item
		}
	}
	return l
}

// Match resolves a line item against the snapshot by inventory id, catalog
// number or barcode. A provisional identity never counts as an id match.
func (l catalogLookup) Match(li LineItem) (inventory.CatalogItem, bool) {
	if li.Identity == IdentityPersisted && li.InventoryID != 0 {
		if item, ok := l.byID[li.InventoryID]; ok {
			return item, true
		}
	}
	if li.CatalogNumber != "" && li.CatalogNumber != CatalogNumberNA {
		if item, ok := l.byCatalog[li.CatalogNumber]; ok {
			return item, true
		}
	}
	if li.Barcode != "" {
		if item, ok := l.byBarcode[li.Barcode]; ok {
			return item, true
		}
	}
	return inventory.CatalogItem{}, false
}

// NeedsReview returns the line items requiring the onboarding step: products
// unknown to the catalog, and known products whose resale price was never
// captured. Running it twice over the same inputs yields the same subset.
func NeedsReview(items []LineItem, snapshot []inventory.CatalogItem) []LineItem {
	lookup := buildCatalogLookup(snapshot)
	var review []LineItem
	for _, li := range items {
		matched, ok := lookup.Match(li)
		if !ok {
			review = append(review, li)
			continue
		}
		if li.SalePrice == nil && matched.SalePrice == nil {
			review = append(review, li)
		}
	}
	return review
}

// StampMatches resolves each line against the snapshot and writes the
// matched catalog identity onto it, so the commit merges into the matched
// record instead of inserting a duplicate. Unmatched lines stay provisional.
func StampMatches(items []LineItem, snapshot []inventory.CatalogItem) []LineItem {
	lookup := buildCatalogLookup(snapshot)
	out := CloneLineItems(items)
	for i := range out {
		matched, ok := lookup.Match(out[i])
		if !ok {
			continue
		}
		out[i].InventoryID = matched.ID
		out[i].Identity = IdentityPersisted
	}
	return out
}

// ReviewedItem carries the edits returned from the onboarding step.
type ReviewedItem struct {
	LocalID   string   `json:"local_id" validate:"required"`
	Barcode   *string  `json:"barcode,omitempty"`
	SalePrice *float64 `json:"sale_price,omitempty"`
	MinStock  *float64 `json:"min_stock,omitempty"`
	MaxStock  *float64 `json:"max_stock,omitempty"`
}

// MergeReviewed merges onboarding edits back into the full line-item list by
// local id. Only items in the review subset may be edited; a reviewed item
// referencing anything else is rejected and nothing is merged.
func MergeReviewed(items []LineItem, subset []LineItem, reviewed []ReviewedItem) ([]LineItem, error) {
	allowed := make(map[string]struct{}, len(subset))
	for _, li := range subset {
		allowed[li.LocalID] = struct{}{}
	}
	edits := make(map[string]ReviewedItem, len(reviewed))
	for _, r := range reviewed {
		if _, ok := allowed[r.LocalID]; !ok {
			return nil, ErrUnknownReviewItem
		}
		edits[r.LocalID] = r
	}
	out := CloneLineItems(items)
	for i := range out {
		edit, ok := edits[out[i].LocalID]
		if !ok {
			continue
		}
		if edit.Barcode != nil {
			out[i].Barcode = *edit.Barcode
		}
		if edit.SalePrice != nil {
			out[i].SalePrice = edit.SalePrice
		}
		if edit.MinStock != nil {
			out[i].MinStock = edit.MinStock
		}
		if edit.MaxStock != nil {
			out[i].MaxStock = edit.MaxStock
		}
	}
	return out, nil
}
