package docflow

import (
	"math"

	"github.com/doculedger/doculedger/internal/inventory"
)

// DetectDiscrepancies compares each line item's incoming unit price against
// the most recent known price of its matched catalog record. Items with no
// match, or with a price within tolerance, pass straight through.
func DetectDiscrepancies(items []LineItem, snapshot []inventory.CatalogItem) []Discrepancy {
	lookup := buildCatalogLookup(snapshot)
	var out []Discrepancy
	for _, li := range items {
		matched, ok := lookup.Match(li)
		if !ok {
			continue
		}
		if math.Abs(matched.UnitPrice-li.UnitPrice) <= priceTolerance {
			continue
		}
		out = append(out, Discrepancy{
			Line:              li,
			ExistingUnitPrice: matched.UnitPrice,
			IncomingUnitPrice: li.UnitPrice,
		})
	}
	return out
}

// ApplyResolutions settles every open discrepancy and returns the adjusted
// line items. Every discrepancy must be addressed; a resolution referencing
// no open discrepancy is rejected.
func ApplyResolutions(items []LineItem, open []Discrepancy, resolutions []Resolution) ([]LineItem, error) {
	openByID := make(map[string]Discrepancy, len(open))
	for _, d := range open {
		openByID[d.Line.LocalID] = d
	}
	decided := make(map[string]Resolution, len(resolutions))
	for _, res := range resolutions {
		if _, ok := openByID[res.LineLocalID]; !ok {
			return nil, ErrUnknownResolution
		}
		decided[res.LineLocalID] = res
	}
	if len(decided) != len(openByID) {
		return nil, ErrUnresolvedDiscrepancies
	}

	out := CloneLineItems(items)
	for i := range out {
		res, ok := decided[out[i].LocalID]
		if !ok {
			continue
		}
		switch res.Choice {
		case ResolutionAcceptIncoming:
			// Incoming price stands as extracted.
		case ResolutionKeepExisting:
			out[i].ApplyEdit(FieldUnitPrice, openByID[res.LineLocalID].ExistingUnitPrice)
		case ResolutionOverride:
			out[i].ApplyEdit(FieldUnitPrice, res.OverridePrice)
		default:
			return nil, ErrUnknownResolution
		}
	}
	return out, nil
}
