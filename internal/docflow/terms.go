package docflow

import (
	"strings"
	"time"
)

// Canonical labels for the non-custom payment term options. Supplier records
// store terms as free text; these are the values written by this service.
const (
	labelImmediate  = "Immediate"
	labelNet30      = "Net 30"
	labelNet60      = "Net 60"
	labelEndOfMonth = "End of Month"
)

// dateLayouts are tried in order when a terms label is not a canonical option.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"January 2, 2006",
}

// TermsResolution is the outcome of parsing a supplier payment-terms label.
type TermsResolution struct {
	Option  PaymentTermOption
	DueDate *time.Time
	// Raw carries the original label when it matched neither a canonical
	// option nor a date, so it can be re-persisted verbatim.
	Raw string
}

// ParseTermsLabel maps a stored payment-terms label to an option and an
// optional due date. Labels that match none of the canonical options are
// tried as dates; if that also fails the result is CUSTOM with no due date
// and the raw label preserved.
func ParseTermsLabel(label string) TermsResolution {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return TermsResolution{Option: TermNone}
	}
	switch {
	case strings.EqualFold(trimmed, labelImmediate):
		return TermsResolution{Option: TermImmediate}
	case strings.EqualFold(trimmed, labelNet30):
		return TermsResolution{Option: TermNet30}
	case strings.EqualFold(trimmed, labelNet60):
		return TermsResolution{Option: TermNet60}
	case strings.EqualFold(trimmed, labelEndOfMonth):
		return TermsResolution{Option: TermEndOfMonth}
	}
	for _, layout := range dateLayouts {
		if due, err := time.Parse(layout, trimmed); err == nil {
			return TermsResolution{Option: TermCustom, DueDate: &due}
		}
	}
	return TermsResolution{Option: TermCustom, Raw: trimmed}
}

// FormatTermsLabel is the inverse of ParseTermsLabel: it derives the label
// persisted on supplier and document records. A custom option without a due
// date falls back to the preserved raw label.
func FormatTermsLabel(option PaymentTermOption, dueDate *time.Time, raw string) string {
	switch option {
	case TermImmediate:
		return labelImmediate
	case TermNet30:
		return labelNet30
	case TermNet60:
		return labelNet60
	case TermEndOfMonth:
		return labelEndOfMonth
	case TermCustom:
		if dueDate != nil {
			return dueDate.Format("2006-01-02")
		}
		return raw
	default:
		return ""
	}
}
