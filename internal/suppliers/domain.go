package suppliers

import (
	"errors"
	"time"
)

// Supplier is a persisted vendor record scoped to one owner.
type Supplier struct {
	ID         int64     `json:"id"`
	OwnerID    int64     `json:"-"`
	Name       string    `json:"name"`
	TermsLabel string    `json:"terms_label"`
	TaxID      string    `json:"tax_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewSupplier carries the fields required to create a supplier.
type NewSupplier struct {
	Name       string
	TermsLabel string
	TaxID      string
}

// UpdateFields carries a partial supplier update. Nil pointers leave the
// stored value untouched.
type UpdateFields struct {
	TermsLabel *string
	TaxID      *string
}

var (
	// ErrDuplicateName indicates a supplier with the same name already exists.
	ErrDuplicateName = errors.New("suppliers: name already exists")
	// ErrNotFound indicates the supplier does not exist for the owner.
	ErrNotFound = errors.New("suppliers: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("suppliers: invalid input")
)
