package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrSaleNotFound     = errors.New("sale not found")
	ErrExpenseNotFound  = errors.New("expense not found")
	ErrForbiddenTenant  = errors.New("resource belongs to another tenant")
)

// SaleErrorKind classifies sale commit failures.
type SaleErrorKind string

const (
	// SaleErrValidation covers malformed or inconsistent cart data.
	SaleErrValidation SaleErrorKind = "validation"
	// SaleErrReferential covers unknown products, tenants or customers.
	SaleErrReferential SaleErrorKind = "referential"
	// SaleErrConsistency covers total mismatches.
	SaleErrConsistency SaleErrorKind = "consistency"
	// SaleErrConflict means the same idempotency key is still in flight.
	SaleErrConflict SaleErrorKind = "conflict"
	// SaleErrPersistence covers write failures after validation passed.
	SaleErrPersistence SaleErrorKind = "persistence"
)

// SaleError is returned by SaleService.Commit. Every kind except
// SaleErrPersistence is raised before any write.
type SaleError struct {
	Kind     SaleErrorKind
	Message  string
	Missing  []string
	Expected *decimal.Decimal
	Received *decimal.Decimal
	Err      error
}

func (e *SaleError) Error() string {
	return e.Message
}

func (e *SaleError) Unwrap() error {
	return e.Err
}

// IsClientError reports whether the caller sent something it must fix.
func (e *SaleError) IsClientError() bool {
	return e.Kind != SaleErrPersistence
}

func validationError(format string, args ...interface{}) *SaleError {
	return &SaleError{Kind: SaleErrValidation, Message: fmt.Sprintf(format, args...)}
}

func missingProductsError(ids []string) *SaleError {
	return &SaleError{
		Kind:    SaleErrReferential,
		Message: "products not found: " + strings.Join(ids, ", "),
		Missing: ids,
	}
}

func totalMismatchError(expected, received decimal.Decimal) *SaleError {
	return &SaleError{
		Kind:     SaleErrConsistency,
		Message:  fmt.Sprintf("total mismatch: expected %s, received %s", expected.StringFixed(2), received.StringFixed(2)),
		Expected: &expected,
		Received: &received,
	}
}
