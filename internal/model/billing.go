package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BillingTransactionType string

const (
	BillingPayment BillingTransactionType = "payment"
	BillingDebt    BillingTransactionType = "debt"
)

// TenantBillingTransaction is an append-only ledger row. Amount is always
// positive; Type decides the sign. Only ReceiptURL may change after insert.
type TenantBillingTransaction struct {
	ID          uuid.UUID              `gorm:"type:uuid;primary_key" json:"id"`
	TenantID    uuid.UUID              `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Amount      decimal.Decimal        `gorm:"type:numeric(14,2);not null" json:"amount"`
	Type        BillingTransactionType `gorm:"type:varchar(10);not null" json:"type"`
	Description string                 `gorm:"type:text" json:"description,omitempty"`
	ReceiptURL  string                 `gorm:"type:text" json:"receipt_url,omitempty"`
	CreatedBy   string                 `gorm:"type:varchar(255)" json:"created_by"`
	CreatedAt   time.Time              `gorm:"index" json:"created_at"`
}

func (TenantBillingTransaction) TableName() string {
	return "tenant_billing"
}

// SignedAmount is positive for debts and negative for payments.
func (t TenantBillingTransaction) SignedAmount() decimal.Decimal {
	if t.Type == BillingPayment {
		return t.Amount.Neg()
	}
	return t.Amount
}
