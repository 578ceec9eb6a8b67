package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	PaymentCash  = "cash"
	PaymentMixed = "mixed"
)

// Sale is immutable once committed. Items are embedded and owned by the sale.
type Sale struct {
	ID               uuid.UUID                         `gorm:"type:uuid;primary_key" json:"id"`
	TenantID         uuid.UUID                         `gorm:"type:uuid;not null;index;uniqueIndex:ux_sales_tenant_idem,priority:1" json:"tenant_id"`
	POSID            string                            `gorm:"type:varchar(100);not null" json:"pos_id"`
	POSNumber        int                               `gorm:"not null;default:1" json:"pos_number"`
	CustomerID       *uuid.UUID                        `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	Items            datatypes.JSONSlice[SaleItem]     `gorm:"type:jsonb;not null" json:"items"`
	Total            decimal.Decimal                   `gorm:"type:numeric(14,2);not null" json:"total"`
	PaymentMethod    string                            `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentBreakdown datatypes.JSONSlice[PaymentSplit] `gorm:"type:jsonb" json:"payment_breakdown,omitempty"`
	IdempotencyKey   *string                           `gorm:"type:varchar(100);uniqueIndex:ux_sales_tenant_idem,priority:2" json:"idempotency_key,omitempty"`
	CreatedBy        string                            `gorm:"type:varchar(255)" json:"created_by"`
	CreatedAt        time.Time                         `gorm:"index" json:"created_at"`
}

type SaleItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// PaymentSplit is one leg of a mixed payment.
type PaymentSplit struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// SaleFilter narrows sale listings. Zero values mean "no filter".
type SaleFilter struct {
	From       *time.Time
	To         *time.Time
	POSNumber  *int
	CustomerID *uuid.UUID
	Limit      int
	Offset     int
}
