package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const ExpenseCategoryInventoryPurchase = "Compra de Inventario"

const (
	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
)

const (
	ApprovalPending  = "pendiente"
	ApprovalApproved = "aprobado"
	ApprovalRejected = "rechazado"
)

type Expense struct {
	BaseModel
	TenantID       uuid.UUID                        `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Category       string                           `gorm:"type:varchar(50);not null" json:"category"`
	Description    string                           `gorm:"type:text" json:"description"`
	Amount         decimal.Decimal                  `gorm:"type:numeric(14,2);not null" json:"amount"`
	PaymentStatus  string                           `gorm:"type:varchar(10);not null" json:"payment_status"`
	ApprovalStatus string                           `gorm:"type:varchar(12);not null" json:"approval_status"`
	Items          datatypes.JSONSlice[ExpenseItem] `gorm:"type:jsonb" json:"items,omitempty"`
	ExpenseDate    time.Time                        `gorm:"type:date;index" json:"expense_date"`
	// StockApplied is set once an approved inventory purchase has incremented stock.
	StockApplied bool `gorm:"default:false" json:"stock_applied"`
}

type ExpenseItem struct {
	ProductID   *uuid.UUID      `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}
