package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Customer struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name     string    `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Phone    string    `gorm:"type:varchar(40)" json:"phone"`
	Email    string    `gorm:"type:varchar(255)" json:"email" validate:"omitempty,email"`
	Notes    string    `gorm:"type:text" json:"notes"`
}

// CustomerRanking is derived from the sales linked to a customer; it is never stored.
type CustomerRanking struct {
	CustomerID   uuid.UUID       `json:"customer_id"`
	Name         string          `json:"name"`
	SalesCount   int64           `json:"sales_count"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
	LastPurchase *time.Time      `json:"last_purchase,omitempty"`
}
