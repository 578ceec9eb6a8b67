package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product stock is a best-effort count: sales decrement it, purchases
// increment it, and nothing reserves it.
type Product struct {
	BaseModel
	TenantID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_products_tenant_sku,priority:1" json:"tenant_id"`
	SKU      string          `gorm:"type:varchar(50);not null;uniqueIndex:ux_products_tenant_sku,priority:2" json:"sku" validate:"required"`
	Name     string          `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Stock    decimal.Decimal `gorm:"type:numeric(14,3);default:0" json:"stock"`
	Unit     string          `gorm:"type:varchar(20)" json:"unit"`
	Price    decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"price"`
}
