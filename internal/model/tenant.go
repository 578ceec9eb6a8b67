package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CurrentSettingsVersion is the TenantSettings layout written by this build.
const CurrentSettingsVersion = 2

// Tenant is an isolated business account. IsActive is only written by a
// superadmin; PaidUntil only moves forward when a payment is registered.
type Tenant struct {
	BaseModel
	Name      string                             `gorm:"type:varchar(255);not null" json:"name"`
	Settings  datatypes.JSONType[TenantSettings] `gorm:"type:jsonb" json:"settings"`
	IsActive  bool                               `gorm:"default:true" json:"is_active"`
	PaidUntil *time.Time                         `json:"paid_until,omitempty"`
}

// EffectiveSettings returns the stored settings merged with defaults.
func (t *Tenant) EffectiveSettings() TenantSettings {
	return t.Settings.Data().Effective()
}

// ExtendPaidUntil stacks days on top of the later of now and current, so an
// extension never shortens an existing paid period.
func ExtendPaidUntil(current *time.Time, now time.Time, days int) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.AddDate(0, 0, days)
}

// TenantSettings is the per-tenant configuration blob. Optional fields are
// pointers so an unset value can be told apart from a zero value.
type TenantSettings struct {
	Version           int                        `json:"version"`
	POSNames          map[string]string          `json:"pos_names,omitempty"`
	POSLocations      map[string]string          `json:"pos_locations,omitempty"`
	Commissions       map[string]decimal.Decimal `json:"commissions,omitempty"`
	Theme             *string                    `json:"theme,omitempty"`
	DecrementStock    *bool                      `json:"decrement_stock,omitempty"`
	LowStockThreshold *decimal.Decimal           `json:"low_stock_threshold,omitempty"`
}

func DefaultTenantSettings() TenantSettings {
	theme := "light"
	decrement := true
	threshold := decimal.NewFromInt(10)
	return TenantSettings{
		Version:           CurrentSettingsVersion,
		POSNames:          map[string]string{"1": "Caja 1"},
		POSLocations:      map[string]string{},
		Commissions:       map[string]decimal.Decimal{},
		Theme:             &theme,
		DecrementStock:    &decrement,
		LowStockThreshold: &threshold,
	}
}

// Merge fills every unset field of s from defaults. Map entries present in s
// win over entries with the same key in defaults. The result always carries
// CurrentSettingsVersion.
func (s TenantSettings) Merge(defaults TenantSettings) TenantSettings {
	out := TenantSettings{
		Version:           CurrentSettingsVersion,
		POSNames:          mergeStringMap(defaults.POSNames, s.POSNames),
		POSLocations:      mergeStringMap(defaults.POSLocations, s.POSLocations),
		Commissions:       mergeDecimalMap(defaults.Commissions, s.Commissions),
		Theme:             s.Theme,
		DecrementStock:    s.DecrementStock,
		LowStockThreshold: s.LowStockThreshold,
	}
	if out.Theme == nil {
		out.Theme = defaults.Theme
	}
	if out.DecrementStock == nil {
		out.DecrementStock = defaults.DecrementStock
	}
	if out.LowStockThreshold == nil {
		out.LowStockThreshold = defaults.LowStockThreshold
	}
	return out
}

func (s TenantSettings) Effective() TenantSettings {
	return s.Merge(DefaultTenantSettings())
}

// StockDecrementEnabled defaults to true when the flag was never set.
func (s TenantSettings) StockDecrementEnabled() bool {
	if s.DecrementStock == nil {
		return true
	}
	return *s.DecrementStock
}

func mergeStringMap(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func mergeDecimalMap(base, override map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// TenantSummary is the superadmin list view of a tenant.
type TenantSummary struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	IsActive    bool            `json:"is_active"`
	PaidUntil   *time.Time      `json:"paid_until,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
	LastPayment *time.Time      `json:"last_payment,omitempty"`
}
