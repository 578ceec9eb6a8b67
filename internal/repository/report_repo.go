package repository

import (
	"context"
	"time"

	"pos-backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DailyAmount is one point of a per-day series.
type DailyAmount struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Count  int64           `json:"count"`
}

// PaymentMethodTotal aggregates sales by payment method.
type PaymentMethodTotal struct {
	PaymentMethod string          `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	Count         int64           `json:"count"`
}

type ReportRepository interface {
	DailySales(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]DailyAmount, error)
	DailyExpenses(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]DailyAmount, error)
	TotalsByPaymentMethod(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]PaymentMethodTotal, error)
}

type reportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) ReportRepository {
	return &reportRepo{db}
}

func (r *reportRepo) DailySales(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]DailyAmount, error) {
	rows, err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select(`
			TO_CHAR(DATE(created_at), 'YYYY-MM-DD') as date,
			COALESCE(SUM(total), 0) as amount,
			COUNT(*) as count
		`).
		Where("tenant_id = ? AND created_at BETWEEN ? AND ?", tenantID, start, end).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDaily(rows.Next, rows.Scan)
}

func (r *reportRepo) DailyExpenses(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]DailyAmount, error) {
	rows, err := r.db.WithContext(ctx).Model(&model.Expense{}).
		Select(`
			TO_CHAR(expense_date, 'YYYY-MM-DD') as date,
			COALESCE(SUM(amount), 0) as amount,
			COUNT(*) as count
		`).
		Where("tenant_id = ? AND approval_status <> ? AND expense_date BETWEEN ? AND ?",
			tenantID, model.ApprovalRejected, start, end).
		Group("expense_date").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDaily(rows.Next, rows.Scan)
}

func scanDaily(next func() bool, scan func(dest ...any) error) ([]DailyAmount, error) {
	var results []DailyAmount
	for next() {
		var data DailyAmount
		if err := scan(&data.Date, &data.Amount, &data.Count); err != nil {
			return nil, err
		}
		results = append(results, data)
	}
	return results, nil
}

func (r *reportRepo) TotalsByPaymentMethod(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]PaymentMethodTotal, error) {
	var totals []PaymentMethodTotal
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("payment_method, COALESCE(SUM(total), 0) as total, COUNT(*) as count").
		Where("tenant_id = ? AND created_at BETWEEN ? AND ?", tenantID, start, end).
		Group("payment_method").
		Order("total DESC").
		Scan(&totals).Error
	return totals, err
}
