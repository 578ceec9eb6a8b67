package service

import (
	"context"
	"time"

	"pos-backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxMovementDays = 366

// MovementPoint is one day of the sales vs expenses chart.
type MovementPoint struct {
	Date       string          `json:"date"`
	Sales      decimal.Decimal `json:"sales"`
	SalesCount int64           `json:"sales_count"`
	Expenses   decimal.Decimal `json:"expenses"`
}

type DashboardSummary struct {
	TodaySales       decimal.Decimal                 `json:"today_sales"`
	TodaySalesCount  int64                           `json:"today_sales_count"`
	MonthSales       decimal.Decimal                 `json:"month_sales"`
	MonthExpenses    decimal.Decimal                 `json:"month_expenses"`
	PaymentMethods   []repository.PaymentMethodTotal `json:"payment_methods"`
	LowStockProducts int64                           `json:"low_stock_products"`
}

type DashboardService interface {
	GetSalesMovement(ctx context.Context, tenantID uuid.UUID, days int) ([]MovementPoint, error)
	GetSummary(ctx context.Context, tenantID uuid.UUID) (*DashboardSummary, error)
}

type dashboardService struct {
	reports  repository.ReportRepository
	products repository.ProductRepository
	tenants  repository.TenantRepository
	now      func() time.Time
}

func NewDashboardService(reports repository.ReportRepository, products repository.ProductRepository, tenants repository.TenantRepository) DashboardService {
	return &dashboardService{reports: reports, products: products, tenants: tenants, now: time.Now}
}

// GetSalesMovement returns one point per day, oldest first, including days
// without activity.
func (s *dashboardService) GetSalesMovement(ctx context.Context, tenantID uuid.UUID, days int) ([]MovementPoint, error) {
	if days <= 0 {
		days = 7
	}
	if days > maxMovementDays {
		days = maxMovementDays
	}

	endDate := s.now()
	startDay := startOfDay(endDate).AddDate(0, 0, -(days - 1))

	sales, err := s.reports.DailySales(ctx, tenantID, startDay, endDate)
	if err != nil {
		return nil, err
	}
	expenses, err := s.reports.DailyExpenses(ctx, tenantID, startDay, endDate)
	if err != nil {
		return nil, err
	}
	return mergeMovement(startDay, days, sales, expenses), nil
}

func mergeMovement(start time.Time, days int, sales, expenses []repository.DailyAmount) []MovementPoint {
	points := make([]MovementPoint, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		points[i] = MovementPoint{Date: date, Sales: decimal.Zero, Expenses: decimal.Zero}
		index[date] = i
	}
	for _, row := range sales {
		if i, ok := index[row.Date]; ok {
			points[i].Sales = row.Amount
			points[i].SalesCount = row.Count
		}
	}
	for _, row := range expenses {
		if i, ok := index[row.Date]; ok {
			points[i].Expenses = row.Amount
		}
	}
	return points
}

func (s *dashboardService) GetSummary(ctx context.Context, tenantID uuid.UUID) (*DashboardSummary, error) {
	now := s.now()
	today := startOfDay(now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	summary := &DashboardSummary{}

	sales, err := s.reports.DailySales(ctx, tenantID, monthStart, now)
	if err != nil {
		return nil, err
	}
	todayKey := today.Format("2006-01-02")
	for _, row := range sales {
		summary.MonthSales = summary.MonthSales.Add(row.Amount)
		if row.Date == todayKey {
			summary.TodaySales = row.Amount
			summary.TodaySalesCount = row.Count
		}
	}

	expenses, err := s.reports.DailyExpenses(ctx, tenantID, monthStart, now)
	if err != nil {
		return nil, err
	}
	for _, row := range expenses {
		summary.MonthExpenses = summary.MonthExpenses.Add(row.Amount)
	}

	summary.PaymentMethods, err = s.reports.TotalsByPaymentMethod(ctx, tenantID, monthStart, now)
	if err != nil {
		return nil, err
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	threshold := tenant.EffectiveSettings().LowStockThreshold
	summary.LowStockProducts, err = s.products.CountLowStock(ctx, tenantID, *threshold)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
