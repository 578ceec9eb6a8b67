package service

import (
	"context"
	"testing"
	"time"

	"pos-backoffice/internal/model"
	"pos-backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeReports struct {
	sales    []repository.DailyAmount
	expenses []repository.DailyAmount
	methods  []repository.PaymentMethodTotal
}

func (f *fakeReports) DailySales(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]repository.DailyAmount, error) {
	return f.sales, nil
}

func (f *fakeReports) DailyExpenses(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]repository.DailyAmount, error) {
	return f.expenses, nil
}

func (f *fakeReports) TotalsByPaymentMethod(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]repository.PaymentMethodTotal, error) {
	return f.methods, nil
}

func TestGetSalesMovement_FillsEmptyDays(t *testing.T) {
	reports := &fakeReports{
		sales:    []repository.DailyAmount{{Date: "2026-03-13", Amount: dec("120"), Count: 4}},
		expenses: []repository.DailyAmount{{Date: "2026-03-15", Amount: dec("30")}},
	}
	svc := NewDashboardService(reports, newFakeProducts(), newFakeTenants()).(*dashboardService)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC) }

	points, err := svc.GetSalesMovement(context.Background(), uuid.New(), 3)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "2026-03-13", points[0].Date)
	assert.Equal(t, "120", points[0].Sales.String())
	assert.Equal(t, int64(4), points[0].SalesCount)
	assert.True(t, points[1].Sales.IsZero())
	assert.Equal(t, "30", points[2].Expenses.String())
}

func TestGetSummary_UsesTenantLowStockThreshold(t *testing.T) {
	tenant := &model.Tenant{Name: "T", IsActive: true}
	tenant.ID = uuid.New()
	threshold := dec("3")
	settings := model.TenantSettings{LowStockThreshold: &threshold}
	tenant.Settings = datatypes.NewJSONType(settings)

	low := &model.Product{TenantID: tenant.ID, SKU: "1", Stock: dec("2")}
	low.ID = uuid.New()
	ok := &model.Product{TenantID: tenant.ID, SKU: "2", Stock: dec("8")}
	ok.ID = uuid.New()

	reports := &fakeReports{
		sales: []repository.DailyAmount{
			{Date: "2026-03-01", Amount: dec("100"), Count: 2},
			{Date: "2026-03-15", Amount: dec("40"), Count: 1},
		},
		expenses: []repository.DailyAmount{{Date: "2026-03-02", Amount: dec("25")}},
	}
	svc := NewDashboardService(reports, newFakeProducts(low, ok), newFakeTenants(tenant)).(*dashboardService)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC) }

	summary, err := svc.GetSummary(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "40", summary.TodaySales.String())
	assert.Equal(t, int64(1), summary.TodaySalesCount)
	assert.Equal(t, "140", summary.MonthSales.String())
	assert.Equal(t, "25", summary.MonthExpenses.String())
	assert.Equal(t, int64(1), summary.LowStockProducts)
}
