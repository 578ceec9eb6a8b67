package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pos-backoffice/internal/idempotency"
	"pos-backoffice/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type saleFixture struct {
	svc       *saleService
	tenant    *model.Tenant
	productA  *model.Product
	productB  *model.Product
	products  *fakeProducts
	sales     *fakeSales
	tenants   *fakeTenants
	customers *fakeCustomers
	events    *recordingPublisher
}

func newSaleFixture(t *testing.T, idem idempotency.Store) *saleFixture {
	t.Helper()
	tenant := &model.Tenant{Name: "Kiosco Centro", IsActive: true, Settings: datatypes.NewJSONType(model.DefaultTenantSettings())}
	tenant.ID = uuid.New()

	a := &model.Product{TenantID: tenant.ID, SKU: "A", Name: "Yerba 1kg", Price: dec("10.00"), Stock: dec("10")}
	a.ID = uuid.New()
	b := &model.Product{TenantID: tenant.ID, SKU: "B", Name: "Azucar", Price: dec("2.50"), Stock: dec("5")}
	b.ID = uuid.New()

	f := &saleFixture{
		tenant:    tenant,
		productA:  a,
		productB:  b,
		products:  newFakeProducts(a, b),
		sales:     &fakeSales{},
		tenants:   newFakeTenants(tenant),
		customers: newFakeCustomers(),
		events:    &recordingPublisher{},
	}
	f.svc = NewSaleService(f.sales, f.products, f.tenants, f.customers, idem, f.events, zap.NewNop()).(*saleService)
	return f
}

func (f *saleFixture) cart(total string) *SaleRequest {
	return &SaleRequest{
		TenantID:  f.tenant.ID.String(),
		POSID:     "pos-1",
		POSNumber: 1,
		Items: []model.SaleItem{{
			ProductID:   f.productA.ID.String(),
			ProductName: f.productA.Name,
			Quantity:    dec("2"),
			UnitPrice:   dec("10.00"),
			Subtotal:    dec("20.00"),
		}},
		Total: decPtr(total),
	}
}

func requireSaleError(t *testing.T, err error, kind SaleErrorKind) *SaleError {
	t.Helper()
	require.Error(t, err)
	var saleErr *SaleError
	require.True(t, errors.As(err, &saleErr), "expected *SaleError, got %T", err)
	assert.Equal(t, kind, saleErr.Kind)
	return saleErr
}

func TestCommit_ValidCartPersistsRecomputedTotal(t *testing.T) {
	f := newSaleFixture(t, nil)

	res, err := f.svc.Commit(context.Background(), f.cart("20.00"), "cashier@example.com")
	require.NoError(t, err)
	require.NotNil(t, res.Sale)

	assert.False(t, res.Replayed)
	assert.Equal(t, "20.00", res.Sale.Total.StringFixed(2))
	assert.Equal(t, model.PaymentCash, res.Sale.PaymentMethod)
	assert.Equal(t, 1, f.sales.count())
	assert.Equal(t, "8", f.products.stock(f.productA.ID).String())
	assert.Len(t, f.events.events, 1)
}

func TestCommit_TotalWithinToleranceStoresComputedTotal(t *testing.T) {
	f := newSaleFixture(t, nil)

	res, err := f.svc.Commit(context.Background(), f.cart("20.01"), "cashier")
	require.NoError(t, err)
	assert.Equal(t, "20.00", res.Sale.Total.StringFixed(2))
}

func TestCommit_TotalMismatchRejectedWithoutRow(t *testing.T) {
	f := newSaleFixture(t, nil)

	_, err := f.svc.Commit(context.Background(), f.cart("21.00"), "cashier")
	saleErr := requireSaleError(t, err, SaleErrConsistency)

	assert.Equal(t, "total mismatch: expected 20.00, received 21.00", saleErr.Message)
	require.NotNil(t, saleErr.Expected)
	require.NotNil(t, saleErr.Received)
	assert.Equal(t, "20.00", saleErr.Expected.StringFixed(2))
	assert.Equal(t, "21.00", saleErr.Received.StringFixed(2))
	assert.Equal(t, 0, f.sales.creates)
	assert.Equal(t, "10", f.products.stock(f.productA.ID).String())
}

func (f *saleFixture) halfCentCart(total string) *SaleRequest {
	items := make([]model.SaleItem, 10)
	for i := range items {
		items[i] = model.SaleItem{
			ProductID:   f.productA.ID.String(),
			ProductName: f.productA.Name,
			Quantity:    dec("1"),
			UnitPrice:   dec("1.115"),
			Subtotal:    dec("1.115"),
		}
	}
	return &SaleRequest{
		TenantID:  f.tenant.ID.String(),
		POSID:     "pos-1",
		POSNumber: 1,
		Items:     items,
		Total:     decPtr(total),
	}
}

func TestCommit_TotalMatchesSumOfStoredSubtotals(t *testing.T) {
	f := newSaleFixture(t, nil)

	res, err := f.svc.Commit(context.Background(), f.halfCentCart("11.20"), "cashier")
	require.NoError(t, err)

	sum := decimal.Zero
	for _, item := range res.Sale.Items {
		assert.Equal(t, "1.12", item.Subtotal.String())
		sum = sum.Add(item.Subtotal)
	}
	assert.True(t, sum.Equal(res.Sale.Total), "sum %s total %s", sum, res.Sale.Total)
	assert.Equal(t, "11.20", res.Sale.Total.StringFixed(2))
}

func TestCommit_HalfCentDriftIsTotalMismatch(t *testing.T) {
	f := newSaleFixture(t, nil)

	_, err := f.svc.Commit(context.Background(), f.halfCentCart("11.15"), "cashier")
	saleErr := requireSaleError(t, err, SaleErrConsistency)

	assert.Equal(t, "total mismatch: expected 11.20, received 11.15", saleErr.Message)
	assert.Equal(t, 0, f.sales.creates)
}

func TestCommit_ValidationFailuresNeverPersist(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *saleFixture, req *SaleRequest)
		msg    string
	}{
		{
			name:   "missing pos id",
			mutate: func(f *saleFixture, req *SaleRequest) { req.POSID = "" },
			msg:    "pos_id, tenant_id, items and total are required",
		},
		{
			name:   "missing total",
			mutate: func(f *saleFixture, req *SaleRequest) { req.Total = nil },
			msg:    "pos_id, tenant_id, items and total are required",
		},
		{
			name:   "empty items",
			mutate: func(f *saleFixture, req *SaleRequest) { req.Items = []model.SaleItem{} },
			msg:    "sale must contain at least one item",
		},
		{
			name:   "negative total",
			mutate: func(f *saleFixture, req *SaleRequest) { req.Total = decPtr("-20.00") },
			msg:    "total cannot be negative",
		},
		{
			name: "negative unit price",
			mutate: func(f *saleFixture, req *SaleRequest) {
				req.Items[0].UnitPrice = dec("-10.00")
				req.Items[0].Subtotal = dec("-20.00")
			},
			msg: "item 1: unit price cannot be negative",
		},
		{
			name:   "zero quantity",
			mutate: func(f *saleFixture, req *SaleRequest) { req.Items[0].Quantity = dec("0") },
			msg:    "item 1: quantity must be a positive number",
		},
		{
			name:   "subtotal off by more than a cent",
			mutate: func(f *saleFixture, req *SaleRequest) { req.Items[0].Subtotal = dec("19.98") },
			msg:    "item 1: subtotal 19.98 does not match unit price x quantity (20.00)",
		},
		{
			name:   "missing product name",
			mutate: func(f *saleFixture, req *SaleRequest) { req.Items[0].ProductName = " " },
			msg:    "item 1: product reference and name are required",
		},
		{
			name:   "invalid tenant id",
			mutate: func(f *saleFixture, req *SaleRequest) { req.TenantID = "tenant-1" },
			msg:    "invalid tenant_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSaleFixture(t, nil)
			req := f.cart("20.00")
			tt.mutate(f, req)

			_, err := f.svc.Commit(context.Background(), req, "cashier")
			saleErr := requireSaleError(t, err, SaleErrValidation)
			assert.Equal(t, tt.msg, saleErr.Message)
			assert.True(t, saleErr.IsClientError())
			assert.Equal(t, 0, f.sales.creates)
		})
	}
}

func TestCommit_UnknownProductNameRejected(t *testing.T) {
	for _, name := range []string{"Producto Desconocido", "UNKNOWN item"} {
		f := newSaleFixture(t, nil)
		req := f.cart("20.00")
		req.Items[0].ProductName = name

		_, err := f.svc.Commit(context.Background(), req, "cashier")
		requireSaleError(t, err, SaleErrValidation)
		assert.Equal(t, 0, f.sales.creates)
	}
}

func TestCommit_MissingProductsListed(t *testing.T) {
	f := newSaleFixture(t, nil)
	ghost := uuid.New()
	req := f.cart("23.50")
	req.Items = append(req.Items,
		model.SaleItem{ProductID: ghost.String(), ProductName: "Fantasma", Quantity: dec("1"), UnitPrice: dec("1.00"), Subtotal: dec("1.00")},
		model.SaleItem{ProductID: "legacy-42", ProductName: "Viejo", Quantity: dec("1"), UnitPrice: dec("2.50"), Subtotal: dec("2.50")},
	)

	_, err := f.svc.Commit(context.Background(), req, "cashier")
	saleErr := requireSaleError(t, err, SaleErrReferential)

	assert.ElementsMatch(t, []string{ghost.String(), "legacy-42"}, saleErr.Missing)
	assert.Equal(t, 0, f.sales.creates)
}

func TestCommit_ProductOfAnotherTenantIsMissing(t *testing.T) {
	f := newSaleFixture(t, nil)
	foreign := &model.Product{TenantID: uuid.New(), SKU: "X", Name: "Ajeno", Price: dec("10.00")}
	foreign.ID = uuid.New()
	f.products.items[foreign.ID] = foreign

	req := f.cart("20.00")
	req.Items[0].ProductID = foreign.ID.String()

	_, err := f.svc.Commit(context.Background(), req, "cashier")
	saleErr := requireSaleError(t, err, SaleErrReferential)
	assert.Equal(t, []string{foreign.ID.String()}, saleErr.Missing)
}

func TestCommit_RepeatedProductResolvedOnce(t *testing.T) {
	f := newSaleFixture(t, nil)
	req := f.cart("30.00")
	req.Items = append(req.Items, model.SaleItem{
		ProductID: f.productA.ID.String(), ProductName: f.productA.Name,
		Quantity: dec("1"), UnitPrice: dec("10.00"), Subtotal: dec("10.00"),
	})

	res, err := f.svc.Commit(context.Background(), req, "cashier")
	require.NoError(t, err)
	assert.Len(t, res.Sale.Items, 2)
	assert.Equal(t, "7", f.products.stock(f.productA.ID).String())
}

func TestCommit_UnknownTenantIsReferential(t *testing.T) {
	f := newSaleFixture(t, nil)
	delete(f.tenants.items, f.tenant.ID)

	_, err := f.svc.Commit(context.Background(), f.cart("20.00"), "cashier")
	requireSaleError(t, err, SaleErrReferential)
	assert.Equal(t, 0, f.sales.creates)
}

func TestCommit_CustomerMustBelongToTenant(t *testing.T) {
	f := newSaleFixture(t, nil)
	other := &model.Customer{TenantID: uuid.New(), Name: "Otro"}
	other.ID = uuid.New()
	own := &model.Customer{TenantID: f.tenant.ID, Name: "Marta"}
	own.ID = uuid.New()
	f.customers.items[other.ID] = other
	f.customers.items[own.ID] = own

	req := f.cart("20.00")
	otherID := other.ID.String()
	req.CustomerID = &otherID
	_, err := f.svc.Commit(context.Background(), req, "cashier")
	requireSaleError(t, err, SaleErrReferential)

	ownID := own.ID.String()
	req.CustomerID = &ownID
	res, err := f.svc.Commit(context.Background(), req, "cashier")
	require.NoError(t, err)
	require.NotNil(t, res.Sale.CustomerID)
	assert.Equal(t, own.ID, *res.Sale.CustomerID)
}

func TestCommit_MixedPaymentKeepsBreakdown(t *testing.T) {
	f := newSaleFixture(t, nil)
	req := f.cart("20.00")
	req.PaymentMethod = "Mixed"
	req.PaymentBreakdown = []model.PaymentSplit{
		{Method: "cash", Amount: dec("5.00")},
		{Method: "card", Amount: dec("15.00")},
	}

	res, err := f.svc.Commit(context.Background(), req, "cashier")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentMixed, res.Sale.PaymentMethod)
	assert.Len(t, res.Sale.PaymentBreakdown, 2)
}

func TestCommit_StockFallbackWhenAtomicFails(t *testing.T) {
	f := newSaleFixture(t, nil)
	f.products.atomicErr = errors.New("function decrement_stock does not exist")

	_, err := f.svc.Commit(context.Background(), f.cart("20.00"), "cashier")
	require.NoError(t, err)
	assert.Equal(t, 1, f.products.atomicCalls)
	assert.Equal(t, 1, f.products.setStockCall)
	assert.Equal(t, "8", f.products.stock(f.productA.ID).String())
}

func TestCommit_StockFailuresDoNotFailSale(t *testing.T) {
	f := newSaleFixture(t, nil)
	f.products.atomicErr = errors.New("rpc unavailable")
	f.products.setStockErr = errors.New("connection reset")

	res, err := f.svc.Commit(context.Background(), f.cart("20.00"), "cashier")
	require.NoError(t, err)
	assert.NotNil(t, res.Sale)
	assert.Equal(t, 1, f.sales.count())
	assert.Equal(t, "10", f.products.stock(f.productA.ID).String())
}

func TestCommit_StockDecrementDisabledBySettings(t *testing.T) {
	f := newSaleFixture(t, nil)
	off := false
	settings := model.DefaultTenantSettings()
	settings.DecrementStock = &off
	f.tenants.items[f.tenant.ID].Settings = datatypes.NewJSONType(settings)

	_, err := f.svc.Commit(context.Background(), f.cart("20.00"), "cashier")
	require.NoError(t, err)
	assert.Equal(t, 0, f.products.atomicCalls)
	assert.Equal(t, "10", f.products.stock(f.productA.ID).String())
}

func TestCommit_PersistenceFailureIsServerError(t *testing.T) {
	f := newSaleFixture(t, nil)
	f.sales.createErr = errors.New("connection refused")

	_, err := f.svc.Commit(context.Background(), f.cart("20.00"), "cashier")
	saleErr := requireSaleError(t, err, SaleErrPersistence)
	assert.False(t, saleErr.IsClientError())
	assert.Equal(t, "could not complete the sale", saleErr.Message)
	assert.Equal(t, 0, f.products.atomicCalls)
}

func TestCommit_IdempotencyKeyWithoutRedis(t *testing.T) {
	f := newSaleFixture(t, nil)
	req := f.cart("20.00")
	req.IdempotencyKey = "c0ffee"

	first, err := f.svc.Commit(context.Background(), req, "cashier")
	require.NoError(t, err)
	second, err := f.svc.Commit(context.Background(), req, "cashier")
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Sale.ID, second.Sale.ID)
	assert.Equal(t, 1, f.sales.count())
	assert.Equal(t, "8", f.products.stock(f.productA.ID).String())
}

func newRedisStore(t *testing.T) (*idempotency.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return idempotency.NewRedisStore(client, time.Hour), mr
}

func TestCommit_IdempotencyKeyWithRedis(t *testing.T) {
	store, _ := newRedisStore(t)
	f := newSaleFixture(t, store)
	req := f.cart("20.00")
	req.IdempotencyKey = "offline-1"

	first, err := f.svc.Commit(context.Background(), req, "cashier")
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	// a replay with a changed cart still answers with the original sale
	replay := f.cart("40.00")
	replay.Items[0].Quantity = dec("4")
	replay.Items[0].Subtotal = dec("40.00")
	replay.IdempotencyKey = "offline-1"

	second, err := f.svc.Commit(context.Background(), replay, "cashier")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Sale.ID, second.Sale.ID)
	assert.Equal(t, "20.00", second.Sale.Total.StringFixed(2))
	assert.Equal(t, 1, f.sales.count())
}

func TestCommit_InFlightKeyConflicts(t *testing.T) {
	store, _ := newRedisStore(t)
	f := newSaleFixture(t, store)

	_, reserved, err := store.Reserve(context.Background(), f.tenant.ID.String(), "busy")
	require.NoError(t, err)
	require.True(t, reserved)

	req := f.cart("20.00")
	req.IdempotencyKey = "busy"
	_, err = f.svc.Commit(context.Background(), req, "cashier")
	requireSaleError(t, err, SaleErrConflict)
	assert.Equal(t, 0, f.sales.creates)
}

func TestCommit_RejectedSubmissionReleasesKey(t *testing.T) {
	store, _ := newRedisStore(t)
	f := newSaleFixture(t, store)

	bad := f.cart("21.00")
	bad.IdempotencyKey = "retry-me"
	_, err := f.svc.Commit(context.Background(), bad, "cashier")
	requireSaleError(t, err, SaleErrConsistency)

	good := f.cart("20.00")
	good.IdempotencyKey = "retry-me"
	res, err := f.svc.Commit(context.Background(), good, "cashier")
	require.NoError(t, err)
	assert.False(t, res.Replayed)
}

func TestGetSale_OtherTenantNotFound(t *testing.T) {
	f := newSaleFixture(t, nil)
	res, err := f.svc.Commit(context.Background(), f.cart("20.00"), "cashier")
	require.NoError(t, err)

	_, err = f.svc.GetSale(context.Background(), uuid.New(), res.Sale.ID)
	assert.ErrorIs(t, err, ErrSaleNotFound)

	got, err := f.svc.GetSale(context.Background(), f.tenant.ID, res.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Sale.ID, got.ID)
}
