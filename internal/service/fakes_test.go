package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"pos-backoffice/internal/model"
	"pos-backoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type fakeProducts struct {
	mu           sync.Mutex
	items        map[uuid.UUID]*model.Product
	atomicErr    error
	setStockErr  error
	atomicCalls  int
	setStockCall int
}

func newFakeProducts(products ...*model.Product) *fakeProducts {
	f := &fakeProducts{items: map[uuid.UUID]*model.Product{}}
	for _, p := range products {
		f.items[p.ID] = p
	}
	return f
}

func (f *fakeProducts) Create(ctx context.Context, p *model.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.items[p.ID] = p
	return nil
}

func (f *fakeProducts) FindAll(ctx context.Context, tenantID uuid.UUID) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Product
	for _, p := range f.items {
		if p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProducts) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok || p.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Product
	for _, id := range ids {
		if p, ok := f.items[id]; ok && p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProducts) FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		if p.TenantID == tenantID && p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeProducts) Update(ctx context.Context, p *model.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakeProducts) DecrementStockAtomic(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.atomicCalls++
	if f.atomicErr != nil {
		return f.atomicErr
	}
	p, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock = p.Stock.Sub(quantity)
	return nil
}

func (f *fakeProducts) SetStock(ctx context.Context, tenantID, id uuid.UUID, stock decimal.Decimal, updatedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setStockCall++
	if f.setStockErr != nil {
		return f.setStockErr
	}
	p, ok := f.items[id]
	if !ok || p.TenantID != tenantID {
		return repository.ErrNotFound
	}
	p.Stock = stock
	return nil
}

func (f *fakeProducts) IncrementStock(ctx context.Context, tenantID, id uuid.UUID, quantity decimal.Decimal, updatedBy string) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok || p.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	p.Stock = p.Stock.Add(quantity)
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) CountLowStock(ctx context.Context, tenantID uuid.UUID, threshold decimal.Decimal) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.items {
		if p.TenantID == tenantID && p.Stock.LessThanOrEqual(threshold) {
			n++
		}
	}
	return n, nil
}

func (f *fakeProducts) stock(id uuid.UUID) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].Stock
}

type fakeSales struct {
	mu        sync.Mutex
	rows      []model.Sale
	createErr error
	creates   int
}

func (f *fakeSales) Create(ctx context.Context, s *model.Sale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	if s.IdempotencyKey != nil {
		for _, r := range f.rows {
			if r.TenantID == s.TenantID && r.IdempotencyKey != nil && *r.IdempotencyKey == *s.IdempotencyKey {
				return errors.New("duplicate key value violates unique constraint")
			}
		}
	}
	f.rows = append(f.rows, *s)
	return nil
}

func (f *fakeSales) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id && f.rows[i].TenantID == tenantID {
			cp := f.rows[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSales) FindAll(ctx context.Context, tenantID uuid.UUID, filter model.SaleFilter) ([]model.Sale, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Sale
	for _, r := range f.rows {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeSales) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*model.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		r := f.rows[i]
		if r.TenantID == tenantID && r.IdempotencyKey != nil && *r.IdempotencyKey == key {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSales) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeTenants struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Tenant
	err   error
}

func newFakeTenants(tenants ...*model.Tenant) *fakeTenants {
	f := &fakeTenants{items: map[uuid.UUID]*model.Tenant{}}
	for _, t := range tenants {
		f.items[t.ID] = t
	}
	return f
}

func (f *fakeTenants) CreateWithAdmin(ctx context.Context, t *model.Tenant, admin *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	admin.TenantID = &t.ID
	f.items[t.ID] = t
	return nil
}

func (f *fakeTenants) FindByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTenants) FindAll(ctx context.Context) ([]model.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Tenant
	for _, t := range f.items {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeTenants) SetActive(ctx context.Context, id uuid.UUID, active bool, updatedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.IsActive = active
	return nil
}

func (f *fakeTenants) UpdateSettings(ctx context.Context, id uuid.UUID, settings model.TenantSettings, updatedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Settings = datatypes.NewJSONType(settings)
	return nil
}

func (f *fakeTenants) get(id uuid.UUID) *model.Tenant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id]
}

// extendPaidUntil mirrors the row lock of the real ledger: read and write
// happen under one critical section.
func (f *fakeTenants) extendPaidUntil(id uuid.UUID, now time.Time, days int) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok {
		return time.Time{}, repository.ErrNotFound
	}
	next := model.ExtendPaidUntil(t.PaidUntil, now, days)
	t.PaidUntil = &next
	return next, nil
}

type fakeCustomers struct {
	items     map[uuid.UUID]*model.Customer
	lastLimit int
}

func newFakeCustomers(customers ...*model.Customer) *fakeCustomers {
	f := &fakeCustomers{items: map[uuid.UUID]*model.Customer{}}
	for _, c := range customers {
		f.items[c.ID] = c
	}
	return f
}

func (f *fakeCustomers) Create(ctx context.Context, c *model.Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.items[c.ID] = c
	return nil
}

func (f *fakeCustomers) FindAll(ctx context.Context, tenantID uuid.UUID, search string) ([]model.Customer, error) {
	var out []model.Customer
	for _, c := range f.items {
		if c.TenantID == tenantID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCustomers) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Customer, error) {
	c, ok := f.items[id]
	if !ok || c.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCustomers) Update(ctx context.Context, c *model.Customer) error {
	f.items[c.ID] = c
	return nil
}

func (f *fakeCustomers) Delete(ctx context.Context, tenantID, id uuid.UUID, deletedBy string) error {
	c, ok := f.items[id]
	if !ok || c.TenantID != tenantID {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeCustomers) Ranking(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.CustomerRanking, error) {
	f.lastLimit = limit
	return nil, nil
}

type fakeLedger struct {
	mu        sync.Mutex
	rows      []model.TenantBillingTransaction
	tenants   *fakeTenants
	appendErr error
	readErr   error
	receipts  map[uuid.UUID]string
}

func newFakeLedger(tenants *fakeTenants) *fakeLedger {
	return &fakeLedger{tenants: tenants, receipts: map[uuid.UUID]string{}}
}

func (f *fakeLedger) Append(ctx context.Context, entry *model.TenantBillingTransaction, extendDays int) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	var paidUntil *time.Time
	if extendDays > 0 {
		next, err := f.tenants.extendPaidUntil(entry.TenantID, entry.CreatedAt, extendDays)
		if err != nil {
			return nil, err
		}
		paidUntil = &next
	}
	f.rows = append(f.rows, *entry)
	return paidUntil, nil
}

func (f *fakeLedger) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.TenantBillingTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []model.TenantBillingTransaction
	for _, r := range f.rows {
		if r.TenantID == tenantID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeLedger) FindByID(ctx context.Context, id uuid.UUID) (*model.TenantBillingTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			cp := f.rows[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeLedger) AttachReceipt(ctx context.Context, id uuid.UUID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].ReceiptURL = url
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeUsers struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.User
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{items: map[uuid.UUID]*model.User{}}
	for _, u := range users {
		f.items[u.ID] = u
	}
	return f
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.items {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.User
	for _, u := range f.items {
		if u.TenantID != nil && *u.TenantID == tenantID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) Create(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	f.items[u.ID] = &cp
	return nil
}

func (f *fakeUsers) Update(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.items[u.ID] = &cp
	return nil
}

func (f *fakeUsers) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[userID].Password = hashedPassword
	return nil
}

func (f *fakeUsers) UpdateTokenVersion(ctx context.Context, userID uuid.UUID, version string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[userID].TokenVersion = version
	return nil
}

func (f *fakeUsers) UpdateLastSeen(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.items[userID].LastSeenAt = &now
	return nil
}

type notification struct {
	kind     string
	tenantID string
	amount   decimal.Decimal
	at       time.Time
	active   bool
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (n *recordingNotifier) PaymentRegistered(tenantID, tenantName string, amount decimal.Decimal, paidUntil time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{kind: "payment", tenantID: tenantID, amount: amount, at: paidUntil})
}

func (n *recordingNotifier) OverdueDebt(tenantID, tenantName string, balance decimal.Decimal, oldestDebt time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{kind: "overdue", tenantID: tenantID, amount: balance, at: oldestDebt})
}

func (n *recordingNotifier) TenantStatusChanged(tenantID, tenantName string, active bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{kind: "status", tenantID: tenantID, active: active})
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []interface{}
}

func (p *recordingPublisher) Publish(tenantID string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, payload)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
