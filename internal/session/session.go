// Package session holds the client-side state of a POS terminal: the signed
// in user, the cart being rung up and the queue of sales that could not be
// delivered. State lives on a Session value and is persisted through
// Snapshot and Restore.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pos-backoffice/internal/model"
	"pos-backoffice/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const snapshotVersion = 1

var (
	ErrNotSignedIn = errors.New("session is not signed in")
	ErrEmptyCart   = errors.New("cart is empty")
	ErrUnknownLine = errors.New("product is not in the cart")
)

// Auth is the signed in terminal user.
type Auth struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	POSID     string `json:"pos_id"`
	POSNumber int    `json:"pos_number"`
}

type CartLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  decimal.Decimal `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(l.Quantity).Round(2)
}

type Cart struct {
	Lines            []CartLine           `json:"lines"`
	CustomerID       *string              `json:"customer_id,omitempty"`
	PaymentMethod    string               `json:"payment_method,omitempty"`
	PaymentBreakdown []model.PaymentSplit `json:"payment_breakdown,omitempty"`
}

type Session struct {
	mu    sync.Mutex
	Auth  *Auth
	Cart  Cart
	Queue Queue
	now   func() time.Time
}

func New() *Session {
	return &Session{now: time.Now}
}

type snapshot struct {
	Version int          `json:"version"`
	Auth    *Auth        `json:"auth,omitempty"`
	Cart    Cart         `json:"cart"`
	Queue   []QueuedSale `json:"queue"`
}

// Snapshot serializes the whole session for local persistence.
func (s *Session) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(snapshot{
		Version: snapshotVersion,
		Auth:    s.Auth,
		Cart:    s.Cart,
		Queue:   s.Queue.Entries(),
	})
}

// Restore replaces the session state with a snapshot.
func (s *Session) Restore(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode session snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported session snapshot version %d", snap.Version)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Auth = snap.Auth
	s.Cart = snap.Cart
	s.Queue.reset(snap.Queue)
	return nil
}

func (s *Session) SignIn(auth Auth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Auth = &auth
}

// SignOut drops credentials and the cart. Queued sales are kept so they can
// be replayed by the next user of the terminal.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Auth = nil
	s.Cart = Cart{}
}

// AddItem adds qty of a product, merging with an existing line.
func (s *Session) AddItem(productID, name string, unitPrice, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return errors.New("quantity must be a positive number")
	}
	if unitPrice.IsNegative() {
		return errors.New("unit price cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Cart.Lines {
		if s.Cart.Lines[i].ProductID == productID {
			s.Cart.Lines[i].Quantity = s.Cart.Lines[i].Quantity.Add(qty)
			return nil
		}
	}
	s.Cart.Lines = append(s.Cart.Lines, CartLine{
		ProductID: productID,
		Name:      strings.TrimSpace(name),
		UnitPrice: unitPrice,
		Quantity:  qty,
	})
	return nil
}

// SetQuantity changes a line's quantity. Zero removes the line.
func (s *Session) SetQuantity(productID string, qty decimal.Decimal) error {
	if qty.IsNegative() {
		return errors.New("quantity must be a positive number")
	}
	if qty.IsZero() {
		return s.RemoveItem(productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Cart.Lines {
		if s.Cart.Lines[i].ProductID == productID {
			s.Cart.Lines[i].Quantity = qty
			return nil
		}
	}
	return ErrUnknownLine
}

func (s *Session) RemoveItem(productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Cart.Lines {
		if s.Cart.Lines[i].ProductID == productID {
			s.Cart.Lines = append(s.Cart.Lines[:i], s.Cart.Lines[i+1:]...)
			return nil
		}
	}
	return ErrUnknownLine
}

func (s *Session) SetCustomer(customerID *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Cart.CustomerID = customerID
}

func (s *Session) SetPayment(method string, breakdown []model.PaymentSplit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Cart.PaymentMethod = method
	s.Cart.PaymentBreakdown = breakdown
}

// Total is the sum of line subtotals, each rounded to cents.
func (s *Session) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Cart.total()
}

func (c Cart) total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Checkout turns the cart into a sale request carrying a fresh idempotency
// key and clears the cart. The caller submits the request or enqueues it.
func (s *Session) Checkout() (*service.SaleRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Auth == nil {
		return nil, ErrNotSignedIn
	}
	if len(s.Cart.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]model.SaleItem, 0, len(s.Cart.Lines))
	for _, l := range s.Cart.Lines {
		items = append(items, model.SaleItem{
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal(),
		})
	}
	total := s.Cart.total()
	method := s.Cart.PaymentMethod
	if method == "" {
		method = model.PaymentCash
	}

	req := &service.SaleRequest{
		TenantID:         s.Auth.TenantID,
		POSID:            s.Auth.POSID,
		POSNumber:        s.Auth.POSNumber,
		Items:            items,
		Total:            &total,
		PaymentMethod:    method,
		PaymentBreakdown: s.Cart.PaymentBreakdown,
		CustomerID:       s.Cart.CustomerID,
		IdempotencyKey:   uuid.NewString(),
	}
	s.Cart = Cart{}
	return req, nil
}

// Enqueue stores a sale that could not be delivered.
func (s *Session) Enqueue(req *service.SaleRequest) {
	s.Queue.Enqueue(req, s.now())
}
