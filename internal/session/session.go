package session

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Kwoolford/pos-terminal/internal/api"
	"github.com/Kwoolford/pos-terminal/internal/cart"
	"github.com/Kwoolford/pos-terminal/internal/common"
	"github.com/Kwoolford/pos-terminal/internal/events"
	"github.com/Kwoolford/pos-terminal/internal/payment"
	"github.com/Kwoolford/pos-terminal/internal/pricing"
	"github.com/Kwoolford/pos-terminal/internal/returns"
)

// Backend is the slice of the API client the session needs. It is satisfied
// by *api.Client.
type Backend interface {
	ValidateCart(ctx context.Context, in api.CartValidationRequest) (*api.CartValidationResult, error)
	CreateOrder(ctx context.Context, in api.OrderCreate, idempotencyKey string) (*api.Order, error)
	LookupOrder(ctx context.Context, search string) (*api.OrderLookup, error)
	ProcessReturn(ctx context.Context, in api.ReturnCreate, idempotencyKey string) (*api.ReturnResult, error)
	GetReceipt(ctx context.Context, orderID int64) (*api.Receipt, error)
}

// Session is one clerk's terminal state: the working cart, any in-progress
// return, and the idempotency keys protecting the next submissions. Keys
// rotate only after the backend confirms success, so resubmitting after an
// ambiguous failure reuses the same key and cannot double-charge.
type Session struct {
	mu      sync.Mutex
	cart    *cart.Cart
	backend Backend
	bus     *events.Bus
	logger  zerolog.Logger

	orderKey  string
	returnKey string

	activeReturn *returns.Selection
	returnReason string
}

// New constructs a session with a fresh cart and idempotency keys.
func New(backend Backend, bus *events.Bus, logger zerolog.Logger) *Session {
	return &Session{
		cart:      cart.New(),
		backend:   backend,
		bus:       bus,
		logger:    logger,
		orderKey:  uuid.NewString(),
		returnKey: uuid.NewString(),
	}
}

// AddProduct puts qty units of the product in the cart.
func (s *Session) AddProduct(ctx context.Context, p api.Product, qty int) {
	s.mu.Lock()
	s.cart.AddItem(p.ID, p.Name, p.SKU, p.Price, qty)
	s.mu.Unlock()
	s.publish(ctx, events.TopicCartUpdated, nil)
}

// RemoveProduct drops the product's line from the cart.
func (s *Session) RemoveProduct(ctx context.Context, productID int64) {
	s.mu.Lock()
	s.cart.RemoveItem(productID)
	s.mu.Unlock()
	s.publish(ctx, events.TopicCartUpdated, nil)
}

// SetQuantity sets the line quantity; zero or less removes the line.
func (s *Session) SetQuantity(ctx context.Context, productID int64, qty int) {
	s.mu.Lock()
	s.cart.UpdateQuantity(productID, qty)
	s.mu.Unlock()
	s.publish(ctx, events.TopicCartUpdated, nil)
}

// SetItemDiscount applies a flat discount to one line.
func (s *Session) SetItemDiscount(ctx context.Context, productID int64, amount float64, reason string) error {
	s.mu.Lock()
	err := s.cart.UpdateItemDiscount(productID, amount, reason)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publish(ctx, events.TopicCartUpdated, nil)
	return nil
}

// SetCartDiscount applies a flat discount to the whole order, with an
// optional free-text code identifying it.
func (s *Session) SetCartDiscount(ctx context.Context, amount float64, code string) error {
	s.mu.Lock()
	err := s.cart.SetCartDiscount(amount, code)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publish(ctx, events.TopicCartUpdated, nil)
	return nil
}

// ClearCart abandons the sale in progress.
func (s *Session) ClearCart(ctx context.Context) {
	s.mu.Lock()
	s.cart.Clear()
	s.mu.Unlock()
	s.publish(ctx, events.TopicCartCleared, nil)
}

// Lines returns the cart lines in insertion order.
func (s *Session) Lines() []cart.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Lines()
}

// Totals returns the advisory totals for the current cart.
func (s *Session) Totals() pricing.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Totals()
}

// CartDiscount returns the order-level discount.
func (s *Session) CartDiscount() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.CartDiscount()
}

// CartDiscountCode returns the label attached to the order-level discount.
func (s *Session) CartDiscountCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.CartDiscountCode()
}

// OrderKey exposes the idempotency key the next checkout will carry.
func (s *Session) OrderKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderKey
}

// ReturnKey exposes the idempotency key the next refund will carry.
func (s *Session) ReturnKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.returnKey
}

// Checkout validates tender and stock, submits the order, and on success
// clears the cart and rotates the idempotency key. On any failure the cart
// is left untouched so the clerk can retry.
func (s *Session) Checkout(ctx context.Context, pay payment.Details) (*api.Order, error) {
	s.mu.Lock()
	if s.cart.IsEmpty() {
		s.mu.Unlock()
		return nil, common.ValidationError("cart is empty")
	}
	lines := s.cart.Lines()
	totals := s.cart.Totals()
	key := s.orderKey
	s.mu.Unlock()

	if err := pay.Validate(totals.Total); err != nil {
		return nil, err
	}

	checkItems := make([]api.CartValidationItem, 0, len(lines))
	for _, line := range lines {
		checkItems = append(checkItems, api.CartValidationItem{ProductID: line.ProductID, Qty: line.Qty})
	}
	verdict, err := s.backend.ValidateCart(ctx, api.CartValidationRequest{Items: checkItems})
	if err != nil {
		return nil, err
	}
	if !verdict.Valid {
		return nil, &common.AppError{
			Code:       common.CodeRemoteRejected,
			Message:    strings.Join(verdict.Errors, "; "),
			HTTPStatus: http.StatusConflict,
			Details:    verdict.Errors,
		}
	}

	orderItems := make([]api.OrderItemCreate, 0, len(lines))
	for _, line := range lines {
		orderItems = append(orderItems, api.OrderItemCreate{
			ProductID: line.ProductID,
			Qty:       line.Qty,
			UnitPrice: line.UnitPrice,
			Discount:  line.Discount,
		})
	}
	order, err := s.backend.CreateOrder(ctx, api.OrderCreate{
		Items:          orderItems,
		Subtotal:       totals.Subtotal,
		DiscountTotal:  totals.DiscountTotal,
		TaxTotal:       totals.Tax,
		Total:          totals.Total,
		PaymentDetails: pay,
	}, key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cart.Clear()
	s.orderKey = uuid.NewString()
	s.mu.Unlock()

	s.logger.Info().
		Str("order_number", order.OrderNumber).
		Float64("total", order.Total).
		Msg("order_completed")
	s.publish(ctx, events.TopicOrderCompleted, order)
	return order, nil
}

// Receipt fetches the printable receipt for a completed order.
func (s *Session) Receipt(ctx context.Context, orderID int64) (*api.Receipt, error) {
	return s.backend.GetReceipt(ctx, orderID)
}

// BeginReturn looks up the original order and stages its lines as return
// candidates with zero requested quantity.
func (s *Session) BeginReturn(ctx context.Context, search string) (*returns.Selection, error) {
	lookup, err := s.backend.LookupOrder(ctx, search)
	if err != nil {
		return nil, err
	}

	sel := &returns.Selection{OrderID: lookup.ID}
	for _, item := range lookup.Items {
		sel.Candidates = append(sel.Candidates, returns.Candidate{
			OrderItemID: item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			OriginalQty: item.Qty,
			LineTotal:   item.LineTotal,
		})
	}

	s.mu.Lock()
	s.activeReturn = sel
	s.returnReason = ""
	s.mu.Unlock()

	s.publish(ctx, events.TopicReturnStarted, lookup.OrderNumber)
	return sel, nil
}

// ActiveReturn returns the staged selection, or nil when no return is in
// progress.
func (s *Session) ActiveReturn() *returns.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeReturn
}

// SetReturnQuantity sets the requested quantity for one staged line,
// clamped to the originally purchased quantity.
func (s *Session) SetReturnQuantity(orderItemID int64, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.findCandidateLocked(orderItemID)
	if err != nil {
		return err
	}
	c.SetRequested(qty)
	return nil
}

// SetReturnDamaged flags one staged line as damaged. Damaged goods are not
// restocked but refund the same amount.
func (s *Session) SetReturnDamaged(orderItemID int64, damaged bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.findCandidateLocked(orderItemID)
	if err != nil {
		return err
	}
	c.Damaged = damaged
	return nil
}

// SetReturnReason records the clerk's free-form reason for the refund.
func (s *Session) SetReturnReason(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeReturn == nil {
		return common.ValidationError("no return in progress")
	}
	s.returnReason = strings.TrimSpace(reason)
	return nil
}

// ReturnTotal is the refund the staged selection would produce.
func (s *Session) ReturnTotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeReturn == nil {
		return 0
	}
	return s.activeReturn.TotalRefund()
}

// SubmitReturn sends the staged refund. Lines with zero quantity are
// excluded from the payload. On success the staging area is cleared and the
// idempotency key rotates.
func (s *Session) SubmitReturn(ctx context.Context) (*api.ReturnResult, error) {
	s.mu.Lock()
	sel := s.activeReturn
	reason := s.returnReason
	key := s.returnKey
	s.mu.Unlock()

	if sel == nil {
		return nil, common.ValidationError("no return in progress")
	}
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	items := make([]api.ReturnItemCreate, 0, len(sel.Candidates))
	for _, c := range sel.Selected() {
		items = append(items, api.ReturnItemCreate{
			OrderItemID: c.OrderItemID,
			Qty:         c.Requested,
			Damaged:     c.Damaged,
		})
	}
	result, err := s.backend.ProcessReturn(ctx, api.ReturnCreate{
		OrderID: sel.OrderID,
		Items:   items,
		Reason:  reason,
	}, key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.activeReturn = nil
	s.returnReason = ""
	s.returnKey = uuid.NewString()
	s.mu.Unlock()

	s.logger.Info().
		Str("order_number", result.OrderNumber).
		Float64("refund_amount", result.RefundAmount).
		Msg("return_completed")
	s.publish(ctx, events.TopicReturnCompleted, result)
	return result, nil
}

// CancelReturn abandons the staged return without contacting the backend.
func (s *Session) CancelReturn(ctx context.Context) {
	s.mu.Lock()
	had := s.activeReturn != nil
	s.activeReturn = nil
	s.returnReason = ""
	s.mu.Unlock()
	if had {
		s.publish(ctx, events.TopicReturnCanceled, nil)
	}
}

func (s *Session) findCandidateLocked(orderItemID int64) (*returns.Candidate, error) {
	if s.activeReturn == nil {
		return nil, common.ValidationError("no return in progress")
	}
	for i := range s.activeReturn.Candidates {
		if s.activeReturn.Candidates[i].OrderItemID == orderItemID {
			return &s.activeReturn.Candidates[i], nil
		}
	}
	return nil, common.ValidationError("item is not part of the original order")
}

func (s *Session) publish(ctx context.Context, topic string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, topic, payload)
}
