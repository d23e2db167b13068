package session_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Kwoolford/pos-terminal/internal/api"
	"github.com/Kwoolford/pos-terminal/internal/common"
	"github.com/Kwoolford/pos-terminal/internal/events"
	"github.com/Kwoolford/pos-terminal/internal/payment"
	"github.com/Kwoolford/pos-terminal/internal/session"
)

type stubBackend struct {
	validateResult *api.CartValidationResult
	validateErr    error

	createOrderFn func(in api.OrderCreate, key string) (*api.Order, error)
	orderKeys     []string

	lookup    *api.OrderLookup
	lookupErr error

	processFn  func(in api.ReturnCreate, key string) (*api.ReturnResult, error)
	returnKeys []string

	receipt *api.Receipt
}

func (s *stubBackend) ValidateCart(ctx context.Context, in api.CartValidationRequest) (*api.CartValidationResult, error) {
	if s.validateErr != nil {
		return nil, s.validateErr
	}
	if s.validateResult != nil {
		return s.validateResult, nil
	}
	return &api.CartValidationResult{Valid: true}, nil
}

func (s *stubBackend) CreateOrder(ctx context.Context, in api.OrderCreate, key string) (*api.Order, error) {
	s.orderKeys = append(s.orderKeys, key)
	if s.createOrderFn != nil {
		return s.createOrderFn(in, key)
	}
	return &api.Order{ID: 42, OrderNumber: "ORD-1", Total: in.Total}, nil
}

func (s *stubBackend) LookupOrder(ctx context.Context, search string) (*api.OrderLookup, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.lookup, nil
}

func (s *stubBackend) ProcessReturn(ctx context.Context, in api.ReturnCreate, key string) (*api.ReturnResult, error) {
	s.returnKeys = append(s.returnKeys, key)
	if s.processFn != nil {
		return s.processFn(in, key)
	}
	return &api.ReturnResult{OrderID: in.OrderID, RefundAmount: 9.00}, nil
}

func (s *stubBackend) GetReceipt(ctx context.Context, orderID int64) (*api.Receipt, error) {
	return s.receipt, nil
}

func widget() api.Product {
	return api.Product{ID: 1, SKU: "WID-1", Name: "Widget", Price: 10.00}
}

func newSession(backend *stubBackend) (*session.Session, *events.Bus) {
	bus := events.NewBus(zerolog.Nop())
	return session.New(backend, bus, zerolog.Nop()), bus
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	s, _ := newSession(&stubBackend{})
	_, err := s.Checkout(context.Background(), payment.Details{Method: payment.MethodCash})
	require.Error(t, err)
	require.Equal(t, common.CodeValidation, common.CodeOf(err))
}

func TestCheckoutHappyPathClearsCartAndRotatesKey(t *testing.T) {
	backend := &stubBackend{}
	s, bus := newSession(backend)

	var completed bool
	bus.Subscribe(events.TopicOrderCompleted, func(ctx context.Context, evt events.Event) {
		completed = true
	})

	ctx := context.Background()
	s.AddProduct(ctx, widget(), 3)
	keyBefore := s.OrderKey()

	order, err := s.Checkout(ctx, payment.Details{Method: payment.MethodCash})
	require.NoError(t, err)
	require.Equal(t, "ORD-1", order.OrderNumber)

	require.Empty(t, s.Lines(), "cart clears after a confirmed order")
	require.NotEqual(t, keyBefore, s.OrderKey(), "idempotency key rotates after success")
	require.Equal(t, []string{keyBefore}, backend.orderKeys)
	require.True(t, completed)
}

func TestCheckoutSendsComputedTotals(t *testing.T) {
	backend := &stubBackend{}
	var got api.OrderCreate
	backend.createOrderFn = func(in api.OrderCreate, key string) (*api.Order, error) {
		got = in
		return &api.Order{ID: 1, OrderNumber: "ORD-1", Total: in.Total}, nil
	}
	s, _ := newSession(backend)

	ctx := context.Background()
	s.AddProduct(ctx, widget(), 3)
	require.NoError(t, s.SetCartDiscount(ctx, 5.00, "MANAGER5"))

	_, err := s.Checkout(ctx, payment.Details{Method: payment.MethodCash})
	require.NoError(t, err)

	require.InDelta(t, 30.00, got.Subtotal, 1e-9)
	require.InDelta(t, 5.00, got.DiscountTotal, 1e-9)
	require.InDelta(t, 2.125, got.TaxTotal, 1e-9)
	require.InDelta(t, 27.125, got.Total, 1e-9)
	require.Len(t, got.Items, 1)
	require.EqualValues(t, 1, got.Items[0].ProductID)
	require.Equal(t, "MANAGER5", s.CartDiscountCode())
}

func TestCheckoutClearsDiscountCode(t *testing.T) {
	s, _ := newSession(&stubBackend{})
	ctx := context.Background()
	s.AddProduct(ctx, widget(), 1)
	require.NoError(t, s.SetCartDiscount(ctx, 1.00, "MANAGER1"))

	_, err := s.Checkout(ctx, payment.Details{Method: payment.MethodCash})
	require.NoError(t, err)
	require.Empty(t, s.CartDiscountCode())
	require.Zero(t, s.CartDiscount())
}

func TestCheckoutFailedSubmitKeepsCartAndKey(t *testing.T) {
	backend := &stubBackend{}
	backend.createOrderFn = func(in api.OrderCreate, key string) (*api.Order, error) {
		return nil, common.TransportError(context.DeadlineExceeded)
	}
	s, _ := newSession(backend)

	ctx := context.Background()
	s.AddProduct(ctx, widget(), 1)
	keyBefore := s.OrderKey()

	_, err := s.Checkout(ctx, payment.Details{Method: payment.MethodCash})
	require.Error(t, err)
	require.Equal(t, common.CodeTransport, common.CodeOf(err))

	require.Len(t, s.Lines(), 1, "failed checkout leaves the cart intact")
	require.Equal(t, keyBefore, s.OrderKey(), "key is stable so a retry deduplicates")

	// the retry carries the same key
	_, err = s.Checkout(ctx, payment.Details{Method: payment.MethodCash})
	require.Error(t, err)
	require.Equal(t, []string{keyBefore, keyBefore}, backend.orderKeys)
}

func TestCheckoutInvalidCartSurfacesServerErrors(t *testing.T) {
	backend := &stubBackend{
		validateResult: &api.CartValidationResult{
			Valid:  false,
			Errors: []string{"Widget: Insufficient stock. Available: 1, Requested: 3"},
		},
	}
	s, _ := newSession(backend)

	ctx := context.Background()
	s.AddProduct(ctx, widget(), 3)

	_, err := s.Checkout(ctx, payment.Details{Method: payment.MethodCash})
	require.Error(t, err)
	require.Equal(t, common.CodeRemoteRejected, common.CodeOf(err))
	require.Contains(t, err.Error(), "Insufficient stock")
	require.Len(t, s.Lines(), 1)
	require.Empty(t, backend.orderKeys, "rejected carts are never submitted")
}

func TestCheckoutSplitPaymentValidatedAgainstTotal(t *testing.T) {
	s, _ := newSession(&stubBackend{})
	ctx := context.Background()
	s.AddProduct(ctx, widget(), 2) // total 20.00 + tax

	_, err := s.Checkout(ctx, payment.Details{
		Method:       payment.MethodSplit,
		CashAmount:   10.00,
		CreditAmount: 5.00,
	})
	require.Error(t, err)
	require.Equal(t, common.CodeValidation, common.CodeOf(err))
}

func sampleLookup() *api.OrderLookup {
	return &api.OrderLookup{
		ID:          42,
		OrderNumber: "ORD-1",
		Items: []api.LookupItem{
			{ID: 7, ProductID: 1, ProductName: "Widget", Qty: 3, UnitPrice: 10.00, Discount: 3.00, LineTotal: 27.00},
			{ID: 8, ProductID: 2, ProductName: "Gadget", Qty: 1, UnitPrice: 10.00, LineTotal: 10.00},
		},
	}
}

func TestReturnFlow(t *testing.T) {
	backend := &stubBackend{lookup: sampleLookup()}
	var got api.ReturnCreate
	backend.processFn = func(in api.ReturnCreate, key string) (*api.ReturnResult, error) {
		got = in
		return &api.ReturnResult{OrderID: in.OrderID, OrderNumber: "ORD-1", RefundAmount: 19.00}, nil
	}
	s, bus := newSession(backend)

	var completed bool
	bus.Subscribe(events.TopicReturnCompleted, func(ctx context.Context, evt events.Event) {
		completed = true
	})

	ctx := context.Background()
	sel, err := s.BeginReturn(ctx, "ORD-1")
	require.NoError(t, err)
	require.Len(t, sel.Candidates, 2)

	require.NoError(t, s.SetReturnQuantity(7, 1))
	require.NoError(t, s.SetReturnQuantity(8, 1))
	require.NoError(t, s.SetReturnDamaged(8, true))
	require.NoError(t, s.SetReturnReason("changed mind"))
	require.InDelta(t, 19.00, s.ReturnTotal(), 1e-9)

	keyBefore := s.ReturnKey()
	result, err := s.SubmitReturn(ctx)
	require.NoError(t, err)
	require.InDelta(t, 19.00, result.RefundAmount, 1e-9)

	require.EqualValues(t, 42, got.OrderID)
	require.Len(t, got.Items, 2)
	require.True(t, got.Items[1].Damaged)
	require.Equal(t, "changed mind", got.Reason)

	require.Nil(t, s.ActiveReturn())
	require.NotEqual(t, keyBefore, s.ReturnKey())
	require.True(t, completed)
}

func TestSubmitReturnRequiresSelection(t *testing.T) {
	backend := &stubBackend{lookup: sampleLookup()}
	s, _ := newSession(backend)

	ctx := context.Background()
	_, err := s.BeginReturn(ctx, "ORD-1")
	require.NoError(t, err)

	_, err = s.SubmitReturn(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "select at least one item")
	require.Empty(t, backend.returnKeys)
}

func TestSubmitReturnExcludesZeroQuantityLines(t *testing.T) {
	backend := &stubBackend{lookup: sampleLookup()}
	var got api.ReturnCreate
	backend.processFn = func(in api.ReturnCreate, key string) (*api.ReturnResult, error) {
		got = in
		return &api.ReturnResult{OrderID: in.OrderID}, nil
	}
	s, _ := newSession(backend)

	ctx := context.Background()
	_, err := s.BeginReturn(ctx, "ORD-1")
	require.NoError(t, err)
	require.NoError(t, s.SetReturnQuantity(7, 2))

	_, err = s.SubmitReturn(ctx)
	require.NoError(t, err)
	require.Len(t, got.Items, 1, "zero quantity lines stay out of the payload")
	require.EqualValues(t, 7, got.Items[0].OrderItemID)
}

func TestReturnQuantityClamped(t *testing.T) {
	backend := &stubBackend{lookup: sampleLookup()}
	s, _ := newSession(backend)

	ctx := context.Background()
	_, err := s.BeginReturn(ctx, "ORD-1")
	require.NoError(t, err)

	require.NoError(t, s.SetReturnQuantity(7, 99))
	require.InDelta(t, 27.00, s.ReturnTotal(), 1e-9, "request clamps to the purchased quantity")
}

func TestFailedReturnSubmitKeepsKey(t *testing.T) {
	backend := &stubBackend{lookup: sampleLookup()}
	backend.processFn = func(in api.ReturnCreate, key string) (*api.ReturnResult, error) {
		return nil, common.TransportError(context.DeadlineExceeded)
	}
	s, _ := newSession(backend)

	ctx := context.Background()
	_, err := s.BeginReturn(ctx, "ORD-1")
	require.NoError(t, err)
	require.NoError(t, s.SetReturnQuantity(7, 1))

	keyBefore := s.ReturnKey()
	_, err = s.SubmitReturn(ctx)
	require.Error(t, err)

	require.Equal(t, keyBefore, s.ReturnKey())
	require.NotNil(t, s.ActiveReturn(), "failed submit keeps the staged return")
}

func TestCancelReturn(t *testing.T) {
	backend := &stubBackend{lookup: sampleLookup()}
	s, bus := newSession(backend)

	var canceled bool
	bus.Subscribe(events.TopicReturnCanceled, func(ctx context.Context, evt events.Event) {
		canceled = true
	})

	ctx := context.Background()
	_, err := s.BeginReturn(ctx, "ORD-1")
	require.NoError(t, err)

	s.CancelReturn(ctx)
	require.Nil(t, s.ActiveReturn())
	require.True(t, canceled)

	// canceling twice emits nothing further and does not panic
	s.CancelReturn(ctx)
}

func TestReturnOpsWithoutLookupRejected(t *testing.T) {
	s, _ := newSession(&stubBackend{})
	require.Error(t, s.SetReturnQuantity(7, 1))
	require.Error(t, s.SetReturnReason("x"))
	_, err := s.SubmitReturn(context.Background())
	require.Error(t, err)
}
