package shop

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/MelnikovEI/fish-shop/cms"
	"github.com/MelnikovEI/fish-shop/core/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger(nil)
	m.Run()
}

// memStore is a map-backed SessionStore for tests.
type memStore struct {
	mu     sync.Mutex
	states map[int64]State
}

func newMemStore() *memStore {
	return &memStore{states: make(map[int64]State)}
}

func (s *memStore) Get(_ context.Context, userID int64) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[userID]; ok {
		return st, nil
	}
	return StateChoosing, nil
}

func (s *memStore) SetState(_ context.Context, userID int64, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = st
	return nil
}

// fakeCommerce counts calls and lets tests inject failures per operation.
type fakeCommerce struct {
	listCalls   int
	detailCalls int
	imageCalls  int
	addCalls    int
	removeCalls int
	cartCalls   int
	upsertCalls int

	detailErr error
	addErr    error
	listErr   error

	cart cms.Cart
}

func (f *fakeCommerce) total() int {
	return f.listCalls + f.detailCalls + f.imageCalls + f.addCalls +
		f.removeCalls + f.cartCalls + f.upsertCalls
}

func (f *fakeCommerce) ListProducts(context.Context) ([]cms.Product, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []cms.Product{{ID: "p1", Name: "Salmon"}, {ID: "p2", Name: "Tuna"}}, nil
}

func (f *fakeCommerce) GetProductDetail(_ context.Context, productID string) (cms.ProductDetail, error) {
	f.detailCalls++
	if f.detailErr != nil {
		return cms.ProductDetail{}, f.detailErr
	}
	return cms.ProductDetail{Name: "Salmon", Price: "$17.8 per kg", Description: "Fresh"}, nil
}

func (f *fakeCommerce) GetProductImage(_ context.Context, productID string) (string, error) {
	f.imageCalls++
	return "images/" + productID, nil
}

func (f *fakeCommerce) AddToCart(_ context.Context, _ int64, _ string, _ int) error {
	f.addCalls++
	return f.addErr
}

func (f *fakeCommerce) RemoveFromCart(_ context.Context, _ int64, _ string) error {
	f.removeCalls++
	return nil
}

func (f *fakeCommerce) GetCart(_ context.Context, _ int64) (cms.Cart, error) {
	f.cartCalls++
	return f.cart, nil
}

func (f *fakeCommerce) UpsertCustomer(_ context.Context, _, _ string) error {
	f.upsertCalls++
	return nil
}

func newTestMachine() (*Machine, *fakeCommerce, *memStore) {
	commerce := &fakeCommerce{cart: cms.Cart{
		Lines: []cms.CartLine{{ID: "line-1", ProductID: "p1", Name: "Salmon", Quantity: 5, UnitPrice: "$17.80", LineTotal: 8900}},
		Total: "$89.00",
	}}
	store := newMemStore()
	return NewMachine(commerce, store, "assets/logo.jpg"), commerce, store
}

func mustState(t *testing.T, store *memStore, userID int64, want State) {
	t.Helper()
	st, err := store.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if st != want {
		t.Fatalf("state = %s, expected %s", st, want)
	}
}

func TestFullPurchaseFlow(t *testing.T) {
	m, commerce, store := newTestMachine()
	ctx := context.Background()
	user := User{ID: 42, Name: "Ann"}

	render, err := m.Start(ctx, user)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	mustState(t, store, 42, StateChoosing)
	if len(render.Rows) != 4 {
		t.Fatalf("menu rows = %d, expected 2 products + cart + leave", len(render.Rows))
	}

	render, err = m.Handle(ctx, user, Action{Kind: KindSelectProduct, ProductID: "p1"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	mustState(t, store, 42, StateFillingCart)
	if !strings.Contains(render.Caption, "$17.8 per kg") {
		t.Fatalf("card caption missing price: %q", render.Caption)
	}
	if render.PhotoPath != "images/p1" {
		t.Fatalf("card photo = %q", render.PhotoPath)
	}

	render, err = m.Handle(ctx, user, Action{Kind: KindChooseQuantity, ProductID: "p1", Quantity: 5})
	if err != nil {
		t.Fatalf("quantity: %v", err)
	}
	if commerce.addCalls != 1 {
		t.Fatalf("add calls = %d, expected 1", commerce.addCalls)
	}
	if render.Toast != "Added 5 kg to your cart" {
		t.Fatalf("toast = %q", render.Toast)
	}
	mustState(t, store, 42, StateFillingCart)

	render, err = m.Handle(ctx, user, Action{Kind: KindViewCart})
	if err != nil {
		t.Fatalf("view cart: %v", err)
	}
	mustState(t, store, 42, StateHandlingCart)
	if !strings.Contains(render.Caption, "5 kg in cart for $89") {
		t.Fatalf("cart caption = %q", render.Caption)
	}
	if !strings.Contains(render.Caption, "Total: $89.00") {
		t.Fatalf("cart caption missing total: %q", render.Caption)
	}

	before := commerce.total()
	if _, err = m.Handle(ctx, user, Action{Kind: KindPay}); err != nil {
		t.Fatalf("pay: %v", err)
	}
	mustState(t, store, 42, StateAwaitingEmail)
	if commerce.total() != before {
		t.Fatal("pay made a backend call")
	}

	render, err = m.Handle(ctx, user, Action{Kind: KindEmailText, Email: "not-an-email"})
	if err != nil {
		t.Fatalf("invalid email: %v", err)
	}
	mustState(t, store, 42, StateAwaitingEmail)
	if commerce.upsertCalls != 0 {
		t.Fatal("invalid email reached the backend")
	}
	if !strings.Contains(render.Caption, "try again") {
		t.Fatalf("re-prompt caption = %q", render.Caption)
	}

	render, err = m.Handle(ctx, user, Action{Kind: KindEmailText, Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("valid email: %v", err)
	}
	mustState(t, store, 42, StateDone)
	if commerce.upsertCalls != 1 {
		t.Fatalf("upsert calls = %d, expected 1", commerce.upsertCalls)
	}
	if !strings.Contains(render.Caption, "ann@example.com") {
		t.Fatalf("farewell caption = %q", render.Caption)
	}
}

func TestIllegalActionRejected(t *testing.T) {
	cases := []struct {
		state State
		act   Action
	}{
		{StateChoosing, Action{Kind: KindPay}},
		{StateChoosing, Action{Kind: KindChooseQuantity, ProductID: "p1", Quantity: 5}},
		{StateChoosing, Action{Kind: KindEmailText, Email: "a@b.com"}},
		{StateFillingCart, Action{Kind: KindPay}},
		{StateFillingCart, Action{Kind: KindSelectProduct, ProductID: "p1"}},
		{StateHandlingCart, Action{Kind: KindChooseQuantity, ProductID: "p1", Quantity: 1}},
		{StateAwaitingEmail, Action{Kind: KindSelectProduct, ProductID: "p1"}},
		{StateAwaitingEmail, Action{Kind: KindViewCart}},
		{StateDone, Action{Kind: KindViewCart}},
		{StateDone, Action{Kind: KindEmailText, Email: "a@b.com"}},
	}

	for _, tc := range cases {
		m, commerce, store := newTestMachine()
		ctx := context.Background()
		user := User{ID: 7}
		if err := store.SetState(ctx, 7, tc.state); err != nil {
			t.Fatalf("seed state: %v", err)
		}

		_, err := m.Handle(ctx, user, tc.act)
		if !errors.Is(err, ErrRejected) {
			t.Fatalf("%s in %s: err = %v, expected ErrRejected", tc.act.Kind, tc.state, err)
		}
		mustState(t, store, 7, tc.state)
		if commerce.total() != 0 {
			t.Fatalf("%s in %s: rejected action made %d backend calls", tc.act.Kind, tc.state, commerce.total())
		}
	}
}

func TestNotFoundDropsBackToMenu(t *testing.T) {
	m, commerce, store := newTestMachine()
	ctx := context.Background()
	user := User{ID: 9}
	commerce.detailErr = &cms.NotFoundError{Kind: "product", ID: "p1"}

	render, err := m.Handle(ctx, user, Action{Kind: KindSelectProduct, ProductID: "p1"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	mustState(t, store, 9, StateChoosing)
	if !strings.HasPrefix(render.Caption, "This item is no longer available.") {
		t.Fatalf("caption = %q", render.Caption)
	}
	if len(render.Rows) == 0 {
		t.Fatal("expected the menu to be re-rendered")
	}
}

func TestBackendErrorKeepsState(t *testing.T) {
	m, commerce, store := newTestMachine()
	ctx := context.Background()
	user := User{ID: 9}
	if err := store.SetState(ctx, 9, StateFillingCart); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	commerce.addErr = &cms.BackendError{Status: 502}

	render, err := m.Handle(ctx, user, Action{Kind: KindChooseQuantity, ProductID: "p1", Quantity: 5})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	mustState(t, store, 9, StateFillingCart)
	if render.Toast != "Something went wrong. Please try again." {
		t.Fatalf("toast = %q", render.Toast)
	}
}

func TestAuthErrorKeepsState(t *testing.T) {
	m, commerce, store := newTestMachine()
	ctx := context.Background()
	user := User{ID: 9}
	commerce.listErr = &cms.AuthError{Err: errors.New("exchange rejected")}

	render, err := m.Start(ctx, user)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if render.Toast != "Please try again shortly." {
		t.Fatalf("toast = %q", render.Toast)
	}
	if _, ok := store.states[9]; ok {
		t.Fatal("state persisted despite failed menu")
	}
}

func TestValidationErrorKeepsState(t *testing.T) {
	m, commerce, store := newTestMachine()
	ctx := context.Background()
	user := User{ID: 9}
	if err := store.SetState(ctx, 9, StateFillingCart); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	commerce.addErr = &cms.ValidationError{Msg: "quantity must be a positive integer, got 0"}

	render, err := m.Handle(ctx, user, Action{Kind: KindChooseQuantity, ProductID: "p1", Quantity: 0})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	mustState(t, store, 9, StateFillingCart)
	if render.Toast != "That doesn't look right, please try again." {
		t.Fatalf("toast = %q", render.Toast)
	}
}

func TestStartResetsDone(t *testing.T) {
	m, _, store := newTestMachine()
	ctx := context.Background()
	user := User{ID: 5}
	if err := store.SetState(ctx, 5, StateDone); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	if _, err := m.Start(ctx, user); err != nil {
		t.Fatalf("start: %v", err)
	}
	mustState(t, store, 5, StateChoosing)
}

func TestRemoveLineRefreshesCart(t *testing.T) {
	m, commerce, store := newTestMachine()
	ctx := context.Background()
	user := User{ID: 3}
	if err := store.SetState(ctx, 3, StateHandlingCart); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	render, err := m.Handle(ctx, user, Action{Kind: KindRemoveLine, LineID: "line-1"})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if commerce.removeCalls != 1 || commerce.cartCalls != 1 {
		t.Fatalf("remove=%d cart=%d, expected 1 and 1", commerce.removeCalls, commerce.cartCalls)
	}
	mustState(t, store, 3, StateHandlingCart)
	if !strings.Contains(render.Caption, "Your cart:") {
		t.Fatalf("caption = %q", render.Caption)
	}
}

func TestEmptyCartHidesPay(t *testing.T) {
	m, commerce, store := newTestMachine()
	commerce.cart = cms.Cart{Total: "$0.00"}
	ctx := context.Background()
	user := User{ID: 4}
	if err := store.SetState(ctx, 4, StateChoosing); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	render, err := m.Handle(ctx, user, Action{Kind: KindViewCart})
	if err != nil {
		t.Fatalf("view cart: %v", err)
	}
	for _, row := range render.Rows {
		for _, btn := range row {
			if btn.Key == BtnPay {
				t.Fatal("pay button shown for an empty cart")
			}
		}
	}
}
