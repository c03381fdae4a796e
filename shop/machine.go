package shop

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MelnikovEI/fish-shop/cms"
	"github.com/MelnikovEI/fish-shop/core/logger"
	"log/slog"
)

// ErrRejected marks an action that is not legal in the user's current state.
// The transport answers it quietly; nothing is persisted and no backend call runs.
var ErrRejected = errors.New("shop: action not allowed in current state")

// Commerce is the slice of the backend client the conversation needs.
type Commerce interface {
	ListProducts(ctx context.Context) ([]cms.Product, error)
	GetProductDetail(ctx context.Context, productID string) (cms.ProductDetail, error)
	GetProductImage(ctx context.Context, productID string) (string, error)
	AddToCart(ctx context.Context, userID int64, productID string, quantity int) error
	RemoveFromCart(ctx context.Context, userID int64, lineID string) error
	GetCart(ctx context.Context, userID int64) (cms.Cart, error)
	UpsertCustomer(ctx context.Context, name, email string) error
}

// User identifies the shopper for cart scoping and the customer record.
type User struct {
	ID   int64
	Name string
}

// Machine drives one user's shop conversation.
type Machine struct {
	commerce Commerce
	sessions SessionStore
	logoPath string
}

// NewMachine wires the state machine to its collaborators.
func NewMachine(commerce Commerce, sessions SessionStore, logoPath string) *Machine {
	return &Machine{commerce: commerce, sessions: sessions, logoPath: logoPath}
}

// Start begins a new conversation: the state is reset to CHOOSING and the
// product menu is rendered. The previous session, including a terminal DONE,
// is overwritten but never deleted.
func (m *Machine) Start(ctx context.Context, user User) (Render, error) {
	render, err := m.menu(ctx)
	if err != nil {
		return m.renderFailure(ctx, user, StateChoosing, err)
	}
	if err := m.sessions.SetState(ctx, user.ID, StateChoosing); err != nil {
		return Render{}, err
	}
	logger.SHOP.Info("conversation started",
		slog.String("event", "shop.start"),
		slog.Int64("user_id", user.ID),
	)
	return render, nil
}

// Handle validates the action against the current state, runs its effects,
// and persists the next state only after every backend call succeeded.
func (m *Machine) Handle(ctx context.Context, user User, act Action) (Render, error) {
	st, err := m.sessions.Get(ctx, user.ID)
	if err != nil {
		return Render{}, fmt.Errorf("load session: %w", err)
	}

	if !Allowed(st, act.Kind) {
		logger.SHOP.Warn("action rejected",
			slog.String("event", "shop.reject"),
			slog.Int64("user_id", user.ID),
			slog.String("state", string(st)),
			slog.String("action", string(act.Kind)),
		)
		return Render{}, fmt.Errorf("%w: %s in %s", ErrRejected, act.Kind, st)
	}

	next := st
	var render Render

	switch act.Kind {
	case KindSelectProduct:
		render, err = m.productCard(ctx, act.ProductID)
		next = StateFillingCart

	case KindChooseQuantity:
		err = m.commerce.AddToCart(ctx, user.ID, act.ProductID, act.Quantity)
		render = Render{Toast: fmt.Sprintf("Added %d kg to your cart", act.Quantity)}
		next = StateFillingCart

	case KindViewCart:
		render, err = m.cartView(ctx, user.ID)
		next = StateHandlingCart

	case KindBackToMenu:
		render, err = m.menu(ctx)
		next = StateChoosing

	case KindRemoveLine:
		if err = m.commerce.RemoveFromCart(ctx, user.ID, act.LineID); err == nil {
			render, err = m.cartView(ctx, user.ID)
		}
		next = StateHandlingCart

	case KindPay:
		render = Render{Caption: "Please send your e-mail to complete the order."}
		next = StateAwaitingEmail

	case KindLeave:
		render = Render{Caption: "See you next time!"}
		next = StateDone

	case KindEmailText:
		if !ValidEmail(act.Email) {
			// Held in AWAITING_EMAIL for another attempt; no backend call.
			logger.SHOP.Debug("invalid email",
				slog.String("event", "shop.email"),
				slog.Int64("user_id", user.ID),
			)
			return Render{Caption: "That doesn't look like an e-mail. Please try again."}, nil
		}
		err = m.commerce.UpsertCustomer(ctx, user.Name, act.Email)
		render = Render{Caption: "Thank you for your order! We will contact you at " + act.Email + ". See you next time!"}
		next = StateDone

	default:
		return Render{}, fmt.Errorf("%w: %s", ErrRejected, act.Kind)
	}

	if err != nil {
		return m.renderFailure(ctx, user, st, err)
	}

	if err := m.sessions.SetState(ctx, user.ID, next); err != nil {
		return Render{}, fmt.Errorf("persist state: %w", err)
	}

	logger.SHOP.Info("transition",
		slog.String("event", "shop.transition"),
		slog.Int64("user_id", user.ID),
		slog.String("action", string(act.Kind)),
		slog.String("from", string(st)),
		slog.String("to", string(next)),
	)
	return render, nil
}

// renderFailure maps a failed effect to a user-facing render. The session
// state is left untouched so the user can retry the same action, except for
// NotFoundError which drops the user back to the menu.
func (m *Machine) renderFailure(ctx context.Context, user User, st State, err error) (Render, error) {
	var (
		authErr     *cms.AuthError
		backendErr  *cms.BackendError
		notFoundErr *cms.NotFoundError
		validErr    *cms.ValidationError
	)

	switch {
	case errors.As(err, &validErr):
		logger.SHOP.Warn("validation failed",
			slog.String("event", "shop.error"),
			slog.Int64("user_id", user.ID),
			slog.String("err", err.Error()),
		)
		return Render{Toast: "That doesn't look right, please try again."}, nil

	case errors.As(err, &notFoundErr):
		logger.SHOP.Warn("entity gone",
			slog.String("event", "shop.error"),
			slog.Int64("user_id", user.ID),
			slog.String("err", err.Error()),
		)
		menu, menuErr := m.menu(ctx)
		if menuErr != nil {
			// Could not even re-list; keep the state for a retry.
			return Render{Toast: "Something went wrong. Please try again."}, nil
		}
		if setErr := m.sessions.SetState(ctx, user.ID, StateChoosing); setErr != nil {
			return Render{}, fmt.Errorf("persist state: %w", setErr)
		}
		menu.Caption = "This item is no longer available.\n\n" + menu.Caption
		return menu, nil

	case errors.As(err, &authErr):
		logger.SHOP.Error("auth failed",
			slog.String("event", "shop.error"),
			slog.Int64("user_id", user.ID),
			slog.String("state", string(st)),
			slog.String("err", err.Error()),
		)
		return Render{Toast: "Please try again shortly."}, nil

	case errors.As(err, &backendErr):
		logger.SHOP.Error("backend failed",
			slog.String("event", "shop.error"),
			slog.Int64("user_id", user.ID),
			slog.String("state", string(st)),
			slog.String("err", err.Error()),
		)
		return Render{Toast: "Something went wrong. Please try again."}, nil
	}

	return Render{}, err
}

func (m *Machine) menu(ctx context.Context) (Render, error) {
	products, err := m.commerce.ListProducts(ctx)
	if err != nil {
		return Render{}, err
	}

	rows := make([][]Button, 0, len(products)+1)
	for _, p := range products {
		rows = append(rows, []Button{{Label: p.Name, Key: BtnProduct, Payload: p.ID}})
	}
	rows = append(rows, []Button{{Label: "Cart", Key: BtnCart}})
	rows = append(rows, []Button{{Label: "Leave", Key: BtnLeave}})

	return Render{
		PhotoPath: m.logoPath,
		Caption:   "Please, choose:",
		Rows:      rows,
	}, nil
}

func (m *Machine) productCard(ctx context.Context, productID string) (Render, error) {
	detail, err := m.commerce.GetProductDetail(ctx, productID)
	if err != nil {
		return Render{}, err
	}
	image, err := m.commerce.GetProductImage(ctx, productID)
	if err != nil {
		return Render{}, err
	}

	caption := detail.Name + "\n" + detail.Price
	if detail.Description != "" {
		caption += "\n" + detail.Description
	}

	qtyRow := make([]Button, 0, 3)
	for _, q := range []int{1, 5, 10} {
		qtyRow = append(qtyRow, Button{
			Label:   fmt.Sprintf("%d kg", q),
			Key:     BtnQuantity,
			Payload: fmt.Sprintf("%d %s", q, productID),
		})
	}

	return Render{
		PhotoPath: image,
		Caption:   caption,
		Rows: [][]Button{
			qtyRow,
			{{Label: "Cart", Key: BtnCart}},
			{{Label: "Back to main menu", Key: BtnMenu}},
		},
	}, nil
}

func (m *Machine) cartView(ctx context.Context, userID int64) (Render, error) {
	cart, err := m.commerce.GetCart(ctx, userID)
	if err != nil {
		return Render{}, err
	}

	caption := "Your cart:\n\n"
	rows := make([][]Button, 0, len(cart.Lines)+2)
	for _, line := range cart.Lines {
		total := strconv.FormatFloat(float64(line.LineTotal)/100, 'f', -1, 64)
		caption += fmt.Sprintf("%s\n%s per kg\n%d kg in cart for $%s\n\n",
			line.Name, line.UnitPrice, line.Quantity, total)
		rows = append(rows, []Button{{
			Label:   "Remove " + line.Name,
			Key:     BtnRemove,
			Payload: line.ID,
		}})
	}
	caption += "Total: " + cart.Total

	if len(cart.Lines) > 0 {
		rows = append(rows, []Button{{Label: "Pay", Key: BtnPay}})
	}
	rows = append(rows, []Button{{Label: "Back to main menu", Key: BtnMenu}})

	return Render{
		PhotoPath: m.logoPath,
		Caption:   caption,
		Rows:      rows,
	}, nil
}
