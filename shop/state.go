// Package shop drives the storefront conversation: a per-user finite-state
// machine that maps decoded user actions onto commerce operations and render
// instructions for the chat transport.
package shop

import "context"

// State identifies a step of the shop conversation.
type State string

const (
	// StateChoosing shows the product menu; the initial state.
	StateChoosing State = "CHOOSING"
	// StateFillingCart shows a product card with quantity buttons.
	StateFillingCart State = "FILLING_CART"
	// StateHandlingCart shows the cart with remove/pay buttons.
	StateHandlingCart State = "HANDLING_CART"
	// StateAwaitingEmail waits for the checkout e-mail as plain text.
	StateAwaitingEmail State = "AWAITING_EMAIL"
	// StateDone is terminal; /start begins a new conversation.
	StateDone State = "DONE"
)

// transitions enumerates every legal (state, action) pair. Anything not
// listed here is rejected without a state change or a backend call, which
// guards against stale or replayed button presses from a previous render.
var transitions = map[State]map[Kind]struct{}{
	StateChoosing: {
		KindSelectProduct: {},
		KindViewCart:      {},
		KindLeave:         {},
	},
	StateFillingCart: {
		KindChooseQuantity: {},
		KindViewCart:       {},
		KindBackToMenu:     {},
	},
	StateHandlingCart: {
		KindRemoveLine: {},
		KindPay:        {},
		KindBackToMenu: {},
	},
	StateAwaitingEmail: {
		KindEmailText: {},
	},
}

// Allowed reports whether the action kind is legal in the given state.
func Allowed(st State, k Kind) bool {
	_, ok := transitions[st][k]
	return ok
}

// SessionStore persists the per-user conversation state and nothing else.
type SessionStore interface {
	// Get returns the user's current state, StateChoosing when the user
	// has never been seen.
	Get(ctx context.Context, userID int64) (State, error)
	// SetState persists the new state; called once per transition, after
	// every backend call in that transition has succeeded.
	SetState(ctx context.Context, userID int64, st State) error
}
