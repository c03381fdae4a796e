package shop

// Kind enumerates decoded user intents.
type Kind string

const (
	// KindSelectProduct opens a product card from the menu.
	KindSelectProduct Kind = "select_product"
	// KindChooseQuantity adds the chosen amount of the shown product to the cart.
	KindChooseQuantity Kind = "choose_quantity"
	// KindViewCart renders the cart.
	KindViewCart Kind = "view_cart"
	// KindBackToMenu re-lists the products.
	KindBackToMenu Kind = "back_to_menu"
	// KindRemoveLine removes one cart line.
	KindRemoveLine Kind = "remove_line"
	// KindPay starts checkout by asking for an e-mail.
	KindPay Kind = "pay"
	// KindLeave ends the conversation.
	KindLeave Kind = "leave"
	// KindEmailText carries the plain-text checkout e-mail.
	KindEmailText Kind = "email_text"
)

// Action is a decoded user intent; the transport-specific callback payloads
// are mapped into this form before the state machine sees them. Only the
// fields relevant to the Kind are set.
type Action struct {
	Kind      Kind
	ProductID string
	Quantity  int
	LineID    string
	Email     string
}
