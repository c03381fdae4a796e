package shop

// Button is one inline button: a label and an opaque callback token
// (key + payload) the transport encodes into the button.
type Button struct {
	Label   string
	Key     string
	Payload string
}

// Render is the transition's response payload. The transport decides whether
// to edit the previous message or send a new one. When Toast is set the
// message is left untouched and only a short notification is shown.
type Render struct {
	PhotoPath string
	Caption   string
	Rows      [][]Button
	Toast     string
}

// Callback keys understood by the transport layer.
const (
	BtnProduct  = "prod"
	BtnQuantity = "qty"
	BtnCart     = "cart"
	BtnMenu     = "menu"
	BtnRemove   = "rm"
	BtnPay      = "pay"
	BtnLeave    = "bye"
)
