// Package callbacks decodes Telebot callback data into key/payload pairs.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Parse splits Telebot's \f<unique>|<payload> encoding.
// Returns the unique key and payload (payload may be empty).
func Parse(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	raw := strings.TrimPrefix(cb.Data, "\\f")
	parts := strings.SplitN(raw, "|", 2)
	unique := strings.TrimSpace(parts[0])
	payload := ""
	if len(parts) == 2 {
		payload = parts[1]
	}
	return unique, payload
}

// Key returns cb.Unique if present; otherwise parses it from Data.
func Key(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		return cb.Unique
	}
	k, _ := Parse(cb)
	return k
}

// Payload returns the payload (after '|') parsed from Data.
// cb.Data is preferred since cb.Unique may be empty in a generic OnCallback handler.
func Payload(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	_, payload := Parse(cb)
	return payload
}
