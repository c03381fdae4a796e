package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/MelnikovEI/fish-shop/core/logger"
	"github.com/MelnikovEI/fish-shop/core/telegram/callbacks"
	"github.com/MelnikovEI/fish-shop/core/telegram/keyboard"
	"github.com/MelnikovEI/fish-shop/shop"
	"log/slog"
)

// Handlers adapts telebot updates to state machine actions and renders back.
type Handlers struct {
	machine *shop.Machine
}

// NewHandlers builds the update handlers around the state machine.
func NewHandlers(machine *shop.Machine) *Handlers {
	return &Handlers{machine: machine}
}

// OnStart begins a new conversation with the product menu.
func (h *Handlers) OnStart(c tele.Context) error {
	render, err := h.machine.Start(context.Background(), senderUser(c))
	if err != nil {
		return err
	}
	return deliver(c, render, false)
}

// OnCallback decodes a button press into an action and runs the machine.
func (h *Handlers) OnCallback(c tele.Context) error {
	key, payload := callbacks.Parse(c.Callback())
	act, ok := decodeAction(key, payload)
	if !ok {
		logger.TG.Warn("unknown callback",
			slog.String("event", "tg.callback"),
			slog.String("cb_key", logger.SanitizeLimit(key, 128)),
		)
		return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
	}

	render, err := h.machine.Handle(context.Background(), senderUser(c), act)
	if errors.Is(err, shop.ErrRejected) {
		// Stale button from an earlier render; already logged by the machine.
		return c.Respond()
	}
	if err != nil {
		_ = c.Respond(&tele.CallbackResponse{Text: "Something went wrong. Please try again."})
		return err
	}
	return deliver(c, render, true)
}

// OnText feeds plain text to the machine; outside of checkout it only hints at /start.
func (h *Handlers) OnText(c tele.Context) error {
	act := shop.Action{Kind: shop.KindEmailText, Email: strings.TrimSpace(c.Text())}
	render, err := h.machine.Handle(context.Background(), senderUser(c), act)
	if errors.Is(err, shop.ErrRejected) {
		return c.Send("Type /start to begin shopping.")
	}
	if err != nil {
		return err
	}
	return deliver(c, render, false)
}

// decodeAction maps a callback key/payload pair onto a state machine action.
func decodeAction(key, payload string) (shop.Action, bool) {
	switch key {
	case shop.BtnProduct:
		if payload == "" {
			return shop.Action{}, false
		}
		return shop.Action{Kind: shop.KindSelectProduct, ProductID: payload}, true
	case shop.BtnQuantity:
		qty, productID, ok := strings.Cut(payload, " ")
		if !ok {
			return shop.Action{}, false
		}
		n, err := strconv.Atoi(qty)
		if err != nil {
			return shop.Action{}, false
		}
		return shop.Action{Kind: shop.KindChooseQuantity, ProductID: productID, Quantity: n}, true
	case shop.BtnCart:
		return shop.Action{Kind: shop.KindViewCart}, true
	case shop.BtnMenu:
		return shop.Action{Kind: shop.KindBackToMenu}, true
	case shop.BtnRemove:
		if payload == "" {
			return shop.Action{}, false
		}
		return shop.Action{Kind: shop.KindRemoveLine, LineID: payload}, true
	case shop.BtnPay:
		return shop.Action{Kind: shop.KindPay}, true
	case shop.BtnLeave:
		return shop.Action{Kind: shop.KindLeave}, true
	}
	return shop.Action{}, false
}

// deliver turns a render instruction into Telegram calls: a toast answers the
// callback in place, a photo render edits the current card, text is sent fresh.
func deliver(c tele.Context, r shop.Render, fromCallback bool) error {
	if r.Toast != "" {
		if fromCallback {
			return c.Respond(&tele.CallbackResponse{Text: r.Toast})
		}
		return c.Send(r.Toast)
	}
	if fromCallback {
		_ = c.Respond()
	}

	if r.PhotoPath != "" {
		markup := toMarkup(r.Rows)
		photo := &tele.Photo{File: tele.FromDisk(r.PhotoPath), Caption: r.Caption}
		if fromCallback {
			if err := c.Edit(photo, markup); err == nil {
				return nil
			}
			// Editing fails when the previous message is plain text.
		}
		return c.Send(photo, markup)
	}
	if len(r.Rows) > 0 {
		return c.Send(r.Caption, toMarkup(r.Rows))
	}
	return c.Send(r.Caption)
}

func toMarkup(rows [][]shop.Button) *tele.ReplyMarkup {
	btnRows := make([][]keyboard.InlineBtn, 0, len(rows))
	for _, row := range rows {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			btns = append(btns, keyboard.InlineBtn{Text: b.Label, Unique: b.Key, Data: b.Payload})
		}
		btnRows = append(btnRows, btns)
	}
	return keyboard.InlineButtonsRows(btnRows...)
}

func senderUser(c tele.Context) shop.User {
	sender := c.Sender()
	if sender == nil {
		return shop.User{}
	}
	name := strings.TrimSpace(sender.FirstName + " " + sender.LastName)
	if name == "" {
		name = sender.Username
	}
	return shop.User{ID: sender.ID, Name: name}
}
