package cms

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/MelnikovEI/fish-shop/core/logger"
	"log/slog"
)

// CartLine is one backend cart item. Quantity is fixed per line; a different
// quantity for the same product becomes a new or merged line on the backend side.
type CartLine struct {
	ID        string
	ProductID string
	Name      string
	Quantity  int
	// UnitPrice is the backend-formatted per-unit price, e.g. "$17.80".
	UnitPrice string
	// LineTotal is the line value in minor units as reported by the backend.
	LineTotal int64
}

// Cart mirrors the backend cart on each read; it is never cached locally, and
// Total is the backend-formatted total, never recomputed here.
type Cart struct {
	Lines []CartLine
	Total string
}

type cartItemsResponse struct {
	Data []struct {
		ID        string `json:"id"`
		ProductID string `json:"product_id"`
		Name      string `json:"name"`
		Quantity  int    `json:"quantity"`
		Value     struct {
			Amount int64 `json:"amount"`
		} `json:"value"`
		Meta struct {
			DisplayPrice struct {
				WithTax struct {
					Unit struct {
						Formatted string `json:"formatted"`
					} `json:"unit"`
				} `json:"with_tax"`
			} `json:"display_price"`
		} `json:"meta"`
	} `json:"data"`
	Meta struct {
		DisplayPrice struct {
			WithTax struct {
				Formatted string `json:"formatted"`
			} `json:"with_tax"`
		} `json:"display_price"`
	} `json:"meta"`
}

type cartItemRequest struct {
	Data struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		Quantity int    `json:"quantity"`
	} `json:"data"`
}

func cartRef(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// AddToCart adds quantity kilograms of a product to the user's cart.
func (c *Client) AddToCart(ctx context.Context, userID int64, productID string, quantity int) error {
	if quantity <= 0 {
		return &ValidationError{Msg: fmt.Sprintf("quantity must be a positive integer, got %d", quantity)}
	}

	var body cartItemRequest
	body.Data.ID = productID
	body.Data.Type = "cart_item"
	body.Data.Quantity = quantity

	path := "/v2/carts/" + cartRef(userID) + "/items"
	if err := c.do(ctx, http.MethodPost, path, nil, body, nil, "product", productID); err != nil {
		return err
	}
	logger.CMS.Info("cart item added",
		slog.String("event", "cms.cart.add"),
		slog.Int64("user_id", userID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)
	return nil
}

// RemoveFromCart deletes a cart line by its line id.
func (c *Client) RemoveFromCart(ctx context.Context, userID int64, lineID string) error {
	path := "/v2/carts/" + cartRef(userID) + "/items/" + lineID
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil, "cart line", lineID); err != nil {
		return err
	}
	logger.CMS.Info("cart item removed",
		slog.String("event", "cms.cart.remove"),
		slog.Int64("user_id", userID),
		slog.String("line_id", lineID),
	)
	return nil
}

// GetCart reads the user's cart from the backend.
func (c *Client) GetCart(ctx context.Context, userID int64) (Cart, error) {
	var resp cartItemsResponse
	path := "/v2/carts/" + cartRef(userID) + "/items"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp, "cart", cartRef(userID)); err != nil {
		return Cart{}, err
	}

	cart := Cart{
		Lines: make([]CartLine, 0, len(resp.Data)),
		Total: resp.Meta.DisplayPrice.WithTax.Formatted,
	}
	for _, item := range resp.Data {
		cart.Lines = append(cart.Lines, CartLine{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Meta.DisplayPrice.WithTax.Unit.Formatted,
			LineTotal: item.Value.Amount,
		})
	}
	return cart, nil
}
