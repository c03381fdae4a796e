package cms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/MelnikovEI/fish-shop/core/logger"
	"log/slog"
)

// priceCurrency selects which catalog price to show.
const priceCurrency = "USD"

// Product is a read-only projection of a backend product listing entry.
type Product struct {
	ID   string
	Name string
}

// ProductDetail carries what the product card shows. Price is the
// backend-formatted per-kilogram price, e.g. "$17.8 per kg".
type ProductDetail struct {
	Name        string
	Price       string
	Description string
}

type pcmProductsResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"attributes"`
	} `json:"data"`
}

type catalogProductResponse struct {
	Data struct {
		Attributes struct {
			Price map[string]struct {
				Amount int64 `json:"amount"`
			} `json:"price"`
		} `json:"attributes"`
	} `json:"data"`
}

// ListProducts returns id and name of every product. Price and description
// are fetched lazily per product to avoid over-fetching on the menu.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var resp pcmProductsResponse
	if err := c.do(ctx, http.MethodGet, "/pcm/products", nil, nil, &resp, "products", ""); err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(resp.Data))
	for _, p := range resp.Data {
		products = append(products, Product{ID: p.ID, Name: p.Attributes.Name})
	}
	logger.CMS.Debug("products listed",
		slog.String("event", "cms.products"),
		slog.Int("count", len(products)),
	)
	return products, nil
}

// GetProductDetail fetches product attributes and the catalog price.
func (c *Client) GetProductDetail(ctx context.Context, productID string) (ProductDetail, error) {
	query := url.Values{"filter": {fmt.Sprintf("eq(id,%s)", productID)}}
	var resp pcmProductsResponse
	if err := c.do(ctx, http.MethodGet, "/pcm/products", query, nil, &resp, "product", productID); err != nil {
		return ProductDetail{}, err
	}
	if len(resp.Data) == 0 {
		return ProductDetail{}, &NotFoundError{Kind: "product", ID: productID}
	}

	price, err := c.getProductPrice(ctx, productID)
	if err != nil {
		return ProductDetail{}, err
	}

	return ProductDetail{
		Name:        resp.Data[0].Attributes.Name,
		Price:       price,
		Description: resp.Data[0].Attributes.Description,
	}, nil
}

// getProductPrice renders the catalog minor-unit price as "$<amount> per kg".
func (c *Client) getProductPrice(ctx context.Context, productID string) (string, error) {
	var resp catalogProductResponse
	if err := c.do(ctx, http.MethodGet, "/catalog/products/"+productID, nil, nil, &resp, "price", productID); err != nil {
		return "", err
	}
	price, ok := resp.Data.Attributes.Price[priceCurrency]
	if !ok {
		return "", &NotFoundError{Kind: "price", ID: productID}
	}
	amount := strconv.FormatFloat(float64(price.Amount)/100, 'f', -1, 64)
	return fmt.Sprintf("$%s per kg", amount), nil
}
