package cms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/MelnikovEI/fish-shop/core/logger"
	"log/slog"
)

type customersResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

type customerRequest struct {
	Data struct {
		Type  string `json:"type"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"data"`
}

// UpsertCustomer looks the customer up by email and creates the record only
// when absent, so repeated checkouts with the same email stay idempotent.
func (c *Client) UpsertCustomer(ctx context.Context, name, email string) error {
	query := url.Values{"filter": {fmt.Sprintf("eq(email,%s)", email)}}
	var existing customersResponse
	if err := c.do(ctx, http.MethodGet, "/v2/customers", query, nil, &existing, "customer", email); err != nil {
		return err
	}
	if len(existing.Data) > 0 {
		logger.CMS.Debug("customer exists",
			slog.String("event", "cms.customer"),
			slog.String("status", "skip"),
		)
		return nil
	}

	var body customerRequest
	body.Data.Type = "customer"
	body.Data.Name = name
	body.Data.Email = email
	if err := c.do(ctx, http.MethodPost, "/v2/customers", nil, body, nil, "customer", email); err != nil {
		return err
	}
	logger.CMS.Info("customer created",
		slog.String("event", "cms.customer"),
		slog.String("status", "ok"),
	)
	return nil
}
