package backend

import (
	"context"
	"net/http"
	"net/url"
)

// GetDelivery loads the order summary behind a delivery code.
func (c *Client) GetDelivery(ctx context.Context, token, code string) (Delivery, error) {
	var out Delivery
	err := c.do(ctx, request{endpoint: "delivery_scan", method: http.MethodGet, path: "/delivery/scan/" + url.PathEscape(code), token: token}, &out)
	return out, err
}

// ConfirmDelivery marks the delivery as handed over.
func (c *Client) ConfirmDelivery(ctx context.Context, token, code string) (Delivery, error) {
	var out Delivery
	err := c.do(ctx, request{endpoint: "delivery_confirm", method: http.MethodPost, path: "/delivery/scan/" + url.PathEscape(code) + "/confirm", token: token}, &out)
	return out, err
}
