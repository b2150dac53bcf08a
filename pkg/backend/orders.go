package backend

import (
	"context"
	"net/http"
)

// CreateOrder submits a checkout order.
func (c *Client) CreateOrder(ctx context.Context, token string, order OrderRequest) (Order, error) {
	var out Order
	err := c.do(ctx, request{endpoint: "orders_create", method: http.MethodPost, path: "/orders", body: order, token: token}, &out)
	return out, err
}
