package backend

import (
	"context"
	"net/http"
)

// GetCart returns the authenticated cart.
func (c *Client) GetCart(ctx context.Context, token string) (ServerCart, error) {
	var out ServerCart
	err := c.do(ctx, request{endpoint: "cart_get", method: http.MethodGet, path: "/cart", token: token}, &out)
	return out, err
}

// AddCartItem adds quantity of a product/variant combination to the authenticated cart.
func (c *Client) AddCartItem(ctx context.Context, token string, item CartItemRequest) error {
	return c.do(ctx, request{endpoint: "cart_add", method: http.MethodPost, path: "/cart/add", body: item, token: token}, nil)
}

// UpdateCartItem sets the quantity of an existing line.
func (c *Client) UpdateCartItem(ctx context.Context, token string, item CartItemRequest) error {
	return c.do(ctx, request{endpoint: "cart_update", method: http.MethodPut, path: "/cart/update", body: item, token: token}, nil)
}

// RemoveCartItem removes a line identified by product and variants.
func (c *Client) RemoveCartItem(ctx context.Context, token string, item CartItemRequest) error {
	item.Quantity = 0
	return c.do(ctx, request{endpoint: "cart_remove", method: http.MethodDelete, path: "/cart/remove", body: item, token: token}, nil)
}

// ClearCart empties the authenticated cart.
func (c *Client) ClearCart(ctx context.Context, token string) error {
	return c.do(ctx, request{endpoint: "cart_clear", method: http.MethodDelete, path: "/cart/clear", token: token}, nil)
}
