package backend

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListProducts(ctx context.Context, filter ProductFilter) (ProductList, error) {
	var out ProductList
	err := c.do(ctx, request{endpoint: "products", method: http.MethodGet, path: "/products", query: filter.Query()}, &out)
	return out, err
}

func (c *Client) GetProduct(ctx context.Context, id string) (Product, error) {
	var out Product
	err := c.do(ctx, request{endpoint: "product", method: http.MethodGet, path: "/products/" + url.PathEscape(id)}, &out)
	return out, err
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := c.do(ctx, request{endpoint: "categories", method: http.MethodGet, path: "/categories"}, &out)
	return out, err
}

func (c *Client) ActiveAnnouncements(ctx context.Context) ([]Announcement, error) {
	var out []Announcement
	err := c.do(ctx, request{endpoint: "announcements_active", method: http.MethodGet, path: "/announcements/active"}, &out)
	return out, err
}

func (c *Client) FeaturedProducts(ctx context.Context) ([]FeaturedProduct, error) {
	var out []FeaturedProduct
	err := c.do(ctx, request{endpoint: "featured_products", method: http.MethodGet, path: "/featured-products"}, &out)
	return out, err
}
