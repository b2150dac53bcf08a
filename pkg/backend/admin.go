package backend

import (
	"context"
	"net/http"
	"net/url"
)

// ListAnnouncements returns every announcement, active or not.
func (c *Client) ListAnnouncements(ctx context.Context, token string) ([]Announcement, error) {
	var out []Announcement
	err := c.do(ctx, request{endpoint: "announcements", method: http.MethodGet, path: "/announcements", token: token}, &out)
	return out, err
}

func (c *Client) CreateAnnouncement(ctx context.Context, token string, input AnnouncementInput) (Announcement, error) {
	var out Announcement
	err := c.do(ctx, request{endpoint: "announcements_create", method: http.MethodPost, path: "/announcements", body: input, token: token}, &out)
	return out, err
}

func (c *Client) UpdateAnnouncement(ctx context.Context, token, id string, input AnnouncementInput) (Announcement, error) {
	var out Announcement
	err := c.do(ctx, request{endpoint: "announcements_update", method: http.MethodPut, path: "/announcements/" + url.PathEscape(id), body: input, token: token}, &out)
	return out, err
}

func (c *Client) DeleteAnnouncement(ctx context.Context, token, id string) error {
	return c.do(ctx, request{endpoint: "announcements_delete", method: http.MethodDelete, path: "/announcements/" + url.PathEscape(id), token: token}, nil)
}

// ListFeaturedProducts returns the admin view of pinned products.
func (c *Client) ListFeaturedProducts(ctx context.Context, token string) ([]FeaturedProduct, error) {
	var out []FeaturedProduct
	err := c.do(ctx, request{endpoint: "featured_products_admin", method: http.MethodGet, path: "/featured-products/admin", token: token}, &out)
	return out, err
}

func (c *Client) CreateFeaturedProduct(ctx context.Context, token string, input FeaturedProductInput) (FeaturedProduct, error) {
	var out FeaturedProduct
	err := c.do(ctx, request{endpoint: "featured_products_create", method: http.MethodPost, path: "/featured-products", body: input, token: token}, &out)
	return out, err
}

func (c *Client) UpdateFeaturedProduct(ctx context.Context, token, id string, input FeaturedProductInput) (FeaturedProduct, error) {
	var out FeaturedProduct
	err := c.do(ctx, request{endpoint: "featured_products_update", method: http.MethodPut, path: "/featured-products/" + url.PathEscape(id), body: input, token: token}, &out)
	return out, err
}

func (c *Client) DeleteFeaturedProduct(ctx context.Context, token, id string) error {
	return c.do(ctx, request{endpoint: "featured_products_delete", method: http.MethodDelete, path: "/featured-products/" + url.PathEscape(id), token: token}, nil)
}
