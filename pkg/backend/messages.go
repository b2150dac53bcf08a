package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) UnreadMessageCount(ctx context.Context, token string) (UnreadCount, error) {
	var out UnreadCount
	err := c.do(ctx, request{endpoint: "messages_unread", method: http.MethodGet, path: "/messages/unread-count", token: token}, &out)
	return out, err
}

func (c *Client) MyMessages(ctx context.Context, token string, limit int) ([]Message, error) {
	var out []Message
	query := url.Values{"limit": []string{strconv.Itoa(limit)}}
	err := c.do(ctx, request{endpoint: "messages_my", method: http.MethodGet, path: "/messages/my", query: query, token: token}, &out)
	return out, err
}

func (c *Client) MarkMessageRead(ctx context.Context, token, id string) error {
	return c.do(ctx, request{endpoint: "messages_read", method: http.MethodPut, path: "/messages/" + url.PathEscape(id) + "/read", token: token}, nil)
}
