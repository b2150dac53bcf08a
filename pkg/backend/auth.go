package backend

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, req LoginRequest) (AuthPayload, error) {
	var out AuthPayload
	err := c.do(ctx, request{endpoint: "auth_login", method: http.MethodPost, path: "/auth/login", body: req}, &out)
	return out, err
}

// Register creates an account and returns its session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (AuthPayload, error) {
	var out AuthPayload
	err := c.do(ctx, request{endpoint: "auth_register", method: http.MethodPost, path: "/auth/register", body: req}, &out)
	return out, err
}

// LoginWithGoogle exchanges a Google identity credential for a session.
func (c *Client) LoginWithGoogle(ctx context.Context, req GoogleLoginRequest) (AuthPayload, error) {
	var out AuthPayload
	err := c.do(ctx, request{endpoint: "auth_google", method: http.MethodPost, path: "/auth/google", body: req}, &out)
	return out, err
}

// ForgotPassword asks the backend to send a reset code.
func (c *Client) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	return c.do(ctx, request{endpoint: "auth_forgot_password", method: http.MethodPost, path: "/auth/forgot-password", body: req}, nil)
}

// ResetPassword sets a new password using a reset code.
func (c *Client) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	return c.do(ctx, request{endpoint: "auth_reset_password", method: http.MethodPost, path: "/auth/reset-password", body: req}, nil)
}
