package errorlog

import "net/http"

// NetworkKind classifies a failed request for the network-error page.
type NetworkKind string

const (
	KindOffline      NetworkKind = "offline"
	KindServer       NetworkKind = "server"
	KindNotFound     NetworkKind = "not_found"
	KindUnauthorized NetworkKind = "unauthorized"
	KindForbidden    NetworkKind = "forbidden"
	KindUnknown      NetworkKind = "unknown"
)

// NetworkError is the copy shown on the network-error page.
type NetworkError struct {
	Status  int         `json:"status"`
	Kind    NetworkKind `json:"kind"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Action  string      `json:"action"`
}

// Classify maps an HTTP status onto the network-error page. Status 0 means no response.
func Classify(status int) NetworkError {
	switch {
	case status == 0:
		return NetworkError{Status: status, Kind: KindOffline, Title: "You are offline", Message: "Check your internet connection and try again.", Action: "retry"}
	case status >= 500:
		return NetworkError{Status: status, Kind: KindServer, Title: "Server problem", Message: "Our servers are having trouble. Please try again in a few minutes.", Action: "retry"}
	case status == http.StatusNotFound:
		return NetworkError{Status: status, Kind: KindNotFound, Title: "Page not found", Message: "The page or resource you requested does not exist.", Action: "home"}
	case status == http.StatusUnauthorized:
		return NetworkError{Status: status, Kind: KindUnauthorized, Title: "Session expired", Message: "Please sign in again to continue.", Action: "login"}
	case status == http.StatusForbidden:
		return NetworkError{Status: status, Kind: KindForbidden, Title: "Access denied", Message: "You do not have permission to view this page.", Action: "home"}
	default:
		return NetworkError{Status: status, Kind: KindUnknown, Title: "Something went wrong", Message: "An unexpected error occurred. Please try again.", Action: "retry"}
	}
}

// CrashView is the recovery screen payload.
type CrashView struct {
	ErrorID string   `json:"errorId"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Actions []string `json:"actions"`
	Details *Entry   `json:"details,omitempty"`
}

// NewCrashView builds the recovery payload; technical detail is only attached in development.
func NewCrashView(entry Entry, dev bool) CrashView {
	view := CrashView{
		ErrorID: entry.ID,
		Title:   "Something went wrong",
		Message: "An unexpected error occurred. You can reload the page, try again or return home.",
		Actions: []string{"reload", "retry", "home"},
	}
	if dev {
		details := entry
		view.Details = &details
	}
	return view
}
