// Package header names the HTTP headers the app reads and writes.
package header

const (
	APIKey       = "X-API-Key"
	ForwardedFor = "X-Forwarded-For"

	ProjectCount = "X-Project-Count"
	TotalHours   = "X-Total-Hours"
)
