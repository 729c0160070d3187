package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/angelofallars/sheetbill/app/header"
	"github.com/angelofallars/sheetbill/app/response"
)

// RequireAPIKey only lets requests through whose X-API-Key header matches
// apiKey. With no key configured every request is refused.
func RequireAPIKey(apiKey string, f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if apiKey == "" {
			response.WriteError(w, r, response.Internal("API key not configured on server"))
			return
		}

		supplied := r.Header.Get(header.APIKey)
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(apiKey)) != 1 {
			response.WriteError(w, r, response.New(
				http.StatusUnauthorized,
				response.CodeUnauthorized,
				"Invalid or missing API key",
			))
			return
		}

		f(w, r)
	}
}
