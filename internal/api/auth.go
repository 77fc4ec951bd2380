package api

import "net/http"

// Authenticate is the access gate: with no key configured every request
// passes; otherwise the request must carry the exact key in the X-API-Key
// header or the api_key query parameter. A denial says nothing about whether
// the requested URL would otherwise have been valid.
func (a *ApiManagerCtx) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.config.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}

		if key != a.config.APIKey {
			writeJSON(w, http.StatusUnauthorized, errorResponse{
				Error:   "unauthorized",
				Message: "invalid or missing API key",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
