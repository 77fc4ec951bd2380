package api

import (
	"net/http"
	"time"
)

// Stream is the indirection endpoint referenced by synthesized playlists.
// Every access re-runs getOrResolve, so the redirect always lands on a
// currently-valid signed URL while the URL the player holds never changes.
func (a *ApiManagerCtx) Stream(w http.ResponseWriter, r *http.Request) {
	sourceURL := r.URL.Query().Get("url")
	if sourceURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_url",
			Message: "missing url parameter",
		})
		return
	}

	quality := r.URL.Query().Get("quality")
	if quality == "" {
		quality = "best"
	}

	selection, err := a.resolution.GetOrResolve(r.Context(), sourceURL, quality)
	if err != nil {
		a.httpError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	http.Redirect(w, r, selection.Variant.SignedURL, http.StatusFound)
}

type streamURLResponse struct {
	Title     string     `json:"title"`
	Quality   string     `json:"quality"`
	Ext       string     `json:"ext"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Note      string     `json:"note"`
}

// StreamURL returns the current signed URL directly instead of redirecting,
// for clients that manage playback themselves.
func (a *ApiManagerCtx) StreamURL(w http.ResponseWriter, r *http.Request) {
	sourceURL := r.URL.Query().Get("url")
	if sourceURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_url",
			Message: "missing url parameter",
		})
		return
	}

	quality := r.URL.Query().Get("quality")
	if quality == "" {
		quality = "best"
	}

	selection, err := a.resolution.GetOrResolve(r.Context(), sourceURL, quality)
	if err != nil {
		a.httpError(w, err)
		return
	}

	res := streamURLResponse{
		Title:   selection.Video.Title,
		Quality: selection.Variant.QualityLabel(),
		Ext:     selection.Variant.Ext,
		URL:     selection.Variant.SignedURL,
		Note:    "direct URL expires, use /api/m3u8 for a stable link",
	}

	if !selection.Variant.ExpiresAt.IsZero() {
		expires := selection.Variant.ExpiresAt
		res.ExpiresAt = &expires
	}

	writeJSON(w, http.StatusOK, res)
}
