package api

import (
	"net/http"
	"net/url"
	"strconv"

	"ytbridge/internal/playlist"
	"ytbridge/internal/resolver"
)

const playlistContentType = "application/vnd.apple.mpegurl"

// Playlist serves the single-variant media playlist. The document is
// synthesized fresh on every request; its only segment entry is the stream
// indirection endpoint, so the manifest URL stays valid long after the
// underlying signed URL expired.
func (a *ApiManagerCtx) Playlist(w http.ResponseWriter, r *http.Request) {
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

	// a live broadcast cannot be described as one finite segment
	if selection.Video.Live() {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "live_unsupported",
			Message: "source is a live stream, only finished media can be served",
		})
		return
	}

	doc := playlist.Media(
		selection.Video.Title,
		selection.Video.Duration,
		a.streamURI(sourceURL, quality),
	)

	w.Header().Set("Content-Type", playlistContentType)
	w.Header().Set("Content-Disposition", `inline; filename="playlist.m3u8"`)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	//nolint
	_, _ = w.Write([]byte(doc))
}

// MasterPlaylist lists every distinct video height as an alternative stream,
// each pointing at its own single-variant playlist.
func (a *ApiManagerCtx) MasterPlaylist(w http.ResponseWriter, r *http.Request) {
	sourceURL := r.URL.Query().Get("url")
	if sourceURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_url",
			Message: "missing url parameter",
		})
		return
	}

	selection, err := a.resolution.GetOrResolve(r.Context(), sourceURL, "best")
	if err != nil {
		a.httpError(w, err)
		return
	}

	if selection.Video.Live() {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "live_unsupported",
			Message: "source is a live stream, only finished media can be served",
		})
		return
	}

	hasVideo := false
	for _, v := range selection.Video.Variants {
		if v.HasVideo() && v.Height > 0 {
			hasVideo = true
			break
		}
	}
	// an audio-only set would synthesize a master playlist with no streams
	if !hasVideo {
		a.httpError(w, resolver.ErrNoFormats)
		return
	}

	doc := playlist.Master(selection.Video.Variants, func(height int) string {
		return a.playlistURI(sourceURL, strconv.Itoa(height))
	})

	w.Header().Set("Content-Type", playlistContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	//nolint
	_, _ = w.Write([]byte(doc))
}

// streamURI builds the indirection endpoint URI embedded as the playlist's
// segment entry. Root-relative so the manifest survives any host or proxy.
// Players fetch segments without custom headers, so a configured API key
// rides along as a query parameter.
func (a *ApiManagerCtx) streamURI(sourceURL string, quality string) string {
	return "/api/stream?" + a.signedQuery(sourceURL, quality)
}

func (a *ApiManagerCtx) playlistURI(sourceURL string, quality string) string {
	return "/api/m3u8?" + a.signedQuery(sourceURL, quality)
}

func (a *ApiManagerCtx) signedQuery(sourceURL string, quality string) string {
	q := url.Values{}
	q.Set("url", sourceURL)
	q.Set("quality", quality)
	if a.config.APIKey != "" {
		q.Set("api_key", a.config.APIKey)
	}
	return q.Encode()
}
