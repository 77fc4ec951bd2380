package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"ytbridge/internal/extractor"
)

type qualityDescriptor struct {
	Quality  string  `json:"quality"`
	Height   int     `json:"height"`
	Width    int     `json:"width,omitempty"`
	FPS      float64 `json:"fps,omitempty"`
	HasAudio bool    `json:"has_audio"`
	M3U8URL  string  `json:"m3u8_url"`
}

type formatsResponse struct {
	Title     string              `json:"title"`
	IsLive    bool                `json:"is_live"`
	Duration  float64             `json:"duration"`
	Uploader  string              `json:"uploader,omitempty"`
	Thumbnail string              `json:"thumbnail,omitempty"`
	Qualities []qualityDescriptor `json:"available_qualities"`
}

// Formats lists the distinct video heights of one variant set, highest
// first, each with a ready-made playlist URL.
func (a *ApiManagerCtx) Formats(w http.ResponseWriter, r *http.Request) {
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

	video := selection.Video

	seen := map[int]bool{}
	qualities := []qualityDescriptor{}
	for _, v := range video.Variants {
		if !v.HasVideo() || v.Height <= 0 || seen[v.Height] {
			continue
		}
		seen[v.Height] = true

		qualities = append(qualities, qualityDescriptor{
			Quality:  v.QualityLabel(),
			Height:   v.Height,
			Width:    v.Width,
			FPS:      v.FPS,
			HasAudio: v.HasAudio(),
			M3U8URL:  a.playlistURI(sourceURL, strconv.Itoa(v.Height)),
		})
	}

	sort.Slice(qualities, func(i, j int) bool {
		return qualities[i].Height > qualities[j].Height
	})

	writeJSON(w, http.StatusOK, formatsResponse{
		Title:     video.Title,
		IsLive:    video.IsLive,
		Duration:  video.Duration,
		Uploader:  video.Uploader,
		Thumbnail: video.Thumbnail,
		Qualities: qualities,
	})
}

type infoResponse struct {
	*extractor.VideoInfo
	FormatsCount int `json:"formats_count"`
}

// Info dumps the full extraction result for clients that implement their own
// quality logic.
func (a *ApiManagerCtx) Info(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, infoResponse{
		VideoInfo:    selection.Video,
		FormatsCount: len(selection.Video.Variants),
	})
}

type healthResponse struct {
	Status            string `json:"status"`
	ExtractorVersion  string `json:"extractor_version"`
	CookiesConfigured bool   `json:"cookies_configured"`
}

func (a *ApiManagerCtx) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	version, err := a.extractor.Version(ctx)
	if err != nil {
		version = "unknown"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:            "ok",
		ExtractorVersion:  version,
		CookiesConfigured: a.config.CookiesFile != "",
	})
}
