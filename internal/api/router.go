package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ytbridge/internal/config"
	"ytbridge/internal/extractor"
	"ytbridge/internal/resolution"
)

type ApiManagerCtx struct {
	logger     zerolog.Logger
	config     *config.Server
	resolution *resolution.ManagerCtx
	extractor  extractor.Extractor
}

func New(config *config.Server, res *resolution.ManagerCtx, ex extractor.Extractor) *ApiManagerCtx {
	return &ApiManagerCtx{
		logger:     log.With().Str("module", "api").Logger(),
		config:     config,
		resolution: res,
		extractor:  ex,
	}
}

func (a *ApiManagerCtx) Mount(r *chi.Mux) {
	r.Get("/health", a.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(a.Authenticate)

		r.Get("/m3u8", a.Playlist)
		r.Get("/master", a.MasterPlaylist)
		r.Get("/stream", a.Stream)
		r.Get("/stream-url", a.StreamURL)
		r.Get("/formats", a.Formats)
		r.Get("/info", a.Info)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)

	//nolint
	_ = json.NewEncoder(w).Encode(v)
}
