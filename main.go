package ytbridge

import (
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ytbridge/internal/api"
	"ytbridge/internal/config"
	"ytbridge/internal/extractor"
	"ytbridge/internal/resolution"
	"ytbridge/internal/server"
)

var Service *Main

func init() {
	Service = &Main{
		ServerConfig: &config.Server{},
	}
}

type Main struct {
	ServerConfig *config.Server

	logger     zerolog.Logger
	extractor  *extractor.YtDlpCtx
	resolution *resolution.ManagerCtx
	apiManager *api.ApiManagerCtx
	server     *server.ServerManagerCtx
}

func (main *Main) Preflight() {
	main.logger = log.With().Str("service", "main").Logger()
}

func (main *Main) Start() {
	cfg := main.ServerConfig

	main.extractor = extractor.NewYtDlp(cfg.ExtractorBinary, cfg.CookiesFile)

	main.resolution = resolution.New(main.extractor, resolution.Config{
		TTL:     cfg.CacheTTL,
		Margin:  cfg.CacheMargin,
		Timeout: cfg.ExtractorTimeout,
	})
	main.resolution.Start()

	main.apiManager = api.New(cfg, main.resolution, main.extractor)

	main.server = server.New(cfg)
	main.server.Mount(main.apiManager.Mount)
	main.server.Start()
}

func (main *Main) Shutdown() {
	if err := main.server.Shutdown(); err != nil {
		main.logger.Err(err).Msg("server shutdown with an error")
	} else {
		main.logger.Debug().Msg("server shutdown")
	}

	main.resolution.Stop()
}

// ConfigReload drops all cached resolutions so new credentials or cache
// bounds take effect immediately.
func (main *Main) ConfigReload() {
	if main.resolution != nil {
		main.resolution.Purge()
		main.logger.Info().Msg("resolution cache purged after config reload")
	}
}

func (main *Main) ServeCommand(cmd *cobra.Command, args []string) {
	main.logger.Info().Msg("starting main server")
	main.Start()
	main.logger.Info().Msg("main ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	sig := <-quit

	main.logger.Warn().Msgf("received %s, attempting graceful shutdown", sig)
	main.Shutdown()
	main.logger.Info().Msg("shutdown complete")
}
