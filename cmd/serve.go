package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ytbridge"
	"ytbridge/internal/config"
)

func init() {
	command := &cobra.Command{
		Use:   "serve",
		Short: "serve ytbridge server",
		Long:  `serve ytbridge server`,
		Run:   ytbridge.Service.ServeCommand,
	}

	configs := []config.Config{
		ytbridge.Service.ServerConfig,
	}

	cobra.OnInitialize(func() {
		for _, cfg := range configs {
			cfg.Set()
		}
		ytbridge.Service.Preflight()
	})

	onConfigLoad = append(onConfigLoad, func() {
		for _, cfg := range configs {
			cfg.Set()
		}
		ytbridge.Service.ConfigReload()
	})

	for _, cfg := range configs {
		if err := cfg.Init(command); err != nil {
			log.Panic().Err(err).Msg("unable to run serve command")
		}
	}

	rootCmd.AddCommand(command)
}
