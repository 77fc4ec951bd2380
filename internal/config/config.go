package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type Config interface {
	Init(cmd *cobra.Command) error
	Set()
}

type Server struct {
	Bind   string
	Cert   string
	Key    string
	Static string
	Proxy  bool
	PProf  bool

	// APIKey guards every /api endpoint; empty means open access.
	APIKey string
	// CookiesFile is handed to the extractor for gated sources.
	CookiesFile string

	CacheTTL    time.Duration
	CacheMargin time.Duration

	ExtractorBinary  string
	ExtractorTimeout time.Duration
}

func (Server) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("bind", "127.0.0.1:8080", "address/port/socket to serve http")
	if err := viper.BindPFlag("bind", cmd.PersistentFlags().Lookup("bind")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("cert", "", "path to the SSL cert")
	if err := viper.BindPFlag("cert", cmd.PersistentFlags().Lookup("cert")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("key", "", "path to the SSL key")
	if err := viper.BindPFlag("key", cmd.PersistentFlags().Lookup("key")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("static", "", "path to client files to serve")
	if err := viper.BindPFlag("static", cmd.PersistentFlags().Lookup("static")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("proxy", false, "allow reverse proxies")
	if err := viper.BindPFlag("proxy", cmd.PersistentFlags().Lookup("proxy")); err != nil {
		return err
	}

	cmd.PersistentFlags().Bool("pprof", false, "enable pprof endpoint available at /debug/pprof")
	if err := viper.BindPFlag("pprof", cmd.PersistentFlags().Lookup("pprof")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("api-key", "", "shared secret required on every API request, empty disables the gate")
	if err := viper.BindPFlag("api-key", cmd.PersistentFlags().Lookup("api-key")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("cookies", "", "path to a Netscape cookies file for gated sources")
	if err := viper.BindPFlag("cookies", cmd.PersistentFlags().Lookup("cookies")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("cache.ttl", 5*time.Minute, "how long a resolved selection may be reused")
	if err := viper.BindPFlag("cache.ttl", cmd.PersistentFlags().Lookup("cache.ttl")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("cache.margin", time.Minute, "safety margin before signed URL expiry")
	if err := viper.BindPFlag("cache.margin", cmd.PersistentFlags().Lookup("cache.margin")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("extractor.binary", "yt-dlp", "extractor binary to invoke")
	if err := viper.BindPFlag("extractor.binary", cmd.PersistentFlags().Lookup("extractor.binary")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("extractor.timeout", time.Minute, "upper bound on a single resolution")
	if err := viper.BindPFlag("extractor.timeout", cmd.PersistentFlags().Lookup("extractor.timeout")); err != nil {
		return err
	}

	return nil
}

func (s *Server) Set() {
	s.Bind = viper.GetString("bind")
	s.Cert = viper.GetString("cert")
	s.Key = viper.GetString("key")
	s.Static = viper.GetString("static")
	s.Proxy = viper.GetBool("proxy")
	s.PProf = viper.GetBool("pprof")

	s.APIKey = viper.GetString("api-key")
	s.CookiesFile = viper.GetString("cookies")

	s.CacheTTL = viper.GetDuration("cache.ttl")
	s.CacheMargin = viper.GetDuration("cache.margin")

	s.ExtractorBinary = viper.GetString("extractor.binary")
	s.ExtractorTimeout = viper.GetDuration("extractor.timeout")
}
