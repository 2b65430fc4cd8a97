package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	ernie "github.com/SusannaWull/ernie-2"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "ernie.json", "path to configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if *debug {
		logger = logger.Level(zerolog.DebugLevel)
	}

	cfg, err := ernie.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *configPath).Msg("loading configuration")
	}

	factory := func(addr string) (ernie.Asset, error) {
		return net.DialTimeout("tcp", addr, 5*time.Second)
	}

	pools, err := ernie.NewPoolSet(cfg.Pools, factory, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("building worker pools")
	}

	routes := ernie.NewRouteTable(cfg.Pools)
	transport := &ernie.ConnTransport{
		WriteTimeout: cfg.WriteTimeout(),
		ReadTimeout:  cfg.WorkerTimeout(),
	}

	srv, err := ernie.NewServer(cfg.Listen, routes, pools, transport, &ernie.ServerConfig{
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("configuring server")
	}

	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("starting server")
	}
	logger.Info().
		Str("listen", cfg.Listen).
		Int("pools", len(cfg.Pools)).
		Int("modules", routes.Len()).
		Msg("gateway up")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("shutting down")
	if err := srv.Stop(); err != nil {
		logger.Error().Err(err).Msg("stopping server")
	}
}
