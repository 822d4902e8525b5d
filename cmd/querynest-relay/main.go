package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PadhikariDev/querynest/internal/config"
	"github.com/PadhikariDev/querynest/internal/logger"
	"github.com/PadhikariDev/querynest/internal/relay"
)

func main() {
	var configFile string
	cmd := &cobra.Command{
		Use:           "querynest-relay",
		Short:         "Development realtime relay for QueryNest",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")

	if err := cmd.Execute(); err != nil {
		log := logger.New("", "")
		log.Fatal().Err(err).Msg("relay failed")
	}
}

func run(configFile string) error {
	v := config.New()
	if err := config.ReadFile(v, configFile, false); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	if cfg.Relay.JWTSecret == "" {
		if cfg.IsProduction() {
			log.Fatal().Msg("relay.jwt_secret is required in production")
		}
		log.Warn().Msg("relay.jwt_secret not set, accepting unauthenticated connections")
	}

	srv := relay.NewServer(relay.Options{
		JWTSecret:    cfg.Relay.JWTSecret,
		AdminKey:     cfg.Relay.AdminKey,
		Logger:       log,
		UpgradeLimit: cfg.Relay.UpgradeLimit,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Listen(":" + cfg.Relay.Port); err != nil {
			log.Fatal().Err(err).Msg("relay stopped")
		}
	}()

	log.Info().Str("port", cfg.Relay.Port).Str("env", cfg.Env).Msg("QueryNest relay running")

	<-quit
	log.Info().Msg("shutting down")
	if err := srv.Shutdown(5 * time.Second); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("relay stopped")
	return nil
}
