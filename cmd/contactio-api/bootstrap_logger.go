package main

import (
	"go.uber.org/zap"

	config "github.com/soloviev-dev/contactio/internal/config/api"
	"github.com/soloviev-dev/contactio/internal/obs"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(obs.LogConfig{
		Level:   cfg.Log.Level,
		Pretty:  cfg.Log.Pretty,
		App:     cfg.App.Name,
		Env:     cfg.App.Env,
		Version: cfg.App.Version,
	})
}
