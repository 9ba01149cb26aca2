package main

import (
	"context"

	config "github.com/soloviev-dev/contactio/internal/config/api"
	"github.com/soloviev-dev/contactio/internal/obs"
)

func initOTel(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	closer, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		return nil, err
	}
	return closer.Shutdown, nil
}
