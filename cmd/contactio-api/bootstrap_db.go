package main

import (
	"context"

	config "github.com/soloviev-dev/contactio/internal/config/api"
	pg "github.com/soloviev-dev/contactio/internal/repository/postgres"
)

func initDB(ctx context.Context, cfg *config.Config) (*pg.DB, error) {
	return pg.NewDB(ctx, cfg.DB)
}
