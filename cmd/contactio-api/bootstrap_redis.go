package main

import (
	"context"

	config "github.com/soloviev-dev/contactio/internal/config/api"
	rds "github.com/soloviev-dev/contactio/internal/repository/redis"
)

func initRedis(ctx context.Context, cfg *config.Config) (*rds.Client, error) {
	return rds.NewClient(ctx, cfg.Redis)
}
