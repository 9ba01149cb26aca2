package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	config "github.com/soloviev-dev/contactio/internal/config/api"
	"github.com/soloviev-dev/contactio/internal/mailer"
	"github.com/soloviev-dev/contactio/internal/obs"
	"github.com/soloviev-dev/contactio/internal/password"
	pg "github.com/soloviev-dev/contactio/internal/repository/postgres"
	rds "github.com/soloviev-dev/contactio/internal/repository/redis"
	"github.com/soloviev-dev/contactio/internal/services/api/auth"
	"github.com/soloviev-dev/contactio/internal/services/api/contacts"
	"github.com/soloviev-dev/contactio/internal/token"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, db *pg.DB, rdb *rds.Client) *http.Server {
	userRepo := pg.NewUserRepo(db)
	contactRepo := pg.NewContactRepo(db)
	identityCache := rds.NewIdentityCache(rdb)

	codec := token.NewCodec(token.Config{
		Secret:     []byte(cfg.Auth.Secret),
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
		ConfirmTTL: cfg.Auth.ConfirmTTL,
	})
	hasher := password.NewHasher(cfg.Auth.BcryptCost)

	smtpCfg := cfg.SMTP
	smtpCfg.BaseURL = cfg.App.BaseURL
	mail := mailer.New(smtpCfg, logger)

	authUC := auth.NewUsecase(userRepo, identityCache, codec, hasher, mail, auth.Config{
		CacheTTL:    cfg.Auth.CacheTTL,
		MailTimeout: cfg.Auth.MailTimeout,
	}, logger)
	contactsUC := contacts.NewUsecase(contactRepo, nil)

	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	api := engine.Group("/api")
	authorized := auth.Middleware(authUC)

	authCtrl := auth.NewController(authUC, logger)
	authCtrl.Register(api)
	authCtrl.RegisterUsers(api, authorized)

	contacts.NewController(contactsUC, logger).Register(api, authorized)

	return &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      obs.TraceHandler(engine, "contactio-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
