// Package daemon is the composition root: it builds the database, session
// storage, identity provider client and web service once at startup.
package daemon

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/idp-login/idp-login/internal/auth"
	"github.com/idp-login/idp-login/internal/config"
	"github.com/idp-login/idp-login/internal/db/controller/user"
	"github.com/idp-login/idp-login/internal/db/models"
	"github.com/idp-login/idp-login/internal/logger"
	"github.com/idp-login/idp-login/internal/web"
	"github.com/idp-login/idp-login/internal/web/handler"
	"github.com/idp-login/idp-login/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start serves HTTP until SIGINT or SIGTERM.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(":" + strconv.Itoa(d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, handler.ErrMissingDependency
	}

	if err := logger.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	db, err := gorm.Open(dialector(cfg), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err = db.AutoMigrate(&models.User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	users := user.New(db)

	if err = seed(ctx, cfg, users); err != nil {
		return nil, err
	}

	p := cfg.Auth.Provider

	client, err := auth.NewOIDCClient(ctx, auth.OIDCConfig{
		TenantID:      p.TenantID,
		Authority:     p.Authority,
		ClientID:      p.ClientID,
		ClientSecret:  p.ClientSecret,
		LogoutURL:     p.LogoutURL,
		VerifyIDToken: p.VerifyIDToken,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	backend := auth.NewBackend(
		client,
		auth.NewStateSigner(cfg.Auth.SecretKey, cfg.Auth.StateMaxAge),
		auth.NewMapper(users, p.SubjectClaim),
		auth.BackendConfig{
			Scopes:                p.Scopes,
			SiteDomain:            p.SiteDomain,
			CallbackPath:          p.CallbackPath,
			PostLogoutRedirectURL: p.PostLogoutRedirectURL,
			VerifyIDToken:         p.VerifyIDToken,
		},
	)

	webService, err := web.New(cfg, &handler.Deps{
		Sessions: session.New(sessionStorage(cfg), cfg.Webserver.Session, cfg.DevMode),
		Backend:  backend,
		Local:    auth.NewLocalProvider(users, cfg.Auth.Local.Enabled),
		Users:    users,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	log.Info().
		Str("engine", cfg.DB.GormEngine).
		Str("authority", auth.AuthorityURL(p.TenantID, p.Authority)).
		Bool("local_login", cfg.Auth.Local.Enabled).
		Msg("daemon initialized")

	return &Daemon{cfg: cfg, webService: webService}, nil
}
