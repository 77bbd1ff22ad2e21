package config

import (
	"time"

	"github.com/idp-login/idp-login/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
	CookieName string // name of the session cookie, default "session"
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover      bool    // disable recover middleware
	Domain              string  // domain name for the webserver
	Port                int     // listening port for the webserver
	ShutDownTime        int     // wait time for shutdown
	URL                 string  // base url for the webserver
	CookieEncryptionKey string  // base64 32 byte key, enables cookie encryption when set
	Session             Session // session settings
}

// Auth holds the login settings.
type Auth struct {
	// LoginRedirectURL is the fallback login page used when no user could be resolved.
	LoginRedirectURL string
	// SecretKey signs the state sent to the identity provider.
	SecretKey string `validate:"required,min=32"`
	// StateMaxAge bounds how old a returned state may be.
	StateMaxAge time.Duration
	Provider    Provider
	Local       LocalAuth
}

// Provider holds the identity provider client settings.
type Provider struct {
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	// TenantID selects the tenant of the default authority. Empty means "common".
	TenantID string
	// Authority overrides the issuer URL used for discovery.
	Authority string `validate:"omitempty,url"`
	Scopes    []string
	// SiteDomain is the public host[:port] used to build the callback URL.
	SiteDomain            string `validate:"required"`
	CallbackPath          string
	PostLogoutRedirectURL string `validate:"omitempty,url"`
	// LogoutURL is used when the provider does not announce an end_session_endpoint.
	LogoutURL string `validate:"omitempty,url"`
	// SubjectClaim names the claim holding the stable user id ("oid" for Microsoft).
	SubjectClaim string
	// VerifyIDToken maps users from the verified ID token instead of the access token payload.
	VerifyIDToken bool
}

// LocalAuth holds the settings of the local username/password fallback.
type LocalAuth struct {
	Enabled bool
	// AdminPassword seeds a local "admin" user on an empty user table when set.
	AdminPassword string
}
