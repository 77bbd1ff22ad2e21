// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// EnvConfigJSON names the environment variable holding a JSON config override.
// Durations in the override (Auth.StateMaxAge, Webserver.Session.ExpiryTime)
// are integer nanoseconds, e.g. {"Auth":{"StateMaxAge":60000000000}} for 60s;
// the TOML file takes strings like "60s".
const EnvConfigJSON = "IDP_LOGIN_CONFIG_JSON"

const (
	defaultShutDownTime      = 5
	cookieKeyLen             = 32
	defaultSessionExpiry     = 24 * time.Hour
	defaultSessionCookieName = "session"
	defaultLoginRedirectURL  = "/login"
	defaultStateMaxAge       = 300 * time.Second
	defaultCallbackPath      = "/auth/callback"
	defaultSubjectClaim      = "oid"
	defaultSQLiteName        = "idp-login.db"

	// DefaultLogoutURL is the Microsoft identity platform end-session endpoint.
	DefaultLogoutURL = "https://login.microsoftonline.com/common/oauth2/v2.0/logout"
)

// DefaultScopes are requested when no scopes are configured.
var DefaultScopes = []string{"openid", "profile", "email"}

var validate = validator.New()

// ReadConfig reads main.toml from the directory path, "./etc/" when empty.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(filepath.Join(path, "main.toml"), &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	setDefaults(&c)

	return c, Validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read json config override")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

func setDefaults(c *Config) {
	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	if c.Webserver.Session.ExpiryTime == 0 {
		c.Webserver.Session.ExpiryTime = defaultSessionExpiry
	}

	if c.Webserver.Session.CookieName == "" {
		c.Webserver.Session.CookieName = defaultSessionCookieName
	}

	if c.DB.GormEngine == "" {
		c.DB.GormEngine = EngineSQLite
	}

	if c.DB.GormEngine == EngineSQLite && c.DB.Name == "" {
		c.DB.Name = defaultSQLiteName
	}

	if c.Auth.LoginRedirectURL == "" {
		c.Auth.LoginRedirectURL = defaultLoginRedirectURL
	}

	if c.Auth.StateMaxAge == 0 {
		c.Auth.StateMaxAge = defaultStateMaxAge
	}

	p := &c.Auth.Provider

	if len(p.Scopes) == 0 {
		p.Scopes = append([]string(nil), DefaultScopes...)
	}

	if p.CallbackPath == "" {
		p.CallbackPath = defaultCallbackPath
	}

	if p.SubjectClaim == "" {
		p.SubjectClaim = defaultSubjectClaim
	}

	if p.LogoutURL == "" {
		p.LogoutURL = DefaultLogoutURL
	}
}

// Validate checks the config settings needed to start the service.
func Validate(c *Config) error {
	invalidErrMessage := "invalid config"

	// validate webserver listening port
	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	switch c.DB.GormEngine {
	case EngineMySQL, EnginePostgres, EngineSQLite:
	default:
		return errors.Wrap(ErrUnknownGormEngine, invalidErrMessage)
	}

	if c.Auth.Provider.CallbackPath != "" && !strings.HasPrefix(c.Auth.Provider.CallbackPath, "/") {
		return errors.Wrap(ErrCallbackPathNotAbsolute, invalidErrMessage)
	}

	if key := c.Webserver.CookieEncryptionKey; key != "" {
		if raw, err := base64.StdEncoding.DecodeString(key); err != nil || len(raw) != cookieKeyLen {
			return errors.Wrap(ErrCookieEncryptionKey, invalidErrMessage)
		}
	}

	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	return nil
}
