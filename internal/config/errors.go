package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownGormEngine error if config db.gormEngine is not supported.
	ErrUnknownGormEngine = errors.New("toml config db.gormEngine must be one of mysql, postgres, sqlite")

	// ErrCallbackPathNotAbsolute error if config auth.provider.callbackPath does not start with a slash.
	ErrCallbackPathNotAbsolute = errors.New("toml config auth.provider.callbackPath must start with /")

	// ErrCookieEncryptionKey error if config webserver.cookieEncryptionKey is not a base64 encoded 32 byte key.
	ErrCookieEncryptionKey = errors.New("toml config webserver.cookieEncryptionKey must be a base64 encoded 32 byte key")
)
