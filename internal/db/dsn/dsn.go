// Package dsn builds database connection strings from the configuration.
package dsn

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/idp-login/idp-login/internal/config"
)

// Create builds the gorm Data Source Name for the configured engine.
func Create(cfg *config.Config) string {
	db := cfg.DB

	switch db.GormEngine {
	case config.EnginePostgres:
		out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
			db.Host, db.Port, db.User, db.Password, db.Name)
		if db.Extras != "" {
			out += " " + db.Extras
		}

		return out
	case config.EngineSQLite:
		if db.Extras == "" {
			return db.Name
		}

		return db.Name + "?" + db.Extras
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			db.User,
			db.Password,
			db.Host,
			db.Port,
			db.Name,
			db.Extras,
		)
	}
}

// StorageURI builds the connection URI used by the fiber session storage drivers.
// It is empty for engines without a session storage driver.
func StorageURI(cfg *config.Config) string {
	db := cfg.DB
	hostPort := net.JoinHostPort(db.Host, strconv.Itoa(db.Port))

	switch db.GormEngine {
	case config.EnginePostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(db.User, db.Password),
			Host:     hostPort,
			Path:     "/" + db.Name,
			RawQuery: "sslmode=disable",
		}

		return u.String()
	case config.EngineMySQL:
		return Create(cfg)
	default:
		return ""
	}
}
