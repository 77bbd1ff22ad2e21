// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/idp-login/idp-login/internal/config"
)

const defaultConfigPath = "./etc/"

var (
	configPath string // Path to the configuration file

	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "idp-login",
		Short: "idp-login signs users in through an OAuth2/OIDC identity provider",
		Long: `idp-login is a web login backend that delegates sign-in to an
OAuth2/OIDC identity provider (Microsoft identity platform by default),
maps the returned claims onto local users and keeps a local session.`,
		Args: cobra.OnlyValidArgs,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Directory holding main.toml")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() error {
	var err error

	cfg, err = config.ReadConfig(configPath)

	return err //nolint:wrapcheck
}
