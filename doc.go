// Package main is the entry point of idp-login, a web login backend that
// signs users in through an OAuth2/OIDC identity provider and keeps a local
// session for them.
//
//	idp-login start --config ./etc/
//	idp-login config --json
package main
