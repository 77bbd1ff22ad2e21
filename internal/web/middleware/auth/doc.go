// Package auth provides the session middleware of the web application.
//
// New loads the signed in user from the session into fiber.Locals for
// handlers and templates. RequireUser guards routes and redirects anonymous
// requests to the login page, keeping the requested path in ?next=.
//
// Usage:
//
//	app.Use(authmiddleware.New(deps))
//	app.Get("/", authmiddleware.RequireUser(login.Path), home)
package auth
