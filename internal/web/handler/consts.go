package handler

const (
	// BaseLayout is the default path for layout templates.
	BaseLayout = "layouts/base"

	// RootPath is the root path the route group.
	RootPath = "/"

	// LocalsUser is the fiber.Locals key of the signed in *models.User.
	LocalsUser = "CurrentUser"
)
