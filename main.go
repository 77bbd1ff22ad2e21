package main

import (
	"os"

	"github.com/idp-login/idp-login/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
