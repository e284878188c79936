// Command marketplace serves the meal marketplace API.
package main

import (
	"github.com/mealboard/marketplace/pkg/app"
	"github.com/mealboard/marketplace/pkg/cli"
)

func main() {
	cli.Execute(cli.NewServiceCommand(cli.ServiceCommandOptions{
		Name:              "marketplace",
		Description:       "Meal marketplace listings and user API",
		RunServer:         app.RunServer,
		CheckDependencies: app.CheckDependencies,
		EnsureIndexes:     app.EnsureIndexes,
		Seed:              app.Seed,
	}))
}
