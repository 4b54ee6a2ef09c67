package main

import (
	"depthmatch"

	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/module"
	"go.viam.com/rdk/resource"
	generic "go.viam.com/rdk/services/generic"
)

func main() {
	module.ModularMain(
		resource.APIModel{generic.API, depthmatch.Controller},
		resource.APIModel{sensor.API, depthmatch.SessionSensor},
	)
}
