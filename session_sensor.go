package depthmatch

import (
	"context"
	"fmt"

	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/data"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
)

var SessionSensor = resource.NewModel("viamdemo", "depth-adjustment", "session-sensor")

func init() {
	resource.RegisterComponent(sensor.API, SessionSensor,
		resource.Registration[sensor.Sensor, *SessionSensorConfig]{
			Constructor: newSessionSensor,
		},
	)
}

type SessionSensorConfig struct {
	Controller string `json:"controller"`
}

func (cfg *SessionSensorConfig) Validate(path string) ([]string, []string, error) {
	if cfg.Controller == "" {
		return nil, nil, fmt.Errorf("%s: controller is required", path)
	}
	// Return full resource name so Viam knows this is a generic service dependency
	dep := resource.NewName(resource.APINamespaceRDK.WithServiceType("generic"), cfg.Controller)
	return []string{dep.String()}, nil, nil
}

const fromDataManagementKey = "fromDataManagement"

type stateProvider interface {
	GetState() map[string]interface{}
}

type sessionSensor struct {
	resource.AlwaysRebuild

	name       resource.Name
	logger     logging.Logger
	controller stateProvider
}

func newSessionSensor(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (sensor.Sensor, error) {
	conf, err := resource.NativeConfig[*SessionSensorConfig](rawConf)
	if err != nil {
		return nil, err
	}

	controllerName := resource.NewName(resource.APINamespaceRDK.WithServiceType("generic"), conf.Controller)
	ctrl, ok := deps[controllerName]
	if !ok {
		return nil, fmt.Errorf("controller %q not found in dependencies", conf.Controller)
	}

	provider, ok := ctrl.(stateProvider)
	if !ok {
		return nil, fmt.Errorf("controller %q does not implement GetState", conf.Controller)
	}

	return &sessionSensor{
		name:       rawConf.ResourceName(),
		logger:     logger,
		controller: provider,
	}, nil
}

func (s *sessionSensor) Name() resource.Name {
	return s.name
}

// Readings returns the controller state. Data capture only stores readings
// while main-block trials are running.
func (s *sessionSensor) Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
	state := s.controller.GetState()
	if fromDM, _ := extra[fromDataManagementKey].(bool); fromDM {
		if shouldSync, _ := state["should_sync"].(bool); !shouldSync {
			return nil, data.ErrNoCaptureToStore
		}
	}
	return state, nil
}

func (s *sessionSensor) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	return nil, fmt.Errorf("DoCommand not supported on session-sensor")
}

func (s *sessionSensor) Close(context.Context) error {
	return nil
}
