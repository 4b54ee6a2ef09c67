package depthmatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	generic "go.viam.com/rdk/services/generic"
)

var Controller = resource.NewModel("viamdemo", "depth-adjustment", "controller")

func init() {
	resource.RegisterService(generic.API, Controller,
		resource.Registration[resource.Resource, *Config]{
			Constructor: newDepthAdjustmentController,
		},
	)
}

var genericComponentAPI = resource.APINamespaceRDK.WithComponentType("generic")

// Config is the controller's attribute block. Stimulus, Response and
// Instructions name optional generic components; ConfirmKey is the readings
// key holding the button level (default "confirm"); Seed fixes the main-block
// order.
type Config struct {
	ParticipantID string   `json:"participant_id"`
	ConfirmSensor string   `json:"confirm_sensor"`
	ConfirmKey    string   `json:"confirm_key,omitempty"`
	Stimulus      string   `json:"stimulus,omitempty"`
	Response      string   `json:"response,omitempty"`
	Instructions  string   `json:"instructions,omitempty"`
	OutputDir     string   `json:"output_dir,omitempty"`
	AutoStart     bool     `json:"auto_start,omitempty"`
	Seed          *uint64  `json:"seed,omitempty"`
	TickHz        int      `json:"tick_hz,omitempty"`
	AmplitudeMin  *float64 `json:"amplitude_min,omitempty"`
	AmplitudeMax  *float64 `json:"amplitude_max,omitempty"`
}

const (
	defaultOutputDir = "DepthAdjustmentData"
	defaultTickHz    = 60
)

func (cfg *Config) Validate(path string) ([]string, []string, error) {
	if cfg.ParticipantID == "" {
		return nil, nil, fmt.Errorf("%s: participant_id is required", path)
	}
	if err := validateParticipantID(cfg.ParticipantID); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.ConfirmSensor == "" {
		return nil, nil, fmt.Errorf("%s: confirm_sensor is required", path)
	}
	if cfg.TickHz < 0 {
		return nil, nil, fmt.Errorf("%s: tick_hz must not be negative", path)
	}
	if cfg.AmplitudeMin != nil && cfg.AmplitudeMax != nil && *cfg.AmplitudeMin >= *cfg.AmplitudeMax {
		return nil, nil, fmt.Errorf("%s: amplitude_min must be below amplitude_max", path)
	}

	var optional []string
	for _, name := range []string{cfg.Stimulus, cfg.Response, cfg.Instructions} {
		if name != "" {
			optional = append(optional, resource.NewName(genericComponentAPI, name).String())
		}
	}
	return []string{cfg.ConfirmSensor}, optional, nil
}

func (cfg *Config) sessionConfig() SessionConfig {
	sc := SessionConfig{
		ParticipantID: cfg.ParticipantID,
		AutoStart:     cfg.AutoStart,
		AmplitudeMin:  defaultAmplitudeMin,
		AmplitudeMax:  defaultAmplitudeMax,
	}
	if cfg.AmplitudeMin != nil {
		sc.AmplitudeMin = *cfg.AmplitudeMin
	}
	if cfg.AmplitudeMax != nil {
		sc.AmplitudeMax = *cfg.AmplitudeMax
	}
	if cfg.Seed != nil {
		sc.Design = NewSeededTrialDesign(*cfg.Seed)
	}
	return sc
}

type depthAdjustmentController struct {
	resource.AlwaysRebuild

	name   resource.Name
	logger logging.Logger
	cfg    *Config

	confirm confirmReader
	tick    time.Duration

	mu      sync.Mutex
	session *Session

	cancelCtx  context.Context
	cancelFunc func()
	loopDone   chan struct{}
}

func newDepthAdjustmentController(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (resource.Resource, error) {
	conf, err := resource.NativeConfig[*Config](rawConf)
	if err != nil {
		return nil, err
	}

	return NewController(ctx, deps, rawConf.ResourceName(), conf, logger)
}

func NewController(ctx context.Context, deps resource.Dependencies, name resource.Name, conf *Config, logger logging.Logger) (resource.Resource, error) {
	confirmSensor, err := sensor.FromDependencies(deps, conf.ConfirmSensor)
	if err != nil {
		return nil, fmt.Errorf("getting confirm sensor: %w", err)
	}

	collab, err := collaboratorsFromDependencies(deps, conf, logger)
	if err != nil {
		return nil, err
	}

	outputDir := conf.OutputDir
	if outputDir == "" {
		outputDir = defaultOutputDir
	}
	tickHz := conf.TickHz
	if tickHz <= 0 {
		tickHz = defaultTickHz
	}

	cancelCtx, cancelFunc := context.WithCancel(context.Background())

	s := &depthAdjustmentController{
		name:       name,
		logger:     logger,
		cfg:        conf,
		confirm:    newSensorConfirmReader(confirmSensor, conf.ConfirmKey),
		tick:       time.Second / time.Duration(tickHz),
		session:    NewSession(ctx, conf.sessionConfig(), collab, NewRecorder(outputDir), logger),
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
		loopDone:   make(chan struct{}),
	}

	go s.tickLoop()

	return s, nil
}

// collaboratorsFromDependencies resolves the optional generic components.
// A configured name that is missing from deps is an error; an unconfigured
// one is simply absent.
func collaboratorsFromDependencies(deps resource.Dependencies, conf *Config, logger logging.Logger) (Collaborators, error) {
	var collab Collaborators

	lookup := func(what, name string) (resource.Resource, error) {
		if name == "" {
			return nil, nil
		}
		res, ok := deps[resource.NewName(genericComponentAPI, name)]
		if !ok {
			return nil, fmt.Errorf("%s %q not found in dependencies", what, name)
		}
		logger.Infof("using %s component %q", what, name)
		return res, nil
	}

	res, err := lookup("stimulus", conf.Stimulus)
	if err != nil {
		return collab, err
	}
	if res != nil {
		collab.Stimulus = NewStimulusComponent(res)
	}

	res, err = lookup("response", conf.Response)
	if err != nil {
		return collab, err
	}
	if res != nil {
		collab.Response = NewResponseComponent(res)
	}

	res, err = lookup("instructions", conf.Instructions)
	if err != nil {
		return collab, err
	}
	if res != nil {
		collab.Presenter = NewInstructionComponent(res)
	}
	return collab, nil
}

func (s *depthAdjustmentController) Name() resource.Name {
	return s.name
}

// tickLoop samples the confirm input and advances the session once per tick
// until the session is done or the controller is closed.
func (s *depthAdjustmentController) tickLoop() {
	defer close(s.loopDone)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.cancelCtx.Done():
			s.mu.Lock()
			s.session.Abort(s.cancelCtx)
			s.mu.Unlock()
			return
		case <-ticker.C:
			in := sampleConfirm(s.cancelCtx, s.confirm)

			s.mu.Lock()
			err := s.session.Step(s.cancelCtx, time.Now(), in)
			done := s.session.Done()
			s.mu.Unlock()

			if err != nil {
				s.logger.Errorf("session failed: %v", err)
			}
			if done {
				s.logger.Infof("session finished, tick loop stopped")
				return
			}
		}
	}
}

func (s *depthAdjustmentController) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	command, ok := cmd["command"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'command' field")
	}

	switch command {
	case "start":
		return s.handleStart(), nil
	case "status":
		return s.GetState(), nil
	case "abort":
		return s.handleAbort(ctx), nil
	default:
		return nil, fmt.Errorf("unknown command: %s", command)
	}
}

// handleStart arms the session; repeated requests are ignored.
func (s *depthAdjustmentController) handleStart() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.session.Start()
	if !started {
		s.logger.Infof("start ignored: session already started (phase %s)", s.session.Phase())
	}
	return map[string]interface{}{
		"started":    started,
		"session_id": s.session.ID(),
		"phase":      s.session.Phase().String(),
	}
}

func (s *depthAdjustmentController) handleAbort(ctx context.Context) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.Abort(ctx)
	return map[string]interface{}{
		"session_id": s.session.ID(),
		"phase":      s.session.Phase().String(),
		"records":    s.session.recorder.Len(),
	}
}

// GetState is read by the session sensor for data capture.
func (s *depthAdjustmentController) GetState() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.session.Snapshot()
	state["state"] = "running"
	switch {
	case s.session.Phase() == PhaseIdle:
		state["state"] = "idle"
	case s.session.Done():
		state["state"] = "finished"
	}
	return state
}

func (s *depthAdjustmentController) Close(context.Context) error {
	s.cancelFunc()
	<-s.loopDone
	return nil
}
