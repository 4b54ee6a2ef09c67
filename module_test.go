package depthmatch

import (
	"context"
	"testing"
	"time"

	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
)

func testDeps(t *testing.T) (resource.Dependencies, *Config) {
	cfg := &Config{
		ParticipantID: "P001",
		ConfirmSensor: "confirm-button",
		Stimulus:      "stimulus",
		Response:      "response",
		Instructions:  "instructions",
		OutputDir:     t.TempDir(),
	}
	button := newConfirmSensor(func() (map[string]interface{}, error) {
		return map[string]interface{}{"confirm": false}, nil
	})
	deps := resource.Dependencies{
		resource.NewName(sensor.API, "confirm-button"): button,
	}
	for _, name := range []string{"stimulus", "response", "instructions"} {
		deps[resource.NewName(genericComponentAPI, name)] = newFakeGeneric(name)
	}
	return deps, cfg
}

func newTestController(t *testing.T) *depthAdjustmentController {
	logger := logging.NewTestLogger(t)
	name := resource.NewName(resource.APINamespaceRDK.WithServiceType("generic"), "test")
	deps, cfg := testDeps(t)

	ctrl, err := NewController(context.Background(), deps, name, cfg, logger)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	t.Cleanup(func() { ctrl.Close(context.Background()) })
	return ctrl.(*depthAdjustmentController)
}

func TestNewController(t *testing.T) {
	logger := logging.NewTestLogger(t)
	name := resource.NewName(resource.APINamespaceRDK.WithServiceType("generic"), "test")
	deps, cfg := testDeps(t)

	ctrl, err := NewController(context.Background(), deps, name, cfg, logger)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	defer ctrl.Close(context.Background())
	if ctrl.Name() != name {
		t.Errorf("Name() = %v, want %v", ctrl.Name(), name)
	}

	dc := ctrl.(*depthAdjustmentController)
	if len(dc.session.MainTrials()) != 40 {
		t.Errorf("expected 40 main trials, got %d", len(dc.session.MainTrials()))
	}
	if dc.tick != time.Second/60 {
		t.Errorf("expected default tick of 60Hz, got %v", dc.tick)
	}
}

func TestNewController_Dependencies(t *testing.T) {
	logger := logging.NewTestLogger(t)
	name := resource.NewName(resource.APINamespaceRDK.WithServiceType("generic"), "test")

	t.Run("fails without confirm sensor", func(t *testing.T) {
		deps, cfg := testDeps(t)
		delete(deps, resource.NewName(sensor.API, "confirm-button"))
		if _, err := NewController(context.Background(), deps, name, cfg, logger); err == nil {
			t.Error("expected error when confirm sensor missing")
		}
	})

	t.Run("fails when configured collaborator missing", func(t *testing.T) {
		deps, cfg := testDeps(t)
		delete(deps, resource.NewName(genericComponentAPI, "response"))
		if _, err := NewController(context.Background(), deps, name, cfg, logger); err == nil {
			t.Error("expected error when response component missing")
		}
	})

	t.Run("optional collaborators may be omitted", func(t *testing.T) {
		deps, cfg := testDeps(t)
		cfg.Stimulus, cfg.Response, cfg.Instructions = "", "", ""
		ctrl, err := NewController(context.Background(), deps, name, cfg, logger)
		if err != nil {
			t.Fatalf("NewController failed: %v", err)
		}
		defer ctrl.Close(context.Background())
		if caps := ctrl.(*depthAdjustmentController).session.caps; caps.stimulus || caps.response || caps.presenter {
			t.Errorf("expected no capabilities, got %+v", caps)
		}
	})

	t.Run("seed fixes main-block order", func(t *testing.T) {
		deps, cfg := testDeps(t)
		seed := uint64(42)
		cfg.Seed = &seed
		ctrl, err := NewController(context.Background(), deps, name, cfg, logger)
		if err != nil {
			t.Fatalf("NewController failed: %v", err)
		}
		defer ctrl.Close(context.Background())

		got := ctrl.(*depthAdjustmentController).session.MainTrials()
		want := NewSeededTrialDesign(42).MainTrials()
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("trial %d = %+v, want %+v", i, got[i], want[i])
			}
		}
	})
}

func TestDoCommand(t *testing.T) {
	ctrl := newTestController(t)

	if _, err := ctrl.DoCommand(context.Background(), map[string]interface{}{}); err == nil {
		t.Error("DoCommand should return error for missing command")
	}
	if _, err := ctrl.DoCommand(context.Background(), map[string]interface{}{"command": "dance"}); err == nil {
		t.Error("DoCommand should return error for unknown command")
	}
}

func TestClose(t *testing.T) {
	logger := logging.NewTestLogger(t)
	name := resource.NewName(resource.APINamespaceRDK.WithServiceType("generic"), "test")
	deps, cfg := testDeps(t)

	ctrl, err := NewController(context.Background(), deps, name, cfg, logger)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}

	if err := ctrl.Close(context.Background()); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	state := ctrl.(*depthAdjustmentController).GetState()
	if state["phase"] != "aborted" {
		t.Errorf("expected aborted after close, got %v", state["phase"])
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("returns required and optional dependencies", func(t *testing.T) {
		cfg := &Config{
			ParticipantID: "P001",
			ConfirmSensor: "button",
			Stimulus:      "stim",
			Response:      "resp",
		}
		deps, optional, err := cfg.Validate("test")
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if len(deps) != 1 || deps[0] != "button" {
			t.Errorf("expected [button], got %v", deps)
		}
		if len(optional) != 2 {
			t.Errorf("expected 2 optional dependencies, got %v", optional)
		}
	})

	t.Run("errors when participant_id missing", func(t *testing.T) {
		cfg := &Config{ConfirmSensor: "button"}
		if _, _, err := cfg.Validate("test"); err == nil {
			t.Error("expected error for missing participant_id")
		}
	})

	t.Run("errors when participant_id is a path", func(t *testing.T) {
		cfg := &Config{ParticipantID: "../P001", ConfirmSensor: "button"}
		if _, _, err := cfg.Validate("test"); err == nil {
			t.Error("expected error for participant_id with separators")
		}
	})

	t.Run("errors when confirm_sensor missing", func(t *testing.T) {
		cfg := &Config{ParticipantID: "P001"}
		if _, _, err := cfg.Validate("test"); err == nil {
			t.Error("expected error for missing confirm_sensor")
		}
	})

	t.Run("errors on inverted amplitude range", func(t *testing.T) {
		lo, hi := 1.0, -1.0
		cfg := &Config{ParticipantID: "P001", ConfirmSensor: "button", AmplitudeMin: &lo, AmplitudeMax: &hi}
		if _, _, err := cfg.Validate("test"); err == nil {
			t.Error("expected error for amplitude_min above amplitude_max")
		}
	})
}

func TestSessionLifecycle(t *testing.T) {
	t.Run("start once, second start ignored", func(t *testing.T) {
		ctrl := newTestController(t)

		result, err := ctrl.DoCommand(context.Background(), map[string]interface{}{"command": "start"})
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}
		if result["started"] != true {
			t.Errorf("expected started=true, got %v", result["started"])
		}
		if result["session_id"] == "" {
			t.Error("expected session_id in start result")
		}

		result, err = ctrl.DoCommand(context.Background(), map[string]interface{}{"command": "start"})
		if err != nil {
			t.Fatalf("second start failed: %v", err)
		}
		if result["started"] != false {
			t.Errorf("expected second start to be ignored, got %v", result["started"])
		}
	})

	t.Run("status reports idle then running", func(t *testing.T) {
		ctrl := newTestController(t)

		status, _ := ctrl.DoCommand(context.Background(), map[string]interface{}{"command": "status"})
		if status["state"] != "idle" {
			t.Errorf("expected state=idle, got %v", status["state"])
		}

		ctrl.DoCommand(context.Background(), map[string]interface{}{"command": "start"})
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			status, _ = ctrl.DoCommand(context.Background(), map[string]interface{}{"command": "status"})
			if status["state"] == "running" {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		if status["state"] != "running" || status["phase"] != "welcome" {
			t.Errorf("expected running in welcome, got state=%v phase=%v", status["state"], status["phase"])
		}
	})

	t.Run("abort ends the session without saving", func(t *testing.T) {
		ctrl := newTestController(t)
		ctrl.DoCommand(context.Background(), map[string]interface{}{"command": "start"})

		result, err := ctrl.DoCommand(context.Background(), map[string]interface{}{"command": "abort"})
		if err != nil {
			t.Fatalf("abort failed: %v", err)
		}
		if result["phase"] != "aborted" {
			t.Errorf("expected phase=aborted, got %v", result["phase"])
		}
		status := ctrl.GetState()
		if status["state"] != "finished" {
			t.Errorf("expected state=finished, got %v", status["state"])
		}
		if _, ok := status["output_path"]; ok {
			t.Error("abort must not write a session file")
		}
	})
}
