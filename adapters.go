package depthmatch

import (
	"context"
	"fmt"

	"go.viam.com/rdk/resource"
)

// Stimulus is the rotating reference curve. SetParameters regenerates its
// geometry and resets its rotation to 0.
type Stimulus interface {
	SetParameters(ctx context.Context, t Trial) error
	SetVisibility(ctx context.Context, visible bool) error
}

// Response is the participant-adjusted curve. Amplitude and confidence are
// driven by its own input handling between ResetParameters and the confirm
// press.
type Response interface {
	ResetParameters(ctx context.Context, r1, r2, phaseOffset float64) error
	AdjustmentValues(ctx context.Context) (amplitude, confidence float64, err error)
	SetVisibility(ctx context.Context, visible bool) error
}

// Presenter shows instruction text to the participant.
type Presenter interface {
	ShowInstruction(ctx context.Context, text string) error
}

// Collaborators groups the optional session collaborators. Any field may be nil.
type Collaborators struct {
	Stimulus  Stimulus
	Response  Response
	Presenter Presenter
}

// commander is the subset of resource.Resource the adapters need.
type commander interface {
	DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error)
}

type stimulusComponent struct {
	res commander
}

// NewStimulusComponent drives a generic component through set_parameters and
// set_visibility commands.
func NewStimulusComponent(res resource.Resource) Stimulus {
	return &stimulusComponent{res: res}
}

func (s *stimulusComponent) SetParameters(ctx context.Context, t Trial) error {
	_, err := s.res.DoCommand(ctx, map[string]interface{}{
		"command":   "set_parameters",
		"r1":        t.R1,
		"r2":        t.R2,
		"speed":     t.RotationSpeed,
		"direction": int(t.Direction),
	})
	if err != nil {
		return fmt.Errorf("stimulus set_parameters: %w", err)
	}
	return nil
}

func (s *stimulusComponent) SetVisibility(ctx context.Context, visible bool) error {
	return setVisibility(ctx, s.res, "stimulus", visible)
}

type responseComponent struct {
	res commander
}

// NewResponseComponent drives a generic component through reset_parameters,
// get_adjustment_values and set_visibility commands.
func NewResponseComponent(res resource.Resource) Response {
	return &responseComponent{res: res}
}

func (r *responseComponent) ResetParameters(ctx context.Context, r1, r2, phaseOffset float64) error {
	_, err := r.res.DoCommand(ctx, map[string]interface{}{
		"command":      "reset_parameters",
		"r1":           r1,
		"r2":           r2,
		"phase_offset": phaseOffset,
	})
	if err != nil {
		return fmt.Errorf("response reset_parameters: %w", err)
	}
	return nil
}

func (r *responseComponent) AdjustmentValues(ctx context.Context) (float64, float64, error) {
	resp, err := r.res.DoCommand(ctx, map[string]interface{}{"command": "get_adjustment_values"})
	if err != nil {
		return 0, 0, fmt.Errorf("response get_adjustment_values: %w", err)
	}
	amplitude, err := numericField(resp, "amplitude")
	if err != nil {
		return 0, 0, err
	}
	confidence, err := numericField(resp, "confidence")
	if err != nil {
		return 0, 0, err
	}
	return amplitude, confidence, nil
}

func (r *responseComponent) SetVisibility(ctx context.Context, visible bool) error {
	return setVisibility(ctx, r.res, "response", visible)
}

type instructionComponent struct {
	res commander
}

// NewInstructionComponent sends show_instruction commands to a generic component.
func NewInstructionComponent(res resource.Resource) Presenter {
	return &instructionComponent{res: res}
}

func (p *instructionComponent) ShowInstruction(ctx context.Context, text string) error {
	_, err := p.res.DoCommand(ctx, map[string]interface{}{
		"command": "show_instruction",
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("show_instruction: %w", err)
	}
	return nil
}

func setVisibility(ctx context.Context, res commander, what string, visible bool) error {
	_, err := res.DoCommand(ctx, map[string]interface{}{
		"command": "set_visibility",
		"visible": visible,
	})
	if err != nil {
		return fmt.Errorf("%s set_visibility: %w", what, err)
	}
	return nil
}

func numericField(m map[string]interface{}, key string) (float64, error) {
	val, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("response missing %q key", key)
	}
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("response %q is not numeric: %T", key, val)
	}
}
