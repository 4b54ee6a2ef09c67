package depthmatch

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// SimStimulus records what the controller asked of the reference curve.
type SimStimulus struct {
	mu      sync.Mutex
	Trials  []Trial
	Visible bool
	Angle   float64
}

func (s *SimStimulus) SetParameters(ctx context.Context, t Trial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Trials = append(s.Trials, t)
	s.Angle = 0
	return nil
}

func (s *SimStimulus) SetVisibility(ctx context.Context, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Visible = visible
	return nil
}

// SimResponse stands in for the adjustable curve. After each reset it
// produces a random adjustment around the true R2 depth, optionally outside
// the allowed range so clamping is exercised.
type SimResponse struct {
	mu         sync.Mutex
	rng        *rand.Rand
	visible    bool
	amplitude  float64
	confidence float64
	Resets     int
}

func NewSimResponse(seed uint64) *SimResponse {
	return &SimResponse{rng: rand.New(rand.NewPCG(seed, seed+1))}
}

func (r *SimResponse) ResetParameters(ctx context.Context, r1, r2, phaseOffset float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Resets++
	r.amplitude = (r2 - r1) + r.rng.NormFloat64()*0.5
	r.confidence = r.rng.Float64()*1.2 - 0.1
	return nil
}

func (r *SimResponse) AdjustmentValues(ctx context.Context) (float64, float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.amplitude, r.confidence, nil
}

func (r *SimResponse) SetVisibility(ctx context.Context, visible bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visible = visible
	return nil
}

// SimPresenter keeps every instruction shown.
type SimPresenter struct {
	mu    sync.Mutex
	Shown []string
}

func (p *SimPresenter) ShowInstruction(ctx context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Shown = append(p.Shown, text)
	return nil
}

// SimulateOptions configures a headless session run on a virtual clock.
type SimulateOptions struct {
	Tick      time.Duration // virtual time per step
	Period    int           // ticks per simulated press cycle
	HoldTicks int           // ticks the button is held per cycle
	Start     time.Time
	MaxTicks  int
}

// Simulate drives s to completion on a virtual clock using a scripted
// confirm button and returns the number of ticks taken.
func Simulate(ctx context.Context, s *Session, opts SimulateOptions) (int, error) {
	if opts.Tick <= 0 {
		opts.Tick = time.Second / 60
	}
	if opts.MaxTicks <= 0 {
		opts.MaxTicks = 10_000_000
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}
	reader := newMockConfirmReader(opts.Period, opts.HoldTicks)

	now := opts.Start
	ticks := 0
	for !s.Done() && ticks < opts.MaxTicks {
		if err := s.Step(ctx, now, sampleConfirm(ctx, reader)); err != nil {
			return ticks, err
		}
		now = now.Add(opts.Tick)
		ticks++
	}
	return ticks, nil
}
