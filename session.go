package depthmatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.viam.com/rdk/logging"
)

// Phase is the top-level experiment state. Exactly one is active per session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWelcome
	PhasePracticeIntro
	PhasePractice
	PhaseMainIntro
	PhaseMain
	PhaseEnd
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWelcome:
		return "welcome"
	case PhasePracticeIntro:
		return "practice_intro"
	case PhasePractice:
		return "practice"
	case PhaseMainIntro:
		return "main_intro"
	case PhaseMain:
		return "main"
	case PhaseEnd:
		return "end"
	case PhaseAborted:
		return "aborted"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Timing holds the fixed waits of the protocol.
type Timing struct {
	Settle     time.Duration // stimulus configured -> visible
	PostTrial  time.Duration // hidden -> next trial
	Welcome    time.Duration // after the welcome confirm
	Intro      time.Duration // after a practice/main intro confirm
	Break      time.Duration // after a break confirm
	EndHold    time.Duration // end screen before teardown
	BreakEvery int           // main trials between breaks
}

func DefaultTiming() Timing {
	return Timing{
		Settle:     500 * time.Millisecond,
		PostTrial:  time.Second,
		Welcome:    300 * time.Millisecond,
		Intro:      500 * time.Millisecond,
		Break:      500 * time.Millisecond,
		EndHold:    3 * time.Second,
		BreakEvery: 10,
	}
}

// SessionConfig configures one session. Zero values select defaults.
type SessionConfig struct {
	ParticipantID string
	AutoStart     bool
	AmplitudeMin  float64
	AmplitudeMax  float64
	Timing        *Timing

	// Design shuffles the main block. Nil uses a time-seeded design.
	Design *TrialDesign
	// PracticeTrials and MainTrials replace the generated lists when non-nil.
	PracticeTrials []Trial
	MainTrials     []Trial
}

const (
	defaultAmplitudeMin = -2.0
	defaultAmplitudeMax = 2.0
)

// ConfirmSample is one tick's reading of the confirm input.
type ConfirmSample struct {
	Held      bool
	Available bool
}

type gate int

const (
	gateNone gate = iota
	gateConfirm
	gateDelay
)

// capabilities records which optional collaborators were supplied, resolved
// once when the session is created.
type capabilities struct {
	stimulus  bool
	response  bool
	presenter bool
}

// Session sequences Welcome -> PracticeIntro -> Practice -> MainIntro -> Main
// -> End. It is advanced by Step once per tick from a single goroutine.
type Session struct {
	id       string
	cfg      SessionConfig
	timing   Timing
	logger   logging.Logger
	collab   Collaborators
	caps     capabilities
	recorder *Recorder

	practice []Trial
	main     []Trial

	edges EdgeDetector

	phase          Phase
	gate           gate
	gateUntil      time.Time
	confirmDelay   time.Duration
	afterGate      Phase
	inBreak        bool
	startRequested bool
	startedAt      time.Time

	trialIndex int
	runner     *trialRunner

	done       bool
	err        error
	outputPath string
}

// NewSession generates both trial lists, hides the collaborators and shows
// the idle instruction.
func NewSession(ctx context.Context, cfg SessionConfig, collab Collaborators, recorder *Recorder, logger logging.Logger) *Session {
	if cfg.AmplitudeMin == 0 && cfg.AmplitudeMax == 0 {
		cfg.AmplitudeMin, cfg.AmplitudeMax = defaultAmplitudeMin, defaultAmplitudeMax
	}
	timing := DefaultTiming()
	if cfg.Timing != nil {
		timing = *cfg.Timing
	}
	if timing.BreakEvery <= 0 {
		timing.BreakEvery = DefaultTiming().BreakEvery
	}

	practice := cfg.PracticeTrials
	if practice == nil {
		practice = PracticeTrials()
	}
	main := cfg.MainTrials
	if main == nil {
		design := cfg.Design
		if design == nil {
			design = NewSeededTrialDesign(uint64(time.Now().UnixNano()))
		}
		main = design.MainTrials()
	}

	s := &Session{
		id:       uuid.NewString(),
		cfg:      cfg,
		timing:   timing,
		logger:   logger,
		collab:   collab,
		recorder: recorder,
		practice: append([]Trial(nil), practice...),
		main:     append([]Trial(nil), main...),
		caps: capabilities{
			stimulus:  collab.Stimulus != nil,
			response:  collab.Response != nil,
			presenter: collab.Presenter != nil,
		},
		startRequested: cfg.AutoStart,
	}

	if !s.caps.stimulus {
		logger.Warnf("session %s: no stimulus collaborator, stimulus calls are skipped", s.id)
	}
	if !s.caps.response {
		logger.Warnf("session %s: no response collaborator, adjustments are recorded as 0", s.id)
	}
	if !s.caps.presenter {
		logger.Warnf("session %s: no instruction collaborator, instructions are skipped", s.id)
	}
	logger.Infof("session %s: generated %d practice and %d main trials", s.id, len(s.practice), len(s.main))

	s.setVisibility(ctx, false)
	s.showInstruction(ctx, instructionIdle)
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Phase() Phase {
	return s.phase
}

// Done reports whether the session has reached teardown (after the end hold
// or after an abort).
func (s *Session) Done() bool {
	return s.done
}

// Err returns the flush error, if any.
func (s *Session) Err() error {
	return s.err
}

// OutputPath is the written session file, empty until a successful flush.
func (s *Session) OutputPath() string {
	return s.outputPath
}

func (s *Session) MainTrials() []Trial {
	return append([]Trial(nil), s.main...)
}

func (s *Session) PracticeTrials() []Trial {
	return append([]Trial(nil), s.practice...)
}

// Start arms the Idle -> Welcome transition. It returns false, and changes
// nothing, if a session was already started.
func (s *Session) Start() bool {
	if s.phase != PhaseIdle || s.startRequested {
		return false
	}
	s.startRequested = true
	return true
}

// Abort hides the collaborators and moves to Aborted without flushing.
func (s *Session) Abort(ctx context.Context) {
	if s.done {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if s.phase == PhaseEnd {
		// data is already saved; cut the end hold short
		s.setVisibility(ctx, false)
		s.done = true
		return
	}
	s.logger.Warnf("session %s: aborted in phase %s with %d records unsaved", s.id, s.phase, s.recorder.Len())
	s.runner = nil
	s.gate = gateNone
	s.setVisibility(ctx, false)
	s.enter(ctx, PhaseAborted)
	s.done = true
}

// Step advances the session by one tick. It returns the flush error on the
// tick that reaches End; every other tick returns nil.
func (s *Session) Step(ctx context.Context, now time.Time, in ConfirmSample) error {
	if s.done {
		return nil
	}
	if ctx.Err() != nil {
		s.Abort(ctx)
		return nil
	}
	edge := s.edges.Sample(in.Held, in.Available)

	switch s.gate {
	case gateConfirm:
		if !edge {
			return nil
		}
		s.gate = gateDelay
		s.gateUntil = now.Add(s.confirmDelay)
		return nil
	case gateDelay:
		if now.Before(s.gateUntil) {
			return nil
		}
		s.gate = gateNone
		if s.inBreak {
			s.inBreak = false
			s.beginMainTrial(ctx, now)
			return nil
		}
		return s.transition(ctx, now, s.afterGate)
	}

	switch s.phase {
	case PhaseIdle:
		if s.startRequested || edge {
			s.startRequested = true
			s.startedAt = now
			s.logger.Infof("session %s: starting for participant %q", s.id, s.cfg.ParticipantID)
			return s.transition(ctx, now, PhaseWelcome)
		}

	case PhasePractice:
		if s.runner.step(ctx, s, now, edge) {
			s.trialIndex++
			if s.trialIndex < len(s.practice) {
				s.beginPracticeTrial(ctx, now)
				return nil
			}
			return s.transition(ctx, now, PhaseMainIntro)
		}

	case PhaseMain:
		if s.runner.step(ctx, s, now, edge) {
			s.trialIndex++
			completed := s.trialIndex
			if completed >= len(s.main) {
				return s.transition(ctx, now, PhaseEnd)
			}
			if completed%s.timing.BreakEvery == 0 {
				s.runner = nil
				s.inBreak = true
				s.logger.Infof("session %s: break after %d of %d trials", s.id, completed, len(s.main))
				s.showInstruction(ctx, breakInstruction(completed, len(s.main)))
				s.awaitConfirm(s.timing.Break, PhaseMain)
				return nil
			}
			s.beginMainTrial(ctx, now)
		}

	case PhaseEnd:
		if !now.Before(s.gateUntil) {
			s.setVisibility(ctx, false)
			s.done = true
			s.logger.Infof("session %s: torn down", s.id)
		}
	}
	return nil
}

// transition enters next and runs its entry action.
func (s *Session) transition(ctx context.Context, now time.Time, next Phase) error {
	s.enter(ctx, next)

	switch next {
	case PhaseWelcome:
		s.awaitConfirm(s.timing.Welcome, PhasePracticeIntro)
	case PhasePracticeIntro:
		s.awaitConfirm(s.timing.Intro, PhasePractice)
	case PhaseMainIntro:
		s.awaitConfirm(s.timing.Intro, PhaseMain)

	case PhasePractice:
		s.trialIndex = 0
		if len(s.practice) == 0 {
			return s.transition(ctx, now, PhaseMainIntro)
		}
		s.beginPracticeTrial(ctx, now)

	case PhaseMain:
		s.trialIndex = 0
		if len(s.main) == 0 {
			return s.transition(ctx, now, PhaseEnd)
		}
		s.beginMainTrial(ctx, now)

	case PhaseEnd:
		s.runner = nil
		s.gateUntil = now.Add(s.timing.EndHold)
		return s.flush(ctx)
	}
	return nil
}

// enter sets the phase and publishes its instruction.
func (s *Session) enter(ctx context.Context, next Phase) {
	s.logger.Debugf("session %s: %s -> %s", s.id, s.phase, next)
	s.phase = next
	if next == PhaseEnd {
		// The end instruction depends on the flush outcome and is shown by flush.
		return
	}
	s.showInstruction(ctx, phaseInstruction(next, len(s.practice), len(s.main)))
}

func (s *Session) flush(ctx context.Context) error {
	path, err := s.recorder.Flush(s.cfg.ParticipantID, s.startedAt)
	if err != nil {
		s.err = fmt.Errorf("saving session data: %w", err)
		s.logger.Errorf("session %s: %v", s.id, s.err)
		s.showInstruction(ctx, instructionEndFailed)
		return s.err
	}
	s.outputPath = path
	s.logger.Infof("session %s: saved %d records to %s", s.id, s.recorder.Len(), path)
	s.showInstruction(ctx, instructionEnd)
	return nil
}

// awaitConfirm blocks the session until a confirm edge, then for delay,
// then moves to next.
func (s *Session) awaitConfirm(delay time.Duration, next Phase) {
	s.gate = gateConfirm
	s.confirmDelay = delay
	s.afterGate = next
}

func (s *Session) beginPracticeTrial(ctx context.Context, now time.Time) {
	s.runner = newTrialRunner(s.practice[s.trialIndex], s.trialIndex, false)
	s.runner.begin(ctx, s, now)
}

func (s *Session) beginMainTrial(ctx context.Context, now time.Time) {
	s.runner = newTrialRunner(s.main[s.trialIndex], s.trialIndex, true)
	s.runner.begin(ctx, s, now)
}

func (s *Session) setVisibility(ctx context.Context, visible bool) {
	if s.caps.stimulus {
		s.warnOnErr(s.collab.Stimulus.SetVisibility(ctx, visible), "setting stimulus visibility")
	}
	if s.caps.response {
		s.warnOnErr(s.collab.Response.SetVisibility(ctx, visible), "setting response visibility")
	}
}

// adjustmentValues reads and clamps the participant's adjustment. A missing
// or failing response collaborator yields zeros.
func (s *Session) adjustmentValues(ctx context.Context) (float64, float64) {
	if !s.caps.response {
		return 0, 0
	}
	amplitude, confidence, err := s.collab.Response.AdjustmentValues(ctx)
	if err != nil {
		s.logger.Warnf("reading adjustment values: %v", err)
		return 0, 0
	}
	return clamp(amplitude, s.cfg.AmplitudeMin, s.cfg.AmplitudeMax), clamp(confidence, 0, 1)
}

func (s *Session) showInstruction(ctx context.Context, text string) {
	if !s.caps.presenter {
		return
	}
	s.warnOnErr(s.collab.Presenter.ShowInstruction(ctx, text), "showing instruction")
}

func (s *Session) warnOnErr(err error, what string) {
	if err != nil {
		s.logger.Warnf("%s: %v", what, err)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Snapshot describes the session for status queries and data capture.
func (s *Session) Snapshot() map[string]interface{} {
	waiting := "none"
	switch {
	case s.done:
		waiting = "none"
	case s.gate == gateConfirm:
		waiting = "confirm"
	case s.gate == gateDelay:
		waiting = "delay"
	case s.phase == PhaseIdle:
		waiting = "start"
	case s.runner != nil:
		waiting = s.runner.stage.String()
	case s.phase == PhaseEnd:
		waiting = "end_hold"
	}

	total := 0
	switch s.phase {
	case PhasePractice:
		total = len(s.practice)
	case PhaseMain:
		total = len(s.main)
	}

	state := map[string]interface{}{
		"session_id":     s.id,
		"participant_id": s.cfg.ParticipantID,
		"phase":          s.phase.String(),
		"waiting_for":    waiting,
		"in_break":       s.inBreak,
		"trial_index":    s.trialIndex,
		"trials_total":   total,
		"records":        s.recorder.Len(),
		"done":           s.done,
		// only main-block trials produce data worth capturing
		"should_sync": s.phase == PhaseMain && !s.done,
	}
	if s.outputPath != "" {
		state["output_path"] = s.outputPath
	}
	if s.err != nil {
		state["flush_error"] = s.err.Error()
	}
	return state
}
