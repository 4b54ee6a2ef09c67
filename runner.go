package depthmatch

import (
	"context"
	"time"
)

type trialStage int

const (
	stageSettle trialStage = iota
	stageAwaitResponse
	stagePostTrial
	stageDone
)

func (st trialStage) String() string {
	switch st {
	case stageSettle:
		return "settle"
	case stageAwaitResponse:
		return "response"
	case stagePostTrial:
		return "post_trial"
	default:
		return "done"
	}
}

// trialRunner executes one trial as a sequence of tick-driven stages. The
// same protocol serves practice and main trials; only persist differs.
type trialRunner struct {
	trial   Trial
	number  int
	persist bool

	stage   trialStage
	until   time.Time
	started time.Time
}

func newTrialRunner(trial Trial, number int, persist bool) *trialRunner {
	return &trialRunner{trial: trial, number: number, persist: persist}
}

// begin configures both collaborators and starts the settle delay.
func (r *trialRunner) begin(ctx context.Context, s *Session, now time.Time) {
	s.logger.Debugf("trial %d (persist=%t): R1=%g R2=%g speed=%g dir=%s",
		r.number, r.persist, r.trial.R1, r.trial.R2, r.trial.RotationSpeed, r.trial.Direction)

	s.showInstruction(ctx, instructionTrial)
	if s.caps.stimulus {
		s.warnOnErr(s.collab.Stimulus.SetParameters(ctx, r.trial), "setting stimulus parameters")
	}
	if s.caps.response {
		s.warnOnErr(s.collab.Response.ResetParameters(ctx, r.trial.R1, r.trial.R2, 0), "resetting response")
	}
	r.stage = stageSettle
	r.until = now.Add(s.timing.Settle)
}

// step advances the trial by one tick and reports whether it has finished.
func (r *trialRunner) step(ctx context.Context, s *Session, now time.Time, edge bool) bool {
	switch r.stage {
	case stageSettle:
		if now.Before(r.until) {
			return false
		}
		s.setVisibility(ctx, true)
		r.started = now
		r.stage = stageAwaitResponse
		return false

	case stageAwaitResponse:
		if !edge {
			return false
		}
		rt := now.Sub(r.started).Seconds()
		if rt < 0 {
			rt = 0
		}
		amplitude, confidence := s.adjustmentValues(ctx)
		s.logger.Infof("trial %d complete: amplitude=%g confidence=%g rt=%.3fs", r.number, amplitude, confidence, rt)

		if r.persist {
			s.recorder.Append(TrialRecord{
				TrialNumber:       r.number,
				Trial:             r.trial,
				AdjustedAmplitude: amplitude,
				Confidence:        confidence,
				ReactionTime:      rt,
				Timestamp:         now,
			})
		}

		s.setVisibility(ctx, false)
		r.stage = stagePostTrial
		r.until = now.Add(s.timing.PostTrial)
		return false

	case stagePostTrial:
		if now.Before(r.until) {
			return false
		}
		r.stage = stageDone
		return true
	}
	return true
}
