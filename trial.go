package depthmatch

import (
	"math/rand/v2"
	"sort"
)

// Direction is the rotation direction of the reference curve.
type Direction int

const (
	Clockwise        Direction = 1
	CounterClockwise Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Clockwise:
		return "CW"
	case CounterClockwise:
		return "CCW"
	default:
		return "unknown"
	}
}

// Trial is one stimulus configuration. Trials are created by the design
// generator and never mutated.
type Trial struct {
	R1            float64
	R2            float64
	RotationSpeed float64 // deg/s
	Direction     Direction
}

const (
	practiceR1    = 1.0
	practiceR2    = 1.5
	practiceSpeed = 60.0

	mainR1      = 1.0
	mainRepeats = 5
)

var (
	mainShapes     = []float64{1.5, 2.0}
	mainDirections = []Direction{Clockwise, CounterClockwise}
	mainSpeeds     = []float64{90, 180}
)

// MainTrialCount is the size of the main block: shapes x directions x speeds x repeats.
var MainTrialCount = len(mainShapes) * len(mainDirections) * len(mainSpeeds) * mainRepeats

// PracticeTrials returns the fixed familiarization block.
func PracticeTrials() []Trial {
	return []Trial{
		{R1: practiceR1, R2: practiceR2, RotationSpeed: practiceSpeed, Direction: Clockwise},
		{R1: practiceR1, R2: practiceR2, RotationSpeed: practiceSpeed, Direction: CounterClockwise},
	}
}

// CanonicalMainTrials returns the unshuffled factorial design, each
// condition repeated mainRepeats times.
func CanonicalMainTrials() []Trial {
	trials := make([]Trial, 0, MainTrialCount)
	for _, r2 := range mainShapes {
		for _, dir := range mainDirections {
			for _, speed := range mainSpeeds {
				for r := 0; r < mainRepeats; r++ {
					trials = append(trials, Trial{R1: mainR1, R2: r2, RotationSpeed: speed, Direction: dir})
				}
			}
		}
	}
	return trials
}

// TrialDesign shuffles the main block with an injected random source so a
// fixed seed always yields the same order.
type TrialDesign struct {
	rng *rand.Rand
}

func NewTrialDesign(src rand.Source) *TrialDesign {
	return &TrialDesign{rng: rand.New(src)}
}

// NewSeededTrialDesign is a convenience for a PCG source built from seed.
func NewSeededTrialDesign(seed uint64) *TrialDesign {
	return NewTrialDesign(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// MainTrials returns the canonical factorial set in a uniformly random order.
func (d *TrialDesign) MainTrials() []Trial {
	trials := CanonicalMainTrials()
	// Fisher-Yates
	for i := len(trials) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		trials[i], trials[j] = trials[j], trials[i]
	}
	return trials
}

// LessByCondition orders trials by (R2, Direction, RotationSpeed, R1).
func LessByCondition(a, b Trial) bool {
	if a.R2 != b.R2 {
		return a.R2 < b.R2
	}
	if a.Direction != b.Direction {
		return a.Direction > b.Direction
	}
	if a.RotationSpeed != b.RotationSpeed {
		return a.RotationSpeed < b.RotationSpeed
	}
	return a.R1 < b.R1
}

// SortByCondition sorts trials in place so a shuffled block compares equal to
// CanonicalMainTrials.
func SortByCondition(trials []Trial) {
	sort.SliceStable(trials, func(i, j int) bool { return LessByCondition(trials[i], trials[j]) })
}
