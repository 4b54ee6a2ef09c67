package depthmatch

import (
	"math/rand/v2"
	"reflect"
	"testing"
)

func TestPracticeTrials(t *testing.T) {
	trials := PracticeTrials()
	want := []Trial{
		{R1: 1.0, R2: 1.5, RotationSpeed: 60, Direction: Clockwise},
		{R1: 1.0, R2: 1.5, RotationSpeed: 60, Direction: CounterClockwise},
	}
	if !reflect.DeepEqual(trials, want) {
		t.Errorf("PracticeTrials() = %v, want %v", trials, want)
	}

	// no hidden state between calls
	trials[0].R2 = 99
	if again := PracticeTrials(); !reflect.DeepEqual(again, want) {
		t.Errorf("second PracticeTrials() = %v, want %v", again, want)
	}
}

func TestCanonicalMainTrials(t *testing.T) {
	trials := CanonicalMainTrials()
	if len(trials) != 40 {
		t.Fatalf("expected 40 trials, got %d", len(trials))
	}

	counts := map[Trial]int{}
	for _, tr := range trials {
		counts[tr]++
	}
	if len(counts) != 8 {
		t.Errorf("expected 8 distinct conditions, got %d", len(counts))
	}
	for _, r2 := range []float64{1.5, 2.0} {
		for _, dir := range []Direction{Clockwise, CounterClockwise} {
			for _, speed := range []float64{90, 180} {
				c := Trial{R1: 1.0, R2: r2, RotationSpeed: speed, Direction: dir}
				if counts[c] != 5 {
					t.Errorf("condition %+v: expected 5 repeats, got %d", c, counts[c])
				}
			}
		}
	}
}

func TestMainTrials(t *testing.T) {
	t.Run("always the canonical multiset", func(t *testing.T) {
		canonical := CanonicalMainTrials()
		for seed := uint64(0); seed < 50; seed++ {
			trials := NewSeededTrialDesign(seed).MainTrials()
			if len(trials) != 40 {
				t.Fatalf("seed %d: expected 40 trials, got %d", seed, len(trials))
			}
			SortByCondition(trials)
			if !reflect.DeepEqual(trials, canonical) {
				t.Fatalf("seed %d: sorted trials differ from canonical set", seed)
			}
		}
	})

	t.Run("same seed gives same order", func(t *testing.T) {
		a := NewSeededTrialDesign(42).MainTrials()
		b := NewSeededTrialDesign(42).MainTrials()
		if !reflect.DeepEqual(a, b) {
			t.Error("expected identical order for identical seed")
		}
	})

	t.Run("injected source determines the permutation", func(t *testing.T) {
		a := NewTrialDesign(rand.NewPCG(7, 11)).MainTrials()
		b := NewTrialDesign(rand.NewPCG(7, 11)).MainTrials()
		if !reflect.DeepEqual(a, b) {
			t.Error("expected identical order for identical source")
		}
		c := NewTrialDesign(rand.NewPCG(8, 11)).MainTrials()
		if reflect.DeepEqual(a, c) {
			t.Error("expected a different order for a different source")
		}
	})

	t.Run("successive calls reshuffle", func(t *testing.T) {
		d := NewSeededTrialDesign(3)
		if reflect.DeepEqual(d.MainTrials(), d.MainTrials()) {
			t.Error("expected successive calls on one design to differ")
		}
	})

	t.Run("first position is close to uniform", func(t *testing.T) {
		const seeds = 8000
		counts := map[Trial]int{}
		for seed := uint64(0); seed < seeds; seed++ {
			counts[NewSeededTrialDesign(seed).MainTrials()[0]]++
		}
		if len(counts) != 8 {
			t.Fatalf("expected all 8 conditions in first position, got %d", len(counts))
		}
		// expected 1000 each; bounds are roughly 7 standard deviations wide
		for cond, n := range counts {
			if n < 800 || n > 1200 {
				t.Errorf("condition %+v first %d times, expected about 1000", cond, n)
			}
		}
	})
}

func TestDirectionString(t *testing.T) {
	if Clockwise.String() != "CW" {
		t.Errorf("expected CW, got %s", Clockwise)
	}
	if CounterClockwise.String() != "CCW" {
		t.Errorf("expected CCW, got %s", CounterClockwise)
	}
}
