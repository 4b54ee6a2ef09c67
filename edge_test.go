package depthmatch

import "testing"

func TestEdgeDetector(t *testing.T) {
	t.Run("one edge per press regardless of hold length", func(t *testing.T) {
		var d EdgeDetector
		edges := 0
		// press held 1, 5, 30 ticks with releases in between
		for _, hold := range []int{1, 5, 30} {
			for i := 0; i < hold; i++ {
				if d.Sample(true, true) {
					edges++
				}
			}
			for i := 0; i < 3; i++ {
				if d.Sample(false, true) {
					t.Error("release must not produce an edge")
				}
			}
		}
		if edges != 3 {
			t.Errorf("expected 3 edges, got %d", edges)
		}
	})

	t.Run("edge only on the rising tick", func(t *testing.T) {
		var d EdgeDetector
		got := []bool{
			d.Sample(false, true),
			d.Sample(true, true),
			d.Sample(true, true),
			d.Sample(false, true),
			d.Sample(true, true),
		}
		want := []bool{false, true, false, false, true}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("unavailable source never produces edges", func(t *testing.T) {
		var d EdgeDetector
		for i := 0; i < 10; i++ {
			if d.Sample(i%2 == 0, false) {
				t.Fatalf("unexpected edge at sample %d while unavailable", i)
			}
		}
	})

	t.Run("button held across reconnect does not fire", func(t *testing.T) {
		var d EdgeDetector
		d.Sample(true, true)
		d.Sample(false, false)
		if d.Sample(true, true) {
			t.Error("recovery sample must not fire")
		}
		if d.Sample(true, true) {
			t.Error("still held, no edge expected")
		}
		d.Sample(false, true)
		if !d.Sample(true, true) {
			t.Error("expected edge on fresh press after recovery")
		}
	})

	t.Run("press after recovery fires", func(t *testing.T) {
		var d EdgeDetector
		d.Sample(false, false)
		if d.Sample(false, true) {
			t.Error("recovery sample must not fire")
		}
		if !d.Sample(true, true) {
			t.Error("expected edge on press after recovery")
		}
	})

	t.Run("reset clears held state", func(t *testing.T) {
		var d EdgeDetector
		d.Sample(true, true)
		d.Reset()
		if !d.Sample(true, true) {
			t.Error("expected edge after reset")
		}
	})
}
