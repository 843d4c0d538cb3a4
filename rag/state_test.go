package rag

import "testing"

func TestMergeDelta_DocumentsNilVsEmptyDistinction(t *testing.T) {
	prev := RunState{Documents: []Document{{Text: "a"}}}

	unchanged := mergeDelta(prev, RunState{})
	if len(unchanged.Documents) != 1 {
		t.Errorf("nil delta.Documents should leave prior documents untouched, got %v", unchanged.Documents)
	}

	cleared := mergeDelta(prev, RunState{Documents: []Document{}})
	if cleared.Documents == nil || len(cleared.Documents) != 0 {
		t.Errorf("non-nil empty delta.Documents should replace with empty, got %v", cleared.Documents)
	}
}

func TestMergeDelta_LoopStepAndGenerationCountAlwaysAdd(t *testing.T) {
	prev := RunState{LoopStep: 2, GenerationCount: 2}
	next := mergeDelta(prev, RunState{LoopStep: 1, GenerationCount: 1})
	if next.LoopStep != 3 || next.GenerationCount != 3 {
		t.Errorf("LoopStep=%d GenerationCount=%d, want 3/3", next.LoopStep, next.GenerationCount)
	}

	// A delta of zero from a non-generate node must not reset the counters.
	same := mergeDelta(next, RunState{})
	if same.LoopStep != 3 || same.GenerationCount != 3 {
		t.Errorf("zero delta should not change counters, got LoopStep=%d GenerationCount=%d", same.LoopStep, same.GenerationCount)
	}
}

func TestMergeDelta_WebSearchNeededIsOneWayLatch(t *testing.T) {
	prev := RunState{WebSearchNeeded: true}
	next := mergeDelta(prev, RunState{WebSearchNeeded: false})
	if !next.WebSearchNeeded {
		t.Error("a false delta must not clear WebSearchNeeded; only an explicit true ever sets it")
	}
}
