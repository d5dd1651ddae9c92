package arbiter

import "testing"

func passesWithUncertainty(values ...int) []PassOutput {
	stages := []Stage{StageRecall, StageAnalysis, StageDraft, StageRefinement, StageValidation}
	passes := make([]PassOutput, len(values))
	for i, u := range values {
		stage := StageValidation
		if i < len(stages) {
			stage = stages[i]
		}
		passes[i] = PassOutput{
			Ordinal:     i + 1,
			Stage:       stage,
			Uncertainty: u,
			Confidence:  70,
		}
	}
	return passes
}

func TestPropagateEmpty(t *testing.T) {
	p := NewPropagator()
	if got := p.Propagate(nil); got != 100 {
		t.Errorf("empty run should propagate to exactly 100, got %d", got)
	}
}

func TestPropagateSinglePass(t *testing.T) {
	p := NewPropagator()
	passes := []PassOutput{
		{Ordinal: 1, Stage: StageRecall, Uncertainty: 30, Confidence: 90},
	}

	// Weighted mean is 30; the confidence boost is 90/100 * 0.2 * 100 = 18.
	if got := p.Propagate(passes); got != 12 {
		t.Errorf("expected 12, got %d", got)
	}
}

func TestPropagateFullRun(t *testing.T) {
	p := NewPropagator()
	passes := passesWithUncertainty(40, 35, 35, 25, 20)
	passes[4].Confidence = 88

	// Weights 0.2..1.0 give a weighted mean of 83/3; the last stage's
	// confidence boosts by 17.6. Rounds to 10.
	if got := p.Propagate(passes); got != 10 {
		t.Errorf("expected 10, got %d", got)
	}
}

func TestPropagateClampsToZero(t *testing.T) {
	p := NewPropagator()
	passes := []PassOutput{
		{Ordinal: 1, Stage: StageRecall, Uncertainty: 5, Confidence: 100},
	}
	if got := p.Propagate(passes); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestTrace(t *testing.T) {
	p := NewPropagator()
	passes := passesWithUncertainty(40, 30, 50)

	entries := p.Trace(passes)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	// First prior is the baseline of 70; a rise yields zero reduction.
	wantReductions := []int{30, 10, 0}
	for i, want := range wantReductions {
		if entries[i].Reduction != want {
			t.Errorf("entry %d: expected reduction %d, got %d", i, want, entries[i].Reduction)
		}
		if entries[i].Ordinal != i+1 {
			t.Errorf("entry %d: expected ordinal %d, got %d", i, i+1, entries[i].Ordinal)
		}
	}
}

func TestAnalyzePattern(t *testing.T) {
	p := NewPropagator()

	tests := []struct {
		name           string
		uncertainties  []int
		wantTrend      Trend
		wantTotal      int
		wantIncreasing []int
	}{
		{
			name:          "single pass defaults to stable",
			uncertainties: []int{40},
			wantTrend:     TrendStable,
		},
		{
			name:          "large total reduction is improving",
			uncertainties: []int{70, 40, 20, 10},
			wantTrend:     TrendImproving,
			wantTotal:     60,
		},
		{
			name:          "steady descent is stable",
			uncertainties: []int{70, 60, 50, 40, 30},
			wantTrend:     TrendStable,
			wantTotal:     40,
		},
		{
			name:           "mostly rising is worsening",
			uncertainties:  []int{50, 55, 60, 52},
			wantTrend:      TrendWorsening,
			wantTotal:      8,
			wantIncreasing: []int{2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern := p.AnalyzePattern(passesWithUncertainty(tt.uncertainties...))
			if pattern.Trend != tt.wantTrend {
				t.Errorf("expected trend %s, got %s", tt.wantTrend, pattern.Trend)
			}
			if pattern.TotalReduction != tt.wantTotal {
				t.Errorf("expected total reduction %d, got %d", tt.wantTotal, pattern.TotalReduction)
			}
			if len(pattern.IncreasingStages) != len(tt.wantIncreasing) {
				t.Fatalf("expected increasing stages %v, got %v", tt.wantIncreasing, pattern.IncreasingStages)
			}
			for i, want := range tt.wantIncreasing {
				if pattern.IncreasingStages[i] != want {
					t.Errorf("expected increasing stages %v, got %v", tt.wantIncreasing, pattern.IncreasingStages)
				}
			}
		})
	}
}

func TestEstimateFinal(t *testing.T) {
	p := NewPropagator()

	t.Run("empty", func(t *testing.T) {
		if got := p.EstimateFinal(nil, 5); got != 100 {
			t.Errorf("expected 100, got %d", got)
		}
	})

	t.Run("all stages seen returns last", func(t *testing.T) {
		passes := passesWithUncertainty(40, 30)
		if got := p.EstimateFinal(passes, 2); got != 30 {
			t.Errorf("expected 30, got %d", got)
		}
	})

	t.Run("stable projection", func(t *testing.T) {
		// Avg reduction 10 per transition, three stages remaining:
		// 50 - 10*1.0*3 = 20.
		passes := passesWithUncertainty(60, 50)
		if got := p.EstimateFinal(passes, 5); got != 20 {
			t.Errorf("expected 20, got %d", got)
		}
	})

	t.Run("projection clamps to zero", func(t *testing.T) {
		passes := passesWithUncertainty(70, 50)
		if got := p.EstimateFinal(passes, 5); got != 0 {
			t.Errorf("expected 0, got %d", got)
		}
	})
}

func TestHighUncertaintyAreas(t *testing.T) {
	p := NewPropagator()
	passes := []PassOutput{
		{Ordinal: 1, Stage: StageRecall, Uncertainty: 80, Confidence: 60},
		{Ordinal: 2, Stage: StageAnalysis, Uncertainty: 60, Confidence: 40},
		{Ordinal: 3, Stage: StageDraft, Uncertainty: 50, Confidence: 80},
		{Ordinal: 4, Stage: StageRefinement, Uncertainty: 40, Confidence: 85},
	}

	areas := p.HighUncertaintyAreas(passes)
	if len(areas) != 3 {
		t.Fatalf("expected 3 areas, got %d", len(areas))
	}

	if areas[0].Reason != "critical information gaps remain" {
		t.Errorf("unexpected reason for critical area: %q", areas[0].Reason)
	}
	if areas[1].Reason != "low confidence in stage output" {
		t.Errorf("unexpected reason for low-confidence area: %q", areas[1].Reason)
	}
	if areas[2].Reason != "uncertainty remains elevated after draft" {
		t.Errorf("unexpected reason for elevated area: %q", areas[2].Reason)
	}
}
