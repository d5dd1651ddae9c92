package arbiter

// UncertaintyBaseline is the assumed uncertainty before any reasoning has
// occurred. The first pass's reduction is measured against it.
const UncertaintyBaseline = 70

// Trend classifies how uncertainty evolved across a run.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendWorsening Trend = "worsening"
)

// Projection factors applied to the average per-stage reduction when
// estimating a run's final uncertainty before all stages complete.
const (
	projectionImproving = 0.8
	projectionWorsening = 0.5
	projectionStable    = 1.0
)

// Boost fraction applied from the last stage's confidence during
// propagation.
const confidenceBoostFactor = 0.2

// TraceEntry is one row of the derived uncertainty trace: how much a pass
// reduced the uncertainty left by its predecessor (the baseline, for the
// first pass).
type TraceEntry struct {
	Ordinal     int   `json:"ordinal"`
	Stage       Stage `json:"stage"`
	Uncertainty int   `json:"uncertainty"`
	Confidence  int   `json:"confidence"`
	Reduction   int   `json:"reduction"`
}

// UncertaintyPattern summarizes how uncertainty moved between consecutive
// passes.
type UncertaintyPattern struct {
	TotalReduction      int     `json:"total_reduction"`
	AvgReductionPerPass float64 `json:"avg_reduction_per_pass"`
	IncreasingStages    []int   `json:"increasing_stages,omitempty"`
	Trend               Trend   `json:"trend"`
}

// UncertaintyArea flags a pass whose uncertainty stayed high, with a
// short diagnostic reason.
type UncertaintyArea struct {
	Stage       Stage  `json:"stage"`
	Uncertainty int    `json:"uncertainty"`
	Reason      string `json:"reason"`
}

// Propagator folds the per-stage uncertainty values of a run into one
// final score, classifies the cross-stage trend, and can project a final
// value before all stages complete. It is stateless; the zero value is
// ready to use.
type Propagator struct{}

// NewPropagator creates a propagator.
func NewPropagator() Propagator {
	return Propagator{}
}

// Propagate computes the run's single final uncertainty from its pass
// sequence: a recency-weighted mean of the raw per-stage uncertainties
// (weights (i+1)/N, so later stages weigh more) minus a confidence boost
// from the last stage only. Empty input returns 100 - no reasoning
// occurred, so uncertainty is maximal.
func (Propagator) Propagate(passes []PassOutput) int {
	if len(passes) == 0 {
		return 100
	}

	var weighted, totalWeight float64
	n := float64(len(passes))
	for i, p := range passes {
		w := float64(i+1) / n
		weighted += w * float64(clamp100(p.Uncertainty))
		totalWeight += w
	}
	mean := weighted / totalWeight

	last := passes[len(passes)-1]
	boost := float64(clamp100(last.Confidence)) / 100 * confidenceBoostFactor

	return roundClamp100(mean - boost*100)
}

// Trace derives the per-pass uncertainty trace. The first pass's prior is
// the constant baseline of 70; each entry's reduction is
// max(0, prior − uncertainty).
func (Propagator) Trace(passes []PassOutput) []TraceEntry {
	entries := make([]TraceEntry, len(passes))
	prior := UncertaintyBaseline
	for i, p := range passes {
		reduction := prior - clamp100(p.Uncertainty)
		if reduction < 0 {
			reduction = 0
		}
		entries[i] = TraceEntry{
			Ordinal:     p.Ordinal,
			Stage:       p.Stage,
			Uncertainty: clamp100(p.Uncertainty),
			Confidence:  clamp100(p.Confidence),
			Reduction:   reduction,
		}
		prior = clamp100(p.Uncertainty)
	}
	return entries
}

// AnalyzePattern classifies the uncertainty trend across consecutive
// passes. Reductions are clamped at zero per transition; a transition
// where uncertainty rose is recorded by the ordinal of the rising pass.
//
// The trend is improving when the total reduction exceeds 50, worsening
// when the total reduction is under 10 and more than half of the
// transitions rose, and stable otherwise. Fewer than two passes yield the
// stable zero default.
func (Propagator) AnalyzePattern(passes []PassOutput) UncertaintyPattern {
	if len(passes) < 2 {
		return UncertaintyPattern{Trend: TrendStable}
	}

	total := 0
	var increasing []int
	for i := 1; i < len(passes); i++ {
		prev := clamp100(passes[i-1].Uncertainty)
		cur := clamp100(passes[i].Uncertainty)
		if cur > prev {
			increasing = append(increasing, passes[i].Ordinal)
		} else {
			total += prev - cur
		}
	}

	transitions := len(passes) - 1
	pattern := UncertaintyPattern{
		TotalReduction:      total,
		AvgReductionPerPass: float64(total) / float64(transitions),
		IncreasingStages:    increasing,
	}

	switch {
	case total > 50:
		pattern.Trend = TrendImproving
	case total < 10 && len(increasing)*2 > transitions:
		pattern.Trend = TrendWorsening
	default:
		pattern.Trend = TrendStable
	}
	return pattern
}

// EstimateFinal projects the run's final uncertainty from the passes seen
// so far, for interim reporting only: the authoritative value is the full
// Propagate call after the last stage.
//
// The remaining stages are assumed to each deliver a share of the average
// observed per-stage reduction - 80% if the trend is improving, 50% if
// worsening, the full average if stable.
func (p Propagator) EstimateFinal(passes []PassOutput, totalStages int) int {
	if len(passes) == 0 {
		return 100
	}
	if totalStages <= 0 {
		totalStages = len(passes)
	}
	last := clamp100(passes[len(passes)-1].Uncertainty)
	remaining := totalStages - len(passes)
	if remaining <= 0 {
		return last
	}

	pattern := p.AnalyzePattern(passes)
	factor := projectionStable
	switch pattern.Trend {
	case TrendImproving:
		factor = projectionImproving
	case TrendWorsening:
		factor = projectionWorsening
	}

	projected := float64(last) - pattern.AvgReductionPerPass*factor*float64(remaining)
	return roundClamp100(projected)
}

// HighUncertaintyAreas returns every pass whose uncertainty stayed above
// 40, with a threshold-selected reason: uncertainty above 70 indicates
// critical information gaps, confidence below 50 indicates distrust of the
// stage's own output, and anything else is elevated residual uncertainty.
func (Propagator) HighUncertaintyAreas(passes []PassOutput) []UncertaintyArea {
	var areas []UncertaintyArea
	for _, p := range passes {
		u := clamp100(p.Uncertainty)
		if u <= 40 {
			continue
		}
		var reason string
		switch {
		case u > 70:
			reason = "critical information gaps remain"
		case clamp100(p.Confidence) < 50:
			reason = "low confidence in stage output"
		default:
			reason = "uncertainty remains elevated after " + string(p.Stage)
		}
		areas = append(areas, UncertaintyArea{
			Stage:       p.Stage,
			Uncertainty: u,
			Reason:      reason,
		})
	}
	return areas
}
