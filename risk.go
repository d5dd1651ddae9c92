package arbiter

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// RiskLevel is the categorical classification of a 0-100 risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"      // score < 30
	RiskMedium   RiskLevel = "medium"   // score < 60
	RiskHigh     RiskLevel = "high"     // score < 80
	RiskCritical RiskLevel = "critical" // score >= 80
)

// Score defaults. Ignorance is treated as medium risk, not zero: an empty
// item set scores 50, as does a factor set with no usable weight.
const (
	riskDefaultEmpty      = 50
	riskDefaultNoEvidence = 30
)

// Evidence-class and composite weights.
const (
	signalEvidenceWeight        = 0.5
	contradictionEvidenceWeight = 0.8
	lowConfidenceEvidenceWeight = 0.3

	compositeMemoryWeight      = 0.4
	compositeReasoningWeight   = 0.3
	compositeUncertaintyWeight = 0.2
	compositeComplexityWeight  = 0.1
)

// RiskFactor is one weighted contribution to a cumulative risk score.
type RiskFactor struct {
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
	Value  int     `json:"value"`
}

// RiskAssessment is the composite output of the risk model:
// score = Σ(weight·value)/Σ(weight) over the factors, rounded and clamped.
type RiskAssessment struct {
	Score     int          `json:"score"`
	Factors   []RiskFactor `json:"factors"`
	Level     RiskLevel    `json:"level"`
	Timestamp time.Time    `json:"timestamp"`
}

// ReasoningSignals are the inputs to reasoning-risk scoring. All values
// are 0-100.
type ReasoningSignals struct {
	ContextQuality int `json:"context_quality"`
	Confidence     int `json:"confidence"`
	Uncertainty    int `json:"uncertainty"`
	Complexity     int `json:"complexity"`
}

// RiskModel scores how risky it is to act on a set of knowledge items
// and/or a reasoning outcome.
type RiskModel struct {
	store Store
}

// NewRiskModel creates a risk model over the given store.
func NewRiskModel(store Store) *RiskModel {
	return &RiskModel{store: store}
}

// AssessMemoryRisk scores the evidentiary risk of acting on the given item
// set. An empty set returns 50.
//
// Three evidence classes are gathered, each independently averaged across
// the item set when present: unresolved-signal magnitude (×0.5),
// contradiction/invalidation link strength among the items (×0.8), and the
// fraction of items with confidence below 50 scaled to 0-100 (×0.3). The
// score is the arithmetic mean of whichever classes held data; 30 if none
// did.
func (m *RiskModel) AssessMemoryRisk(ctx context.Context, workspace string, itemIDs []string) (int, error) {
	if len(itemIDs) == 0 {
		return riskDefaultEmpty, nil
	}

	var classes []float64

	signals, err := m.store.UnresolvedSignals(ctx, itemIDs)
	if err != nil {
		return 0, &RetrievalError{Workspace: workspace, Err: err}
	}
	if len(signals) > 0 {
		total := 0
		for _, sig := range signals {
			total += sig.Magnitude
		}
		classes = append(classes, float64(total)/float64(len(signals))*signalEvidenceWeight)
	}

	links, err := m.store.Links(ctx, itemIDs, []string{RelContradicts, RelInvalidates})
	if err != nil {
		return 0, &RetrievalError{Workspace: workspace, Err: err}
	}
	if len(links) > 0 {
		total := 0
		for _, link := range links {
			total += link.Strength
		}
		classes = append(classes, float64(total)/float64(len(links))*contradictionEvidenceWeight)
	}

	items, err := m.store.Items(ctx, itemIDs)
	if err != nil {
		return 0, &RetrievalError{Workspace: workspace, Err: err}
	}
	if len(items) > 0 {
		low := 0
		for _, item := range items {
			if item.Confidence < lowConfidenceThreshold {
				low++
			}
		}
		fraction := float64(low) / float64(len(items))
		classes = append(classes, fraction*100*lowConfidenceEvidenceWeight)
	}

	if len(classes) == 0 {
		return riskDefaultNoEvidence, nil
	}

	sum := 0.0
	for _, c := range classes {
		sum += c
	}
	return roundClamp100(sum / float64(len(classes))), nil
}

// AssessReasoningRisk scores the risk of a reasoning outcome. Risk grows
// with ambiguity and task complexity, shrinks with demonstrated confidence
// and rich context; confidence matters 3x more than raw context volume.
func (m *RiskModel) AssessReasoningRisk(sig ReasoningSignals) int {
	base := 0.4*float64(sig.Uncertainty) + 0.3*float64(sig.Complexity)
	score := base - 0.3*float64(sig.Confidence) - 0.1*float64(sig.ContextQuality)
	if score < 0 {
		score = 0
	}
	return roundClamp100(score)
}

// AssessCumulativeRisk computes the weighted mean of the given factors.
// Returns 50 if the list is empty or the total weight is zero.
func (m *RiskModel) AssessCumulativeRisk(factors []RiskFactor) int {
	var weighted, totalWeight float64
	for _, f := range factors {
		weighted += f.Weight * float64(f.Value)
		totalWeight += f.Weight
	}
	if totalWeight == 0 {
		return riskDefaultEmpty
	}
	return roundClamp100(weighted / totalWeight)
}

// ClassifyRisk maps a score to its categorical level.
func (m *RiskModel) ClassifyRisk(score int) RiskLevel {
	switch {
	case score < 30:
		return RiskLow
	case score < 60:
		return RiskMedium
	case score < 80:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// Assess combines memory risk (weight 0.4), reasoning risk (weight 0.3),
// raw uncertainty (weight 0.2), and raw complexity (weight 0.1) into one
// classified assessment.
func (m *RiskModel) Assess(ctx context.Context, workspace string, itemIDs []string, sig ReasoningSignals) (*RiskAssessment, error) {
	memory, err := m.AssessMemoryRisk(ctx, workspace, itemIDs)
	if err != nil {
		return nil, err
	}

	factors := []RiskFactor{
		{Type: "memory", Weight: compositeMemoryWeight, Value: memory},
		{Type: "reasoning", Weight: compositeReasoningWeight, Value: m.AssessReasoningRisk(sig)},
		{Type: "uncertainty", Weight: compositeUncertaintyWeight, Value: clamp100(sig.Uncertainty)},
		{Type: "complexity", Weight: compositeComplexityWeight, Value: clamp100(sig.Complexity)},
	}

	score := m.AssessCumulativeRisk(factors)
	assessment := &RiskAssessment{
		Score:     score,
		Factors:   factors,
		Level:     m.ClassifyRisk(score),
		Timestamp: time.Now(),
	}

	capitan.Emit(ctx, RiskAssessed,
		FieldWorkspace.Field(workspace),
		FieldItemCount.Field(len(itemIDs)),
		FieldRisk.Field(assessment.Score),
		FieldRiskLevel.Field(string(assessment.Level)),
	)

	return assessment, nil
}
