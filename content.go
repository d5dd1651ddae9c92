package arbiter

import (
	"encoding/json"
	"fmt"

	"github.com/zoobzio/zyn"
)

// StageContent is the structured, stage-specific content of a pass output.
//
// The union is sealed: exactly one variant exists per stage, so code that
// branches on stage kind (the engine's prompt builders, the archive
// bridge) gets compile-time exhaustiveness instead of duck typing.
type StageContent interface {
	Kind() Stage
	stageContent()
}

// RecallContent is the stage-1 output: the assembled context, the unioned
// item set the risk model scored, and the resulting evidentiary risk.
type RecallContent struct {
	Context     ContextPacket `json:"context"`
	ItemIDs     []string      `json:"item_ids"`
	InitialRisk int           `json:"initial_risk"`
	RiskLevel   RiskLevel     `json:"risk_level"`
}

func (RecallContent) Kind() Stage   { return StageRecall }
func (RecallContent) stageContent() {}

// AnalysisContent is the stage-2 output: the synthesized patterns, gaps,
// and risk factors, plus the service's self-reported uncertainty estimate
// (defaulted when not parseable).
type AnalysisContent struct {
	Text            string         `json:"text"`
	SelfUncertainty int            `json:"self_uncertainty"`
	Tokens          zyn.TokenUsage `json:"tokens"`
}

func (AnalysisContent) Kind() Stage   { return StageAnalysis }
func (AnalysisContent) stageContent() {}

// DraftContent is the stage-3 output: the first solution.
type DraftContent struct {
	Text   string         `json:"text"`
	Tokens zyn.TokenUsage `json:"tokens"`
}

func (DraftContent) Kind() Stage   { return StageDraft }
func (DraftContent) stageContent() {}

// RefinementContent is the stage-4 output: the improved solution.
type RefinementContent struct {
	Text   string         `json:"text"`
	Tokens zyn.TokenUsage `json:"tokens"`
}

func (RefinementContent) Kind() Stage   { return StageRefinement }
func (RefinementContent) stageContent() {}

// ValidationContent is the stage-5 output: the correctness/safety/
// feasibility check and its approval rating (defaulted when not
// parseable).
type ValidationContent struct {
	Text     string         `json:"text"`
	Approval int            `json:"approval"`
	Tokens   zyn.TokenUsage `json:"tokens"`
}

func (ValidationContent) Kind() Stage   { return StageValidation }
func (ValidationContent) stageContent() {}

// contentEnvelope is the wire form of a StageContent value: the stage kind
// as discriminator plus the variant's own JSON.
type contentEnvelope struct {
	Kind Stage           `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalStageContent serializes a stage content value with its kind
// discriminator, for prompts and archival.
func MarshalStageContent(c StageContent) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("nil stage content")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s content: %w", c.Kind(), err)
	}
	return json.Marshal(contentEnvelope{Kind: c.Kind(), Data: data})
}

// UnmarshalStageContent deserializes a value produced by
// MarshalStageContent back into its concrete variant.
func UnmarshalStageContent(raw []byte) (StageContent, error) {
	var env contentEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stage content envelope: %w", err)
	}

	unmarshal := func(v StageContent) (StageContent, error) {
		if err := json.Unmarshal(env.Data, v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s content: %w", env.Kind, err)
		}
		return v, nil
	}

	switch env.Kind {
	case StageRecall:
		c, err := unmarshal(&RecallContent{})
		if err != nil {
			return nil, err
		}
		return *c.(*RecallContent), nil
	case StageAnalysis:
		c, err := unmarshal(&AnalysisContent{})
		if err != nil {
			return nil, err
		}
		return *c.(*AnalysisContent), nil
	case StageDraft:
		c, err := unmarshal(&DraftContent{})
		if err != nil {
			return nil, err
		}
		return *c.(*DraftContent), nil
	case StageRefinement:
		c, err := unmarshal(&RefinementContent{})
		if err != nil {
			return nil, err
		}
		return *c.(*RefinementContent), nil
	case StageValidation:
		c, err := unmarshal(&ValidationContent{})
		if err != nil {
			return nil, err
		}
		return *c.(*ValidationContent), nil
	default:
		return nil, fmt.Errorf("unknown stage content kind: %q", env.Kind)
	}
}
